/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package page

import (
	"sync"
)

// Element is a node of a Document
type Element struct {
	ID       string
	Value    string
	Display  string
	Children []string
}

// Document is an in-memory Page. It starts with the login form visible and
// the dashboard hidden.
type Document struct {
	mutex    sync.RWMutex
	elements map[string]*Element
	alerts   []string
}

func NewDocument() *Document {
	d := &Document{elements: make(map[string]*Element)}
	for _, id := range []string{EmailInput, PasswordInput, LoginForm, Messages} {
		d.elements[id] = &Element{ID: id, Display: DisplayBlock}
	}
	d.elements[Dashboard] = &Element{ID: Dashboard, Display: DisplayNone}
	return d
}

// SetValue fills an input element
func (d *Document) SetValue(id, value string) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.element(id).Value = value
}

func (d *Document) Value(id string) string {
	d.mutex.RLock()
	defer d.mutex.RUnlock()
	if e, ok := d.elements[id]; ok {
		return e.Value
	}
	return ""
}

func (d *Document) SetDisplay(id, display string) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.element(id).Display = display
}

func (d *Document) Display(id string) string {
	d.mutex.RLock()
	defer d.mutex.RUnlock()
	if e, ok := d.elements[id]; ok {
		return e.Display
	}
	return ""
}

func (d *Document) AppendText(id, text string) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	e := d.element(id)
	e.Children = append(e.Children, text)
}

// Children returns a copy of the text blocks appended to id
func (d *Document) Children(id string) []string {
	d.mutex.RLock()
	defer d.mutex.RUnlock()
	e, ok := d.elements[id]
	if !ok {
		return nil
	}
	return append([]string(nil), e.Children...)
}

func (d *Document) Alert(message string) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.alerts = append(d.alerts, message)
}

func (d *Document) Alerts() []string {
	d.mutex.RLock()
	defer d.mutex.RUnlock()
	return append([]string(nil), d.alerts...)
}

// element must be called with the lock held
func (d *Document) element(id string) *Element {
	e, ok := d.elements[id]
	if !ok {
		e = &Element{ID: id, Display: DisplayBlock}
		d.elements[id] = e
	}
	return e
}
