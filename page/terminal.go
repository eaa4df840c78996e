/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package page

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/nethesis/appointments-notifier/logs"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED"))

	alertStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#F59E0B"))

	messageStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#6B7280")).
			Padding(0, 1)
)

// Terminal renders the page on a terminal. Inputs are taken from preset
// values and, when missing on an interactive stdin, prompted with a form.
type Terminal struct {
	mutex   sync.Mutex
	out     io.Writer
	values  map[string]string
	display map[string]string
	prompt  bool
	ask     func(email, password *string) error
}

func NewTerminal(out io.Writer, email, password string) *Terminal {
	return &Terminal{
		out: out,
		values: map[string]string{
			EmailInput:    email,
			PasswordInput: password,
		},
		display: map[string]string{
			LoginForm: DisplayBlock,
			Dashboard: DisplayNone,
		},
		prompt: term.IsTerminal(int(os.Stdin.Fd())),
		ask:    runCredentialsForm,
	}
}

func (t *Terminal) Value(id string) string {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if t.values[id] == "" && t.prompt && (id == EmailInput || id == PasswordInput) {
		t.askCredentials()
	}
	return t.values[id]
}

// askCredentials fills both credentials from a form. Once the form is
// aborted it is not shown again.
func (t *Terminal) askCredentials() {
	email := t.values[EmailInput]
	password := t.values[PasswordInput]

	if err := t.ask(&email, &password); err != nil {
		logs.Log("[WARNING][PAGE] Credentials prompt aborted: " + err.Error())
		t.prompt = false
		return
	}

	t.values[EmailInput] = email
	t.values[PasswordInput] = password
}

func runCredentialsForm(email, password *string) error {
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Email").
				Value(email),
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(password),
		),
	)
	return form.Run()
}

func (t *Terminal) SetDisplay(id, display string) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if t.display[id] == display {
		return
	}
	t.display[id] = display

	if id == Dashboard && display != DisplayNone {
		fmt.Fprintln(t.out, titleStyle.Render("Appointments dashboard"))
	}
}

func (t *Terminal) AppendText(id, text string) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if id != Messages {
		fmt.Fprintln(t.out, text)
		return
	}
	fmt.Fprintln(t.out, messageStyle.Render(text))
}

func (t *Terminal) Alert(message string) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	fmt.Fprintln(t.out, alertStyle.Render("! "+message))
}
