/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package socket

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/go-stomp/stomp/v3"

	"github.com/nethesis/appointments-notifier/logs"
)

var ErrAlreadySubscribed = errors.New("topic already has an active subscription")

// Message is a frame delivered on a subscription. Err is set, with no body,
// when the subscription ends because of a connection error.
type Message struct {
	Destination string
	Body        []byte
	Err         error
}

// Subscription delivers the messages of one topic in arrival order
type Subscription struct {
	Topic string
	C     <-chan Message

	sub *stomp.Subscription
}

// Client is a STOMP session holding at most one active subscription per topic
type Client struct {
	conn          *stomp.Conn
	subscriptions map[string]*Subscription
	mutex         sync.Mutex
}

// Connect negotiates a STOMP session over rwc. The stream is closed if the
// negotiation fails.
func Connect(rwc io.ReadWriteCloser, host string, heartBeat time.Duration) (*Client, error) {
	opts := []func(*stomp.Conn) error{
		stomp.ConnOpt.HeartBeat(heartBeat, heartBeat),
	}
	if host != "" {
		opts = append(opts, stomp.ConnOpt.Host(host))
	}

	conn, err := stomp.Connect(rwc, opts...)
	if err != nil {
		rwc.Close()
		return nil, fmt.Errorf("stomp connect: %w", err)
	}

	logs.Logf("[INFO][STOMP] Connected: version=%s server=%s session=%s", conn.Version(), conn.Server(), conn.Session())

	return &Client{
		conn:          conn,
		subscriptions: make(map[string]*Subscription),
	}, nil
}

// Subscribe starts delivering the messages of topic
func (c *Client) Subscribe(topic string) (*Subscription, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if existing, exists := c.subscriptions[topic]; exists && existing.sub.Active() {
		return nil, ErrAlreadySubscribed
	}

	sub, err := c.conn.Subscribe(topic, stomp.AckAuto)
	if err != nil {
		return nil, fmt.Errorf("stomp subscribe %s: %w", topic, err)
	}

	ch := make(chan Message)
	subscription := &Subscription{Topic: topic, C: ch, sub: sub}
	c.subscriptions[topic] = subscription

	go subscription.pump(ch)

	logs.Log("[INFO][STOMP] Subscribed to topic: " + topic)
	return subscription, nil
}

// Subscriptions returns the topics with an active subscription
func (c *Client) Subscriptions() []string {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	topics := make([]string, 0, len(c.subscriptions))
	for topic, subscription := range c.subscriptions {
		if subscription.sub.Active() {
			topics = append(topics, topic)
		}
	}
	return topics
}

// Close ends the STOMP session and the underlying stream
func (c *Client) Close() error {
	if err := c.conn.Disconnect(); err != nil {
		c.conn.MustDisconnect()
		return err
	}
	return nil
}

func (s *Subscription) pump(ch chan<- Message) {
	defer close(ch)

	for msg := range s.sub.C {
		if msg.Err != nil {
			ch <- Message{Destination: s.Topic, Err: msg.Err}
			continue
		}
		ch <- Message{Destination: msg.Destination, Body: msg.Body}
	}
}
