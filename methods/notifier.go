/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package methods

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"sync"
	"time"

	"github.com/nethesis/appointments-notifier/configuration"
	"github.com/nethesis/appointments-notifier/logs"
	"github.com/nethesis/appointments-notifier/page"
	"github.com/nethesis/appointments-notifier/socket"
	"github.com/nethesis/appointments-notifier/store"
)

// Publisher receives a copy of every rendered message
type Publisher interface {
	Publish(identifier string, payload []byte) error
}

// DialFunc opens the stream STOMP frames travel on
type DialFunc func(ctx context.Context, opts socket.Options) (io.ReadWriteCloser, error)

// Notifier subscribes to the appointment topic of the logged user and
// appends every message to the page log
type Notifier struct {
	Session *store.Session
	Page    page.Page
	Relay   Publisher
	Dial    DialFunc

	Endpoint      string
	Transport     string
	TopicPrefix   string
	MessageFormat string
	HeartBeat     time.Duration

	mutex  sync.Mutex
	client *socket.Client
	done   chan struct{}
}

func NewNotifier(session *store.Session, pg page.Page) *Notifier {
	return &Notifier{
		Session:       session,
		Page:          pg,
		Dial:          socket.Dial,
		Endpoint:      configuration.Config.WsEndpoint,
		Transport:     configuration.Config.WsTransport,
		TopicPrefix:   configuration.Config.TopicPrefix,
		MessageFormat: configuration.Config.MessageFormat,
		HeartBeat:     configuration.Config.StompHeartBeat,
		done:          make(chan struct{}),
	}
}

// Connect opens the messaging session and subscribes to the user topic.
// Without an identifier it alerts the user and returns store.ErrNotLoggedIn
// before any dial. Delivery runs until the connection ends, see Done.
func (n *Notifier) Connect(ctx context.Context) error {
	identifier, ok := n.Session.Identifier()
	if !ok {
		n.Page.Alert("You must be logged in first!")
		return store.ErrNotLoggedIn
	}

	if n.Session.State() == store.Connected {
		return store.ErrAlreadyConnected
	}

	conn, err := n.Dial(ctx, socket.Options{
		Endpoint:  n.Endpoint,
		Transport: n.Transport,
		Jar:       n.Session.Jar(),
		Token:     n.Session.Token(),
	})
	if err != nil {
		logs.Log("[ERROR][WS] Failed to open websocket: " + err.Error())
		return err
	}

	client, err := socket.Connect(conn, endpointHost(n.Endpoint), n.HeartBeat)
	if err != nil {
		logs.Log("[ERROR][WS] " + err.Error())
		return err
	}

	topic := n.TopicPrefix + identifier
	subscription, err := client.Subscribe(topic)
	if err != nil {
		logs.Log("[ERROR][WS] " + err.Error())
		client.Close()
		return err
	}

	if err := n.Session.MarkConnected(); err != nil {
		client.Close()
		return err
	}

	n.mutex.Lock()
	n.client = client
	n.mutex.Unlock()

	go n.deliver(identifier, subscription)
	return nil
}

// Done is closed when the subscription stops delivering
func (n *Notifier) Done() <-chan struct{} {
	return n.done
}

// Close ends the messaging session, used on process shutdown
func (n *Notifier) Close() error {
	n.mutex.Lock()
	client := n.client
	n.mutex.Unlock()

	if client == nil {
		return nil
	}

	select {
	case <-n.done:
		// the connection is already gone
		return nil
	default:
	}
	return client.Close()
}

func (n *Notifier) deliver(identifier string, subscription *socket.Subscription) {
	defer close(n.done)

	for msg := range subscription.C {
		if msg.Err != nil {
			// connection failures are not surfaced on the page
			logs.Log(fmt.Sprintf("[ERROR][WS] Subscription to %s ended: %v", subscription.Topic, msg.Err))
			continue
		}
		n.showMessage(identifier, msg.Body)
	}
}

func (n *Notifier) showMessage(identifier string, body []byte) {
	text, err := FormatMessage(body, n.MessageFormat)
	if err != nil {
		logs.Log("[WARNING][WS] Dropping message: " + err.Error())
		return
	}

	n.Page.AppendText(page.Messages, text)

	if n.Relay == nil {
		return
	}
	if err := n.Relay.Publish(identifier, body); err != nil {
		logs.Log("[ERROR][MQTT] Failed to relay message: " + err.Error())
	}
}

func endpointHost(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
