/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package socket

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/nethesis/appointments-notifier/logs"
)

const (
	TransportSockJS    = "sockjs"
	TransportWebSocket = "websocket"
)

var ErrUnknownTransport = errors.New("unknown websocket transport")

// Options describes how to reach the messaging endpoint
type Options struct {
	// Endpoint is the http(s) url of the endpoint, e.g. http://localhost:8080/ws
	Endpoint  string
	Transport string

	// Jar provides the session cookie for the handshake
	Jar http.CookieJar

	// Token is sent as a bearer Authorization header when set
	Token string

	HandshakeTimeout time.Duration
}

// Dial opens a websocket to the endpoint and returns it as a byte stream
// carrying STOMP frames.
func Dial(ctx context.Context, opts Options) (io.ReadWriteCloser, error) {
	target, err := TransportURL(opts.Endpoint, opts.Transport)
	if err != nil {
		return nil, err
	}

	handshakeTimeout := opts.HandshakeTimeout
	if handshakeTimeout == 0 {
		handshakeTimeout = 45 * time.Second
	}

	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: handshakeTimeout,
		Jar:              opts.Jar,
	}

	header := http.Header{}
	if opts.Token != "" {
		header.Set("Authorization", "Bearer "+opts.Token)
	}

	conn, resp, err := dialer.DialContext(ctx, target.String(), header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket handshake with %s failed with status %s: %w", target.Redacted(), resp.Status, err)
		}
		return nil, fmt.Errorf("websocket dial %s: %w", target.Redacted(), err)
	}

	logs.Log("[INFO][WS] Websocket opened to " + target.Redacted())

	if opts.Transport == TransportWebSocket {
		return newRawConn(conn), nil
	}

	sockJS := newSockJSConn(conn)
	if err := sockJS.awaitOpen(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return sockJS, nil
}

// TransportURL maps the http endpoint to the websocket url of the transport
func TransportURL(endpoint, transport string) (*url.URL, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid websocket endpoint %q: %w", endpoint, err)
	}

	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return nil, fmt.Errorf("invalid websocket endpoint %q: unsupported scheme", endpoint)
	}

	base := strings.TrimSuffix(u.Path, "/")
	switch transport {
	case TransportSockJS, "":
		// <base>/<server-id>/<session-id>/websocket
		sessionID := strings.ReplaceAll(uuid.NewString(), "-", "")
		u.Path = fmt.Sprintf("%s/%03d/%s/websocket", base, rand.IntN(1000), sessionID)
	case TransportWebSocket:
		u.Path = base + "/websocket"
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownTransport, transport)
	}

	return u, nil
}
