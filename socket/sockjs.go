/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package socket

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/gorilla/websocket"
)

var ErrUnexpectedFrame = errors.New("unexpected sockjs frame")

// CloseError is returned by Read when the server sends a sockjs close frame
type CloseError struct {
	Code   int
	Reason string
}

func (e *CloseError) Error() string {
	return fmt.Sprintf("sockjs session closed: %d %s", e.Code, e.Reason)
}

// messageConn turns a message oriented websocket into a byte stream. It
// supports one reader and one writer at a time, as gorilla does.
type messageConn struct {
	conn    *websocket.Conn
	pending bytes.Buffer
	decode  func(msg []byte, pending *bytes.Buffer) error
	encode  func(p []byte) ([]byte, error)
}

func (c *messageConn) Read(p []byte) (int, error) {
	for c.pending.Len() == 0 {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return 0, io.EOF
			}
			return 0, err
		}
		if err := c.decode(msg, &c.pending); err != nil {
			return 0, err
		}
	}
	return c.pending.Read(p)
}

func (c *messageConn) Write(p []byte) (int, error) {
	payload, err := c.encode(p)
	if err != nil {
		return 0, err
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (c *messageConn) Close() error {
	return c.conn.Close()
}

// newRawConn carries STOMP frames unwrapped, one or more per message
func newRawConn(conn *websocket.Conn) *messageConn {
	return &messageConn{
		conn: conn,
		decode: func(msg []byte, pending *bytes.Buffer) error {
			pending.Write(msg)
			return nil
		},
		encode: func(p []byte) ([]byte, error) {
			return p, nil
		},
	}
}

type sockJSConn struct {
	*messageConn
}

func newSockJSConn(conn *websocket.Conn) *sockJSConn {
	return &sockJSConn{&messageConn{
		conn:   conn,
		decode: decodeSockJSFrame,
		encode: encodeSockJSFrame,
	}}
}

// awaitOpen consumes the "o" frame that starts every sockjs session
func (c *sockJSConn) awaitOpen(ctx context.Context) error {
	if deadline, ok := ctx.Deadline(); ok {
		c.conn.SetReadDeadline(deadline)
		defer c.conn.SetReadDeadline(time.Time{})
	}

	_, msg, err := c.conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("waiting for sockjs open frame: %w", err)
	}
	if len(msg) == 0 || msg[0] != 'o' {
		if len(msg) > 0 && msg[0] == 'c' {
			return decodeSockJSFrame(msg, &c.pending)
		}
		return fmt.Errorf("%w: expected open frame, got %q", ErrUnexpectedFrame, msg)
	}
	return nil
}

// decodeSockJSFrame appends the payload of a server frame to pending.
// Frames are o (open), h (heartbeat), a (array of messages), m (single
// message) and c (close).
func decodeSockJSFrame(msg []byte, pending *bytes.Buffer) error {
	if len(msg) == 0 {
		return nil
	}

	switch msg[0] {
	case 'o', 'h':
		return nil
	case 'a':
		var messages []string
		if err := json.Unmarshal(msg[1:], &messages); err != nil {
			return fmt.Errorf("%w: %w", ErrUnexpectedFrame, err)
		}
		for _, m := range messages {
			pending.WriteString(m)
		}
		return nil
	case 'm':
		var message string
		if err := json.Unmarshal(msg[1:], &message); err != nil {
			return fmt.Errorf("%w: %w", ErrUnexpectedFrame, err)
		}
		pending.WriteString(message)
		return nil
	case 'c':
		closeErr := &CloseError{}
		var reason []interface{}
		if err := json.Unmarshal(msg[1:], &reason); err == nil && len(reason) == 2 {
			if code, ok := reason[0].(float64); ok {
				closeErr.Code = int(code)
			}
			closeErr.Reason, _ = reason[1].(string)
		}
		return closeErr
	default:
		return fmt.Errorf("%w: %q", ErrUnexpectedFrame, msg[0])
	}
}

// encodeSockJSFrame wraps a client write into a one element JSON array
func encodeSockJSFrame(p []byte) ([]byte, error) {
	return json.Marshal([]string{string(p)})
}
