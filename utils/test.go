/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package utils

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	jwt "github.com/appleboy/gin-jwt/v2"
	"github.com/fatih/structs"
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/go-stomp/stomp/v3/frame"
	jwtv4 "github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/nethesis/appointments-notifier/models"
)

const TestSecret = "test-secret-jwt"

type fakeUser struct {
	password string
	doctorID string
}

// Handshake records the credentials a websocket client presented
type Handshake struct {
	Path          string
	Cookie        string
	Authorization string
}

// FakeBackend is an in-process appointments backend: a login endpoint
// issuing doctor tokens and a STOMP broker reachable over SockJS and raw
// websockets. Tests drive it to publish on topics.
type FakeBackend struct {
	Server *httptest.Server

	mutex         sync.Mutex
	users         map[string]fakeUser
	loginOverride string
	sessions      map[*stompSession]struct{}
	handshakes    []Handshake
	upgrader      websocket.Upgrader
}

func NewFakeBackend() *FakeBackend {
	gin.SetMode(gin.TestMode)

	b := &FakeBackend{
		users:    make(map[string]fakeUser),
		sessions: make(map[*stompSession]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	b.Server = httptest.NewServer(b.createRouter())
	return b
}

func (b *FakeBackend) URL() string {
	return b.Server.URL
}

func (b *FakeBackend) Close() {
	b.mutex.Lock()
	for session := range b.sessions {
		session.conn.Close()
	}
	b.mutex.Unlock()
	b.Server.Close()
}

// AddUser registers credentials accepted by the login endpoint
func (b *FakeBackend) AddUser(email, password, doctorID string) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.users[email] = fakeUser{password: password, doctorID: doctorID}
}

// OverrideLogin makes the login endpoint answer with body, verbatim
func (b *FakeBackend) OverrideLogin(body string) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.loginOverride = body
}

func (b *FakeBackend) Handshakes() []Handshake {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return append([]Handshake(nil), b.handshakes...)
}

// Subscribed reports how many sessions subscribed to topic
func (b *FakeBackend) Subscribed(topic string) int {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	count := 0
	for session := range b.sessions {
		if session.subscriptionID(topic) != "" {
			count++
		}
	}
	return count
}

// Publish sends body as a MESSAGE to every subscriber of topic and returns
// the number of deliveries
func (b *FakeBackend) Publish(topic string, body string) int {
	b.mutex.Lock()
	sessions := make([]*stompSession, 0, len(b.sessions))
	for session := range b.sessions {
		sessions = append(sessions, session)
	}
	b.mutex.Unlock()

	delivered := 0
	for _, session := range sessions {
		id := session.subscriptionID(topic)
		if id == "" {
			continue
		}
		msg := frame.New("MESSAGE",
			"destination", topic,
			"subscription", id,
			"message-id", uuid.NewString(),
			"content-type", "application/json",
			"content-length", strconv.Itoa(len(body)),
		)
		msg.Body = []byte(body)
		if session.send(msg) == nil {
			delivered++
		}
	}
	return delivered
}

// CloseSessions drops every open websocket without a STOMP goodbye
func (b *FakeBackend) CloseSessions() {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	for session := range b.sessions {
		session.conn.Close()
	}
}

func (b *FakeBackend) createRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/ws"})))

	corsConf := cors.DefaultConfig()
	corsConf.AllowHeaders = []string{"Authorization", "Content-Type", "Accept"}
	corsConf.AllowAllOrigins = true
	router.Use(cors.New(corsConf))

	auth := b.jwtMiddleware()

	api := router.Group("/api/v1/public")
	api.POST("/login", func(c *gin.Context) {
		b.mutex.Lock()
		override := b.loginOverride
		b.mutex.Unlock()

		if override != "" {
			c.Data(http.StatusOK, "application/json", []byte(override))
			return
		}
		auth.LoginHandler(c)
	})

	router.GET("/ws/websocket", auth.MiddlewareFunc(), func(c *gin.Context) {
		b.serveStomp(c, false)
	})
	router.GET("/ws/:server/:session/websocket", auth.MiddlewareFunc(), func(c *gin.Context) {
		b.serveStomp(c, true)
	})

	return router
}

func (b *FakeBackend) jwtMiddleware() *jwt.GinJWTMiddleware {
	authMiddleware, err := jwt.New(&jwt.GinJWTMiddleware{
		Realm:       "appointments",
		Key:         []byte(TestSecret),
		Timeout:     time.Hour,
		IdentityKey: "doctorId",
		Authenticator: func(c *gin.Context) (interface{}, error) {
			var loginVals models.LoginJson
			if err := c.ShouldBindJSON(&loginVals); err != nil {
				return nil, jwt.ErrMissingLoginValues
			}

			b.mutex.Lock()
			user, exists := b.users[loginVals.Username]
			b.mutex.Unlock()

			if !exists || user.password != loginVals.Password {
				return nil, jwt.ErrFailedAuthentication
			}
			return &models.UserAuthorizations{Username: loginVals.Username, DoctorID: user.doctorID}, nil
		},
		PayloadFunc: func(data interface{}) jwt.MapClaims {
			if user, ok := data.(*models.UserAuthorizations); ok {
				return jwt.MapClaims{
					"sub":      user.Username,
					"doctorId": user.DoctorID,
				}
			}
			return jwt.MapClaims{}
		},
		LoginResponse: func(c *gin.Context, code int, token string, t time.Time) {
			c.JSON(http.StatusOK, structs.Map(models.ApiResponse{
				Success: true,
				Message: "login successfully",
				Data:    models.LoginData{Token: token},
			}))
		},
		Unauthorized: func(c *gin.Context, code int, message string) {
			c.JSON(code, structs.Map(models.ApiResponse{
				Success:   false,
				Message:   message,
				ErrorCode: "UNAUTHORIZED",
			}))
		},
		TokenLookup:   "header: Authorization, query: token, cookie: token",
		TokenHeadName: "Bearer",
		TimeFunc:      time.Now,
	})
	if err != nil {
		panic(err)
	}
	return authMiddleware
}

func (b *FakeBackend) serveStomp(c *gin.Context, sockJS bool) {
	cookie, _ := c.Cookie("token")
	b.mutex.Lock()
	b.handshakes = append(b.handshakes, Handshake{
		Path:          c.Request.URL.Path,
		Cookie:        cookie,
		Authorization: c.GetHeader("Authorization"),
	})
	b.mutex.Unlock()

	conn, err := b.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	session := &stompSession{
		conn:          conn,
		sockJS:        sockJS,
		subscriptions: make(map[string]string),
	}

	b.mutex.Lock()
	b.sessions[session] = struct{}{}
	b.mutex.Unlock()

	defer func() {
		b.mutex.Lock()
		delete(b.sessions, session)
		b.mutex.Unlock()
		conn.Close()
	}()

	if sockJS {
		if err := conn.WriteMessage(websocket.TextMessage, []byte("o")); err != nil {
			return
		}
	}

	session.serve()
}

type stompSession struct {
	conn   *websocket.Conn
	sockJS bool

	writeMutex sync.Mutex

	mutex sync.Mutex
	// destination -> subscription id
	subscriptions map[string]string
}

func (s *stompSession) subscriptionID(topic string) string {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.subscriptions[topic]
}

func (s *stompSession) serve() {
	reader, writer := io.Pipe()
	defer writer.Close()

	go func() {
		defer reader.Close()
		frames := frame.NewReader(reader)
		for {
			f, err := frames.Read()
			if err != nil {
				s.conn.Close()
				return
			}
			if f == nil {
				continue // heart-beat
			}
			if !s.handle(f) {
				s.conn.Close()
				return
			}
		}
	}()

	for {
		_, msg, err := s.conn.ReadMessage()
		if err != nil {
			return
		}

		if !s.sockJS {
			writer.Write(msg)
			continue
		}

		var parts []string
		if err := json.Unmarshal(msg, &parts); err != nil {
			return
		}
		for _, part := range parts {
			writer.Write([]byte(part))
		}
	}
}

func (s *stompSession) handle(f *frame.Frame) bool {
	switch f.Command {
	case "CONNECT", "STOMP":
		s.send(frame.New("CONNECTED",
			"version", "1.2",
			"heart-beat", "0,0",
			"server", "fake-backend",
			"session", uuid.NewString(),
		))
	case "SUBSCRIBE":
		s.mutex.Lock()
		s.subscriptions[f.Header.Get("destination")] = f.Header.Get("id")
		s.mutex.Unlock()
	case "UNSUBSCRIBE":
		s.mutex.Lock()
		for destination, id := range s.subscriptions {
			if id == f.Header.Get("id") {
				delete(s.subscriptions, destination)
			}
		}
		s.mutex.Unlock()
	case "DISCONNECT":
		if receipt := f.Header.Get("receipt"); receipt != "" {
			s.send(frame.New("RECEIPT", "receipt-id", receipt))
		}
		return false
	}
	return true
}

func (s *stompSession) send(f *frame.Frame) error {
	var buf bytes.Buffer
	if err := frame.NewWriter(&buf).Write(f); err != nil {
		return err
	}

	payload := buf.Bytes()
	if s.sockJS {
		encoded, err := json.Marshal([]string{buf.String()})
		if err != nil {
			return err
		}
		payload = append([]byte("a"), encoded...)
	}

	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()
	return s.conn.WriteMessage(websocket.TextMessage, payload)
}

// IssueToken signs claims with the test secret
func IssueToken(claims jwtv4.MapClaims) string {
	token := jwtv4.NewWithClaims(jwtv4.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(TestSecret))
	if err != nil {
		panic(err)
	}
	return signed
}

// EncodePayloadToken builds an unsigned three segment token around a raw payload
func EncodePayloadToken(payload string) string {
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))
	body := base64.RawURLEncoding.EncodeToString([]byte(payload))
	return strings.Join([]string{header, body, "signature"}, ".")
}

// LoginBody renders a login response envelope carrying token
func LoginBody(success bool, token string) string {
	response := models.ApiResponse{Success: success}
	if success {
		response.Data = models.LoginData{Token: token}
	}
	encoded, _ := json.Marshal(response)
	return string(encoded)
}
