package config

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

type WebSocket struct {
	Upgrader websocket.Upgrader
	// ReadTimeout closes connections that stay silent for longer.
	ReadTimeout time.Duration
}

func NewWebSocket() (*WebSocket, error) {
	timeout, err := envDuration("WS_READ_TIMEOUT", 10*time.Minute)
	if err != nil {
		return nil, err
	}
	ws := &WebSocket{
		Upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		ReadTimeout: timeout,
	}
	return ws, nil
}
