package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"smatrader/src/executors"
	"smatrader/src/metrics"

	"github.com/gorilla/websocket"
	logger "github.com/sirupsen/logrus"
)

const streamWriteWait = 10 * time.Second

type statusSource interface {
	Status() executors.Status
}

// StatusStream pushes the engine status to websocket clients whenever it changes.
type StatusStream struct {
	source   statusSource
	interval time.Duration
	upgrader websocket.Upgrader

	closeOnce sync.Once
	done      chan struct{}
}

func NewStatusStream(source statusSource, interval time.Duration) *StatusStream {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &StatusStream{
		source:   source,
		interval: interval,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		done: make(chan struct{}),
	}
}

// Close ends every open stream. Hijacked connections are not closed by http.Server.Shutdown.
func (s *StatusStream) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

func (s *StatusStream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.WithError(err).Warn("failed to upgrade status stream")
		return
	}
	defer conn.Close()

	metrics.StreamClients.Inc()
	defer metrics.StreamClients.Dec()

	// reads only detect the peer going away
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	var last []byte
	for {
		payload, err := json.Marshal(s.source.Status())
		if err != nil {
			logger.WithError(err).Error("failed to encode status")
			return
		}
		if !bytes.Equal(payload, last) {
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				logger.WithError(err).Debug("status stream client dropped")
				return
			}
			last = payload
		}

		select {
		case <-gone:
			return
		case <-s.done:
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(time.Second))
			return
		case <-ticker.C:
		}
	}
}
