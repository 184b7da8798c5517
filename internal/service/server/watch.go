package server

import (
	"context"
	"net/http"

	"pgprelay/internal/utils/log"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// HandleWatch upgrades to a websocket and streams deliverable notifications
// for the given username: first anything buffered while they were away, then
// live events. Clients react by calling /retrieve.
func (s *HttpServer) HandleWatch() http.HandlerFunc {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if s.notifier == nil {
			http.Error(w, "watch is not available", http.StatusServiceUnavailable)
			return
		}

		username := r.URL.Query().Get("username")
		if username == "" {
			http.Error(w, "username cannot be empty", http.StatusBadRequest)
			return
		}

		if _, err := s.relayService.Key(r.Context(), username); err != nil {
			http.Error(w, "user does not exist", http.StatusNotFound)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			http.Error(w, "Failed to upgrade", http.StatusInternalServerError)
			return
		}

		go s.watchLoop(username, conn)
	}
}

func (s *HttpServer) watchLoop(username string, conn *websocket.Conn) {
	defer conn.Close()

	ctx := context.Background()

	// Listen before draining: a notification pushed between the two lands on
	// the live channel rather than in the already-drained buffer. The client
	// may see one twice, which is fine; it never misses one.
	live, stop, err := s.notifier.Listen(ctx, username)
	if err != nil {
		log.Error("notification subscribe failed", zap.String("username", username), zap.Error(err))
		return
	}
	defer stop()

	buffered, err := s.notifier.Drain(ctx, username)
	if err != nil {
		log.Error("drain notifications failed", zap.String("username", username), zap.Error(err))
		return
	}
	for _, n := range buffered {
		if err := conn.WriteJSON(n); err != nil {
			return
		}
	}

	// Reader goroutine: its only job is noticing the peer going away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				log.Debug("watch socket closed", zap.String("username", username), zap.Error(err))
				return
			}
		}
	}()

	for {
		select {
		case n, ok := <-live:
			if !ok {
				return
			}
			if err := conn.WriteJSON(n); err != nil {
				return
			}
		case <-closed:
			return
		}
	}
}
