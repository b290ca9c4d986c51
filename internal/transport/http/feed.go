package http

import (
	"log"
	"net/http"

	"campus-quiz-service/internal/app"
	"campus-quiz-service/internal/domain"
	"github.com/gorilla/websocket"
)

// EventSource delivers quiz events to in-process subscribers.
type EventSource interface {
	Subscribe(quizID string) (<-chan domain.Event, func())
}

// FeedHandler streams live quiz events (submissions, lifecycle changes) to
// the quiz owner over a websocket.
type FeedHandler struct {
	manager  *app.LifecycleManager
	source   EventSource
	upgrader websocket.Upgrader
}

func NewFeedHandler(manager *app.LifecycleManager, source EventSource) *FeedHandler {
	return &FeedHandler{
		manager: manager,
		source:  source,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// ServeFeed upgrades the request and forwards events until the client
// disconnects. Only the quiz owner may attach.
func (h *FeedHandler) ServeFeed(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerIdentity(r)
	if !ok {
		writeStatus(w, http.StatusUnauthorized, "missing identity headers")
		return
	}
	quizID := r.PathValue("id")
	quiz, err := h.manager.Get(r.Context(), caller.userID, quizID)
	if err != nil {
		writeError(w, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("feed upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	events, cancel := h.source.Subscribe(quiz.ID)
	defer cancel()

	// The reader goroutine exists to observe the client going away; the
	// feed is write-only otherwise.
	clientGone := make(chan struct{})
	go func() {
		defer close(clientGone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := conn.WriteJSON(event); err != nil {
				log.Printf("feed write error: %v", err)
				return
			}
		case <-clientGone:
			return
		}
	}
}
