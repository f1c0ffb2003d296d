package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

// Tenant event stream over WebSocket. Protocol:
//   client: connection_init, subscribe {types:[...]}, complete, ping
//   server: connection_ack, next {event}, complete, pong, ping

var upgrader = websocket.Upgrader{CheckOrigin: func(_ *http.Request) bool { return true }}

type wsMessage struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type subscribePayload struct {
	Types []string `json:"types"`
}

// EventsWSHandler handles /v1/events/ws
func (s *Server) EventsWSHandler(w http.ResponseWriter, r *http.Request) {
	pr := s.getPrincipal(r)
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer func() { _ = conn.Close() }()

	var wmu sync.Mutex
	write := func(v any) error {
		wmu.Lock()
		defer wmu.Unlock()
		_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		return conn.WriteJSON(v)
	}

	subs := map[string]chan SSEEvent{}
	done := make(chan struct{})
	defer close(done)

	conn.SetReadLimit(1 << 16)
	_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error { _ = conn.SetReadDeadline(time.Now().Add(60 * time.Second)); return nil })

	for {
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		switch msg.Type {
		case "connection_init":
			_ = write(wsMessage{Type: "connection_ack"})
			go func() {
				ticker := time.NewTicker(20 * time.Second)
				defer ticker.Stop()
				for {
					select {
					case <-done:
						return
					case <-ticker.C:
						if err := write(wsMessage{Type: "ping"}); err != nil {
							return
						}
					}
				}
			}()
		case "ping":
			_ = write(wsMessage{Type: "pong"})
		case "subscribe":
			if msg.ID == "" {
				_ = write(wsMessage{Type: "error", Payload: []byte(`{"message":"id required"}`)})
				continue
			}
			if _, dup := subs[msg.ID]; dup {
				_ = write(wsMessage{Type: "error", ID: msg.ID, Payload: []byte(`{"message":"subscription id in use"}`)})
				continue
			}
			var pl subscribePayload
			if len(msg.Payload) > 0 {
				if err := json.Unmarshal(msg.Payload, &pl); err != nil {
					_ = write(wsMessage{Type: "error", ID: msg.ID, Payload: []byte(`{"message":"invalid payload"}`)})
					continue
				}
			}
			want := map[string]bool{}
			for _, t := range pl.Types {
				want[t] = true
			}
			ch := s.Broker.Subscribe(pr.Tenant)
			subs[msg.ID] = ch
			go func(id string, c chan SSEEvent) {
				for evt := range c {
					if len(want) > 0 && !want[evt.Type] {
						continue
					}
					payload, _ := json.Marshal(evt)
					if err := write(wsMessage{Type: "next", ID: id, Payload: payload}); err != nil {
						log.WithError(err).WithField("tenant", pr.Tenant).Debug("ws write failed")
						return
					}
				}
				_ = write(wsMessage{Type: "complete", ID: id})
			}(msg.ID, ch)
		case "complete":
			if ch, ok := subs[msg.ID]; ok {
				s.Broker.Unsubscribe(pr.Tenant, ch)
				delete(subs, msg.ID)
			}
		}
	}
	for id, ch := range subs {
		s.Broker.Unsubscribe(pr.Tenant, ch)
		delete(subs, id)
	}
}
