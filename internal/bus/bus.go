// Package bus carries real-time events between the live-score syncer
// and the browser relays over an embedded NATS server. Publishing is
// fire and forget: events are UI refresh hints, not durable messages.
package bus

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/fbocquet/pronos/internal/domain"
	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
)

// Subjects
const (
	SubjectAll  = "events.>"
	SubjectSync = "events.sync"
)

// GameSubject returns the subject for a single game's events
func GameSubject(gameID int64) string {
	return fmt.Sprintf("events.game.%d", gameID)
}

// Bus wraps an in-process NATS server and a connection to it
type Bus struct {
	srv  *server.Server
	conn *nats.Conn
}

// New starts an embedded NATS server that only accepts in-process
// connections and connects to it
func New() (*Bus, error) {
	srv, err := server.NewServer(&server.Options{
		ServerName: "pronos-bus",
		DontListen: true,
	})
	if err != nil {
		return nil, fmt.Errorf("creating bus server: %w", err)
	}

	go srv.Start()
	if !srv.ReadyForConnections(5 * time.Second) {
		srv.Shutdown()
		return nil, fmt.Errorf("bus server not ready")
	}

	conn, err := nats.Connect("", nats.InProcessServer(srv))
	if err != nil {
		srv.Shutdown()
		return nil, fmt.Errorf("connecting to bus: %w", err)
	}

	return &Bus{srv: srv, conn: conn}, nil
}

// Publish sends an event on the subject for its game (or the sync
// subject when it has none). Errors are logged, not returned: a missed
// refresh hint is acceptable.
func (b *Bus) Publish(event domain.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("Error marshaling event: %v", err)
		return
	}

	subject := SubjectSync
	if event.GameID != 0 {
		subject = GameSubject(event.GameID)
	}
	if err := b.conn.Publish(subject, data); err != nil {
		log.Printf("Error publishing event: %v", err)
	}
}

// Subscribe delivers every event payload on subjects matching pattern
// to handler until the returned subscription is unsubscribed
func (b *Bus) Subscribe(pattern string, handler func(data []byte)) (*nats.Subscription, error) {
	return b.conn.Subscribe(pattern, func(msg *nats.Msg) {
		handler(msg.Data)
	})
}

// Close drains the connection and stops the embedded server
func (b *Bus) Close() {
	if b.conn != nil {
		b.conn.Close()
	}
	if b.srv != nil {
		b.srv.Shutdown()
	}
}
