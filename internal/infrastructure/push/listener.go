package push

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"weddinglink/internal/domain/entity"
)

// Ingestor is the slice of the conversation store the listener needs.
type Ingestor interface {
	IngestIncoming(message *entity.Message)
}

// Listener keeps a websocket open to the messaging backend's event stream
// and feeds incoming counterpart messages into the store. The transport
// is deliberately dumb: the store treats push as an abstract notification
// and owns all the consistency rules.
type Listener struct {
	url      string
	token    string
	ingestor Ingestor
}

type pushEvent struct {
	Type    string          `json:"type"`
	Message *entity.Message `json:"message,omitempty"`
}

func NewListener(url, token string, ingestor Ingestor) *Listener {
	return &Listener{
		url:      url,
		token:    token,
		ingestor: ingestor,
	}
}

// Start runs the dial/read loop until the context is canceled,
// reconnecting with backoff after any failure.
func (l *Listener) Start(ctx context.Context) {
	go func() {
		backoff := time.Second
		for {
			if ctx.Err() != nil {
				return
			}

			if err := l.readLoop(ctx); err != nil {
				log.Printf("Push listener disconnected: %v (reconnecting in %v)", err, backoff)
			}

			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
		}
	}()
}

func (l *Listener) readLoop(ctx context.Context) error {
	header := http.Header{}
	if l.token != "" {
		header.Set("Authorization", "Bearer "+l.token)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, l.url, header)
	if err != nil {
		return err
	}
	defer conn.Close()

	// Close the socket when the context dies so ReadMessage unblocks.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	log.Printf("Push listener connected to %s", l.url)

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var event pushEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			log.Printf("Push listener: skipping undecodable event: %v", err)
			continue
		}

		switch event.Type {
		case "message.new":
			if event.Message != nil {
				l.ingestor.IngestIncoming(event.Message)
			}
		default:
			// Unknown event types are ignored; the store can always
			// re-sync with a full load.
		}
	}
}
