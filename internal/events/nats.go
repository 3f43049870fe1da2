package events

import (
	"context"
	"encoding/json"
	"log"

	"github.com/nats-io/nats.go"
)

// NATSPublisher publishes events on events.<type> subjects.
type NATSPublisher struct {
	conn *nats.Conn
}

func NewNATSPublisher(url, clientName string) (*NATSPublisher, error) {
	conn, err := nats.Connect(url,
		nats.Name(clientName),
		nats.MaxReconnects(10),
		nats.DisconnectErrHandler(func(c *nats.Conn, err error) {
			log.Printf("[Events] NATS disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Printf("[Events] NATS reconnected to %s", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, err
	}
	return &NATSPublisher{conn: conn}, nil
}

func (p *NATSPublisher) Publish(ctx context.Context, event *Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.conn.Publish("events."+event.Type, data)
}

func (p *NATSPublisher) Close() {
	p.conn.Close()
}

// LogPublisher is the fallback when no NATS URL is configured; state changes
// are still visible in the server log.
type LogPublisher struct{}

func (LogPublisher) Publish(ctx context.Context, event *Event) error {
	log.Printf("[Events] %s %s/%s %s", event.Type, event.AggregateType, event.AggregateID, string(event.Data))
	return nil
}

func (LogPublisher) Close() {}
