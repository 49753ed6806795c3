// Package events publishes record mutation notifications to NATS so
// downstream consumers can react to API writes without polling.
package events

import (
	"cmp"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// Op is the kind of mutation an event reports.
type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Event is the wire payload of one mutation notification.
type Event struct {
	Entity string    `json:"entity"`
	Op     Op        `json:"op"`
	ID     int64     `json:"id"`
	At     time.Time `json:"at"`
}

// Config holds NATS connection settings.
type Config struct {
	Servers       []string `mapstructure:"servers"`
	SubjectPrefix string   `mapstructure:"subjectPrefix"`
	Username      string   `mapstructure:"username"`
	Password      string   `mapstructure:"password"`
}

// Publisher sends mutation events to NATS. A nil Publisher is valid and
// publishes nothing, so callers need no enabled checks.
type Publisher struct {
	nc     *nats.Conn
	prefix string
}

// Connect establishes the NATS connection, trying each configured
// server until one accepts.
func Connect(cfg Config) (*Publisher, error) {
	if len(cfg.Servers) == 0 {
		cfg.Servers = []string{nats.DefaultURL}
	}
	prefix := cmp.Or(cfg.SubjectPrefix, "restq")

	var opts []nats.Option
	if cfg.Username != "" {
		opts = append(opts, nats.UserInfo(cfg.Username, cfg.Password))
	}

	var nc *nats.Conn
	var err error
	for _, server := range cfg.Servers {
		nc, err = nats.Connect(server, opts...)
		if err == nil {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("connect to NATS server: %w", err)
	}

	return &Publisher{nc: nc, prefix: prefix}, nil
}

// Publish sends one event on "<prefix>.<entity>.<op>".
func (p *Publisher) Publish(entity string, op Op, id int64) error {
	if p == nil || p.nc == nil {
		return nil
	}
	event := Event{Entity: entity, Op: op, ID: id, At: time.Now().UTC()}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	subject := fmt.Sprintf("%s.%s.%s", p.prefix, entity, op)
	if err := p.nc.Publish(subject, data); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	if p == nil || p.nc == nil {
		return
	}
	p.nc.Close()
}
