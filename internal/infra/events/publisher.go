// Package events publishes scan progress snapshots over NATS.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"

	"github.com/bryanwahyu/geoscan/internal/domain/scans"
)

const DefaultSubject = "geoscan.scans"

// headerCarrier adapts nats.Msg headers for OTel TextMapCarrier.
type headerCarrier nats.Msg

func (c *headerCarrier) Get(key string) string {
	if c.Header == nil {
		return ""
	}
	return c.Header.Get(key)
}

func (c *headerCarrier) Set(key, val string) {
	if c.Header == nil {
		c.Header = make(nats.Header)
	}
	c.Header.Set(key, val)
}

func (c *headerCarrier) Keys() []string {
	if c.Header == nil {
		return nil
	}
	keys := make([]string, 0, len(c.Header))
	for k := range c.Header {
		keys = append(keys, k)
	}
	return keys
}

// Publisher implements scans.ProgressPublisher on subject "<prefix>.<scanId>".
type Publisher struct {
	nc     *nats.Conn
	prefix string
}

// Connect dials url and returns a publisher that owns the connection.
func Connect(url, subject string) (*Publisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("geoscan"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect %s: %w", url, err)
	}
	return NewPublisher(nc, subject), nil
}

func NewPublisher(nc *nats.Conn, subject string) *Publisher {
	if subject == "" {
		subject = DefaultSubject
	}
	return &Publisher{nc: nc, prefix: strings.TrimSuffix(subject, ".")}
}

// Subject is where snapshots of one scan go.
func (p *Publisher) Subject(id scans.ScanID) string {
	return p.prefix + "." + string(id)
}

func (p *Publisher) message(ctx context.Context, snap scans.Snapshot) (*nats.Msg, error) {
	data, err := json.Marshal(snap)
	if err != nil {
		return nil, err
	}
	msg := &nats.Msg{Subject: p.Subject(snap.ScanID), Data: data}
	otel.GetTextMapPropagator().Inject(ctx, (*headerCarrier)(msg))
	return msg, nil
}

// Publish trace context from ctx travels in the message headers.
func (p *Publisher) Publish(ctx context.Context, snap scans.Snapshot) error {
	msg, err := p.message(ctx, snap)
	if err != nil {
		return err
	}
	return p.nc.PublishMsg(msg)
}

// Check reports whether the connection is usable, for /health.
func (p *Publisher) Check(context.Context) error {
	if p.nc == nil {
		return fmt.Errorf("nats: not connected")
	}
	if st := p.nc.Status(); st != nats.CONNECTED {
		return fmt.Errorf("nats: %s", st)
	}
	return nil
}

// Close flushes pending messages and closes the connection.
func (p *Publisher) Close() {
	if p.nc == nil {
		return
	}
	_ = p.nc.Drain()
}

// Noop drops every snapshot. Used when NATS is not configured.
type Noop struct{}

func (Noop) Publish(context.Context, scans.Snapshot) error { return nil }
