package events

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
)

// natsHeaderCarrier adapts nats.Msg headers for OTel TextMapCarrier.
type natsHeaderCarrier nats.Msg

func (c *natsHeaderCarrier) Get(key string) string {
	if c.Header == nil {
		return ""
	}
	return c.Header.Get(key)
}

func (c *natsHeaderCarrier) Set(key, val string) {
	if c.Header == nil {
		c.Header = make(nats.Header)
	}
	c.Header.Set(key, val)
}

func (c *natsHeaderCarrier) Keys() []string {
	if c.Header == nil {
		return nil
	}
	keys := make([]string, 0, len(c.Header))
	for k := range c.Header {
		keys = append(keys, k)
	}
	return keys
}

// NATSNotifier publishes events to "<prefix>.<topic>" for export and email
// collaborators. Topics outside Topics are skipped.
type NATSNotifier struct {
	Conn          *nats.Conn
	SubjectPrefix string
	Topics        []string
}

// Subject returns the subject an event topic is published on.
func (n NATSNotifier) Subject(topic string) string {
	prefix := strings.Trim(strings.TrimSpace(n.SubjectPrefix), ".")
	if prefix == "" {
		return topic
	}
	return prefix + "." + topic
}

// Notify publishes the event as JSON with the trace context in the headers.
func (n NATSNotifier) Notify(ctx context.Context, event Event) error {
	if n.Conn == nil {
		return errors.New("events: nats connection not configured")
	}
	if !n.wants(event.Topic) {
		return nil
	}
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	msg := &nats.Msg{
		Subject: n.Subject(event.Topic),
		Data:    data,
		Header:  nats.Header{},
	}
	msg.Header.Set(nats.MsgIdHdr, event.ID.String())
	otel.GetTextMapPropagator().Inject(ctx, (*natsHeaderCarrier)(msg))
	return n.Conn.PublishMsg(msg)
}

func (n NATSNotifier) wants(topic string) bool {
	if len(n.Topics) == 0 {
		return true
	}
	for _, t := range n.Topics {
		if t == topic {
			return true
		}
	}
	return false
}
