// Package router dispatches messages pulled from an mqttq.Client to
// handlers selected by topic filter and message attributes.
package router

import (
	"context"
	"regexp"
	"slices"
	"sync"

	"github.com/vitalvas/mqttq"
)

// Handler processes an MQTT message.
type Handler func(msg *mqttq.Message)

// Condition defines filtering criteria for message routing.
type Condition struct {
	topicFilter  *string
	qos          *byte
	retain       *bool
	topicRegexp  *regexp.Regexp
	payloadMatch *regexp.Regexp
}

// ConditionOption configures a Condition.
type ConditionOption func(*Condition)

// WithTopic sets the topic filter for message matching.
// Supports MQTT wildcards: + (single level) and # (multi level).
func WithTopic(filter string) ConditionOption {
	return func(c *Condition) {
		c.topicFilter = &filter
	}
}

// WithQoS filters messages by QoS level.
func WithQoS(qos byte) ConditionOption {
	return func(c *Condition) {
		c.qos = &qos
	}
}

// WithRetain filters messages by the retain flag, e.g. to handle the
// retained snapshot separately from live updates.
func WithRetain(retain bool) ConditionOption {
	return func(c *Condition) {
		c.retain = &retain
	}
}

// WithTopicRegexp filters messages by a topic regexp pattern.
func WithTopicRegexp(pattern *regexp.Regexp) ConditionOption {
	return func(c *Condition) {
		c.topicRegexp = pattern
	}
}

// WithPayload filters messages by a payload regexp pattern.
func WithPayload(pattern *regexp.Regexp) ConditionOption {
	return func(c *Condition) {
		c.payloadMatch = pattern
	}
}

// registration holds a handler with its conditions.
type registration struct {
	handler   Handler
	condition Condition
}

// Router dispatches messages to handlers based on conditions.
type Router struct {
	mu       sync.RWMutex
	handlers []registration
}

// New creates a new Router.
func New() *Router {
	return &Router{
		handlers: make([]registration, 0),
	}
}

// Handle registers a handler with optional conditions.
// A handler without conditions receives every message.
//
// Examples:
//
//	r.Handle(handler, WithTopic("sensors/#"))
//	r.Handle(handler, WithTopic("sensors/#"), WithRetain(true))
//	r.Handle(handler, WithTopicRegexp(regexp.MustCompile(`/temp$`)))
func (r *Router) Handle(handler Handler, opts ...ConditionOption) {
	var cond Condition
	for _, opt := range opts {
		opt(&cond)
	}

	r.mu.Lock()
	r.handlers = append(r.handlers, registration{
		handler:   handler,
		condition: cond,
	})
	r.mu.Unlock()
}

// matches checks if a condition matches the message.
func (c *Condition) matches(msg *mqttq.Message) bool {
	if c.topicFilter != nil && !mqttq.TopicMatch(*c.topicFilter, msg.Topic) {
		return false
	}
	if c.qos != nil && *c.qos != msg.QoS {
		return false
	}
	if c.retain != nil && *c.retain != msg.Retain {
		return false
	}
	if c.topicRegexp != nil && !c.topicRegexp.MatchString(msg.Topic) {
		return false
	}
	if c.payloadMatch != nil && !c.payloadMatch.Match(msg.Payload) {
		return false
	}
	return true
}

// Route dispatches a message to all matching handlers in registration
// order. It reports whether any handler matched.
func (r *Router) Route(msg *mqttq.Message) bool {
	if msg == nil {
		return false
	}

	r.mu.RLock()
	var matched []Handler
	for _, reg := range r.handlers {
		if reg.condition.matches(msg) {
			matched = append(matched, reg.handler)
		}
	}
	r.mu.RUnlock()

	for _, handler := range matched {
		handler(msg)
	}
	return len(matched) > 0
}

// Filters returns the unique registered topic filters, sorted. Pass them
// to Client.Subscribe.
func (r *Router) Filters() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, reg := range r.handlers {
		if reg.condition.topicFilter != nil {
			seen[*reg.condition.topicFilter] = struct{}{}
		}
	}

	filters := make([]string, 0, len(seen))
	for filter := range seen {
		filters = append(filters, filter)
	}
	slices.Sort(filters)
	return filters
}

// Len returns the number of registered handlers.
func (r *Router) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handlers)
}

// Clear removes all handlers.
func (r *Router) Clear() {
	r.mu.Lock()
	r.handlers = r.handlers[:0]
	r.mu.Unlock()
}

// Source is the part of mqttq.Client the router pulls from.
type Source interface {
	GetContext(ctx context.Context) (mqttq.Message, error)
	Errors() <-chan error
}

// Serve pulls messages from src and routes them until ctx is done or src
// reports a connection failure. It returns ctx.Err() or the failure.
func (r *Router) Serve(ctx context.Context, src Source) error {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	go func() {
		select {
		case err := <-src.Errors():
			cancel(err)
		case <-ctx.Done():
		}
	}()

	for {
		msg, err := src.GetContext(ctx)
		if err != nil {
			return context.Cause(ctx)
		}
		r.Route(&msg)
	}
}
