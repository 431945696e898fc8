// Package publish forwards model events and evaluation results to a
// socket.io server, where presentation clients pick them up.
package publish

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/vk/featuregrid/internal/ctxlog"
	"github.com/vk/featuregrid/internal/feature"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// Event names emitted to the server.
const (
	ModelEvent  = "model_event"
	ReportEvent = "report"
)

// ErrClosed is returned when publishing on a closed publisher.
var ErrClosed = errors.New("publish: publisher closed")

// Recorder observes whether messages were queued or dropped.
type Recorder interface {
	ObservePublish(sent bool)
}

// ModelMessage is the payload of a ModelEvent.
type ModelMessage struct {
	Type     string   `json:"type"`
	Model    string   `json:"model"`
	Option   string   `json:"option,omitempty"`
	Previous *float64 `json:"previous,omitempty"`
	Current  *float64 `json:"current,omitempty"`
	Valid    *bool    `json:"valid,omitempty"`
}

// NewModelMessage converts a model event.
func NewModelMessage(ev feature.Event) ModelMessage {
	msg := ModelMessage{Type: ev.Type.String(), Model: ev.ModelID}
	switch ev.Type {
	case feature.ValueChanged:
		prev, cur := ev.Previous, ev.Current
		msg.Option = ev.Option
		msg.Previous = &prev
		msg.Current = &cur
	case feature.Validated:
		valid := ev.Valid
		msg.Valid = &valid
	}
	return msg
}

type message struct {
	event string
	data  any
}

// Option configures a Publisher.
type Option func(*options)

type options struct {
	namespace          string
	queueSize          int
	connectTimeout     time.Duration
	insecureSkipVerify bool
	recorder           Recorder
}

// WithNamespace connects to a socket.io namespace other than "/".
func WithNamespace(ns string) Option { return func(o *options) { o.namespace = ns } }

// WithQueueSize bounds the number of pending messages. Further messages are
// dropped.
func WithQueueSize(n int) Option { return func(o *options) { o.queueSize = n } }

// WithConnectTimeout bounds the initial connection.
func WithConnectTimeout(d time.Duration) Option { return func(o *options) { o.connectTimeout = d } }

// WithInsecureSkipVerify disables TLS certificate verification.
func WithInsecureSkipVerify() Option { return func(o *options) { o.insecureSkipVerify = true } }

// WithRecorder reports queued and dropped messages.
func WithRecorder(r Recorder) Option { return func(o *options) { o.recorder = r } }

// Publisher emits messages from a single goroutine, in the order they were
// queued. Publishing never blocks the caller.
type Publisher struct {
	client   *socket.Socket
	logger   *slog.Logger
	recorder Recorder

	mu     sync.Mutex
	closed bool
	queue  chan message
	done   chan struct{}
}

// Dial connects to the socket.io server at rawURL and starts the sender.
func Dial(ctx context.Context, rawURL string, opts ...Option) (*Publisher, error) {
	o := options{namespace: "/", queueSize: 256, connectTimeout: 15 * time.Second}
	for _, opt := range opts {
		opt(&o)
	}
	logger := ctxlog.FromContext(ctx).With("component", "publish", "url", rawURL)

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, fmt.Errorf("failed to parse URL: %q has no scheme or host", rawURL)
	}

	sockOpts := socket.DefaultOptions()
	if parsedURL.Path != "" && parsedURL.Path != "/" {
		sockOpts.SetPath(parsedURL.Path)
	}
	if o.insecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		sockOpts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	sockOpts.SetTransports(types.NewSet(transports.WebSocket))

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	manager := socket.NewManager(baseURL, sockOpts)
	io := manager.Socket(o.namespace, sockOpts)

	connectChan := make(chan error, 1)
	io.Once(types.EventName("connect"), func(...any) {
		logger.Info("Publisher connected", "sid", io.Id())
		connectChan <- nil
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		err := errors.New("connect_error")
		if len(errs) > 0 {
			if e, ok := errs[0].(error); ok {
				err = e
			}
		}
		connectChan <- err
	})

	logger.Debug("Initiating connection...")
	io.Connect()

	select {
	case err := <-connectChan:
		if err != nil {
			io.Disconnect()
			return nil, fmt.Errorf("socket.io connection failed: %w", err)
		}
	case <-ctx.Done():
		io.Disconnect()
		return nil, fmt.Errorf("context cancelled while waiting for socket.io connection: %w", ctx.Err())
	case <-time.After(o.connectTimeout):
		io.Disconnect()
		return nil, fmt.Errorf("timed out after %s waiting for socket.io connection", o.connectTimeout)
	}

	p := &Publisher{
		client:   io,
		logger:   logger,
		recorder: o.recorder,
		queue:    make(chan message, o.queueSize),
		done:     make(chan struct{}),
	}
	go p.run()
	return p, nil
}

func (p *Publisher) run() {
	defer close(p.done)
	for msg := range p.queue {
		if err := p.client.Emit(msg.event, msg.data); err != nil {
			p.logger.Warn("Failed to emit event", "event", msg.event, "error", err)
		}
	}
}

// Publish queues data for emission under event. It reports false when the
// message was dropped because the queue is full or the publisher is closed.
func (p *Publisher) Publish(event string, data any) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	sent := false
	if !p.closed {
		select {
		case p.queue <- message{event: event, data: data}:
			sent = true
		default:
			p.logger.Warn("Publish queue full, dropping event", "event", event)
		}
	}
	if p.recorder != nil {
		p.recorder.ObservePublish(sent)
	}
	return sent
}

// Attach forwards every event of m as a ModelEvent until the returned
// function is called.
func (p *Publisher) Attach(m *feature.Model) (detach func()) {
	return m.Subscribe(func(ev feature.Event) {
		p.Publish(ModelEvent, NewModelMessage(ev))
	})
}

// Close stops accepting messages, waits until the queued ones are emitted or
// ctx ends, and disconnects.
func (p *Publisher) Close(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	var err error
	select {
	case <-p.done:
	case <-ctx.Done():
		err = fmt.Errorf("publisher did not drain: %w", ctx.Err())
	}
	p.client.Disconnect()
	p.logger.Debug("Publisher closed")
	return err
}
