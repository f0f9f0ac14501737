package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/dukex/phasetrack/pkg/models"
)

// State is the connection status of a Subscriber.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateError        State = "error"
)

const (
	DefaultBaseDelay   = time.Second
	DefaultMaxDelay    = 30 * time.Second
	DefaultMaxAttempts = 5
)

var (
	ErrAlreadyStarted = errors.New("subscriber already started")

	// ErrStreamEnded is recorded when the server closes the stream.
	ErrStreamEnded = errors.New("event stream ended")
)

// Config locates the stream and shapes the reconnect schedule.
type Config struct {
	BaseURL     string // e.g. http://localhost:9091
	Area        string // server-side filter; empty receives every area
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	MaxAttempts int
	Client      *http.Client
}

func (c Config) withDefaults() Config {
	if c.BaseDelay <= 0 {
		c.BaseDelay = DefaultBaseDelay
	}

	if c.MaxDelay <= 0 {
		c.MaxDelay = DefaultMaxDelay
	}

	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}

	if c.Client == nil {
		// no timeout: the response body stays open for the life of the stream
		c.Client = &http.Client{}
	}

	return c
}

// EventsURL is the stream endpoint including the area filter.
func (c Config) EventsURL() string {
	u := strings.TrimSuffix(c.BaseURL, "/") + "/events"
	if c.Area != "" {
		u += "?area=" + url.QueryEscape(c.Area)
	}

	return u
}

// WaitFunc sleeps for d or until ctx is done.
type WaitFunc func(ctx context.Context, d time.Duration) error

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Option customizes a Subscriber.
type Option func(*Subscriber)

// WithEventHandler receives every event except the connection confirmation.
func WithEventHandler(fn func(models.ChangeEvent)) Option {
	return func(s *Subscriber) {
		s.onEvent = fn
	}
}

// OnReconnect runs after every successful connection that follows a lost or failed one,
// so callers can re-fetch state they may have missed.
func OnReconnect(fn func()) Option {
	return func(s *Subscriber) {
		s.onReconnect = fn
	}
}

// OnStateChange observes every state transition.
func OnStateChange(fn func(State)) Option {
	return func(s *Subscriber) {
		s.onStateChange = fn
	}
}

// WithWait replaces the sleep between reconnect attempts.
func WithWait(wait WaitFunc) Option {
	return func(s *Subscriber) {
		s.wait = wait
	}
}

// Subscriber keeps a change event stream open, reconnecting with exponential
// backoff. After MaxAttempts failed reconnects it stays in StateError until Retry.
type Subscriber struct {
	config Config
	logger *slog.Logger

	onEvent       func(models.ChangeEvent)
	onReconnect   func()
	onStateChange func(State)
	wait          WaitFunc

	mu        sync.Mutex
	state     State
	attempts  int
	lastErr   error
	connected bool // at least one connection succeeded or failed before
	exhausted bool
	cancel    context.CancelFunc
	done      chan struct{}
	retry     chan struct{}
}

func NewSubscriber(config Config, logger *slog.Logger, opts ...Option) *Subscriber {
	s := &Subscriber{
		config: config.withDefaults(),
		logger: logger.With("module", "stream_subscriber"),
		wait:   sleep,
		state:  StateDisconnected,
		retry:  make(chan struct{}, 1),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start runs the connect loop in the background until Stop or ctx cancellation.
func (s *Subscriber) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done != nil {
		return ErrAlreadyStarted
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go s.run(ctx, s.done)

	return nil
}

// Stop cancels the retry loop and the open stream and waits for them to finish.
func (s *Subscriber) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	if cancel == nil {
		return
	}

	cancel()
	<-done
}

// Retry leaves the persistent error state and starts a fresh attempt schedule.
// It is a no-op in any other state.
func (s *Subscriber) Retry() {
	s.mu.Lock()
	exhausted := s.exhausted
	s.mu.Unlock()

	if !exhausted {
		return
	}

	select {
	case s.retry <- struct{}{}:
	default:
	}
}

func (s *Subscriber) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

// Attempts is the number of reconnects made since the last successful connection.
func (s *Subscriber) Attempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.attempts
}

// Err is the last transport error.
func (s *Subscriber) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.lastErr
}

func (s *Subscriber) newBackOff() backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = s.config.BaseDelay
	bo.Multiplier = 2
	bo.MaxInterval = s.config.MaxDelay
	bo.RandomizationFactor = 0
	bo.MaxElapsedTime = 0
	bo.Reset()

	return backoff.WithMaxRetries(bo, uint64(s.config.MaxAttempts))
}

func (s *Subscriber) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer s.setState(StateDisconnected)

	bo := s.newBackOff()

	for {
		s.setState(StateConnecting)

		err := s.connect(ctx, bo)
		if ctx.Err() != nil {
			return
		}

		s.fail(err)

		delay := bo.NextBackOff()
		if delay == backoff.Stop {
			s.mu.Lock()
			s.exhausted = true
			s.mu.Unlock()

			s.logger.WarnContext(ctx, "Giving up reconnecting until retried", "attempts", s.Attempts(), "error", err)

			select {
			case <-ctx.Done():
				return
			case <-s.retry:
				bo.Reset()
				s.resetAttempts()

				continue
			}
		}

		s.mu.Lock()
		s.attempts++
		attempt := s.attempts
		s.mu.Unlock()

		s.logger.InfoContext(ctx, "Reconnecting", "attempt", attempt, "delay", delay, "error", err)

		if s.wait(ctx, delay) != nil {
			return
		}
	}
}

// connect opens the stream and pumps events until it fails.
func (s *Subscriber) connect(ctx context.Context, bo backoff.BackOff) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.config.EventsURL(), nil)
	if err != nil {
		return err
	}

	req.Header.Set("Accept", "text/event-stream")

	resp, err := s.config.Client.Do(req)
	if err != nil {
		return err
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, req.URL)
	}

	reader := NewReader(resp.Body)

	event, err := reader.Next()
	if err != nil {
		return err
	}

	if event.Kind != models.ChangeConnected {
		return fmt.Errorf("expected connection confirmation, got %q", event.Type)
	}

	s.established(bo)

	for {
		event, err := reader.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return ErrStreamEnded
			}

			return err
		}

		if s.onEvent != nil {
			s.onEvent(event)
		}
	}
}

func (s *Subscriber) established(bo backoff.BackOff) {
	bo.Reset()

	s.mu.Lock()
	reconnect := s.connected
	s.connected = true
	s.attempts = 0
	s.lastErr = nil
	s.mu.Unlock()

	s.setState(StateConnected)

	if reconnect && s.onReconnect != nil {
		s.onReconnect()
	}
}

func (s *Subscriber) fail(err error) {
	s.mu.Lock()
	s.lastErr = err
	s.connected = true
	s.mu.Unlock()

	s.setState(StateError)
}

func (s *Subscriber) resetAttempts() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.attempts = 0
	s.exhausted = false
}

func (s *Subscriber) setState(state State) {
	s.mu.Lock()
	changed := s.state != state
	s.state = state
	s.mu.Unlock()

	if changed && s.onStateChange != nil {
		s.onStateChange(state)
	}
}
