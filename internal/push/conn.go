package push

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	ws "github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"golang.org/x/time/rate"

	"github.com/nhle/notification-inbox/internal/gateway"
)

const (
	eventBufferSize = 64
	readLimit       = 1 << 20
)

// ConnState is the lifecycle state of a push subscription.
type ConnState int32

const (
	StateConnecting ConnState = iota
	StateConnected
	StateDisconnected
	StateClosed
)

func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "live"
	case StateDisconnected:
		return "offline"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Options configures a push subscription.
type Options struct {
	URL                string
	PingInterval       time.Duration
	ReconnectPerMinute int
	Logger             *slog.Logger
}

// Subscription is a live push connection for one principal. It dials the
// server, registers the principal, decodes incoming frames into Events and
// reconnects when the connection drops. Events is closed exactly once, after
// Close or when the parent context ends.
type Subscription struct {
	opts        Options
	principalID string
	tokens      gateway.TokenSource
	limiter     *rate.Limiter
	logger      *slog.Logger

	events chan Event
	state  atomic.Int32
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Subscribe starts a subscription in the background.
func Subscribe(ctx context.Context, principalID string, tokens gateway.TokenSource, opts Options) *Subscription {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.ReconnectPerMinute < 1 {
		opts.ReconnectPerMinute = 6
	}

	ctx, cancel := context.WithCancel(ctx)
	s := &Subscription{
		opts:        opts,
		principalID: principalID,
		tokens:      tokens,
		limiter:     rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.ReconnectPerMinute)), 1),
		logger:      opts.Logger.With("component", "push", "principal", principalID),
		events:      make(chan Event, eventBufferSize),
		cancel:      cancel,
		done:        make(chan struct{}),
	}
	go s.run(ctx)
	return s
}

// Events returns the decoded event stream.
func (s *Subscription) Events() <-chan Event {
	return s.events
}

// State returns the current connection state.
func (s *Subscription) State() ConnState {
	return ConnState(s.state.Load())
}

// Close stops the subscription and waits for the connection to be released.
func (s *Subscription) Close() {
	s.once.Do(s.cancel)
	<-s.done
}

func (s *Subscription) setState(st ConnState) {
	s.state.Store(int32(st))
}

func (s *Subscription) run(ctx context.Context) {
	defer close(s.done)
	defer close(s.events)
	defer s.setState(StateClosed)

	for {
		if err := s.limiter.Wait(ctx); err != nil {
			return
		}
		s.setState(StateConnecting)
		err := s.session(ctx)
		if ctx.Err() != nil {
			return
		}
		s.setState(StateDisconnected)
		s.logger.Warn("push connection lost", "error", err)
	}
}

// session runs one connection until it fails or ctx ends.
func (s *Subscription) session(ctx context.Context) error {
	token, err := s.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("obtaining push token: %w", err)
	}

	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}
	conn, _, err := ws.Dial(ctx, s.opts.URL, &ws.DialOptions{HTTPHeader: header})
	if err != nil {
		return fmt.Errorf("dialing %s: %w", s.opts.URL, err)
	}
	defer conn.CloseNow()
	conn.SetReadLimit(readLimit)

	if err := wsjson.Write(ctx, conn, registerFrame(s.principalID)); err != nil {
		return fmt.Errorf("registering principal: %w", err)
	}
	s.setState(StateConnected)
	s.logger.Info("push connected")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if s.opts.PingInterval > 0 {
		go s.pingLoop(ctx, conn)
	}

	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				conn.Close(ws.StatusNormalClosure, "")
			}
			return err
		}
		if typ != ws.MessageText {
			continue
		}

		ev, err := DecodeFrame(data)
		if err != nil {
			s.logger.Debug("ignoring push frame", "error", err)
			continue
		}

		select {
		case s.events <- ev:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *Subscription) pingLoop(ctx context.Context, conn *ws.Conn) {
	ticker := time.NewTicker(s.opts.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := conn.Ping(ctx); err != nil {
				s.logger.Debug("push ping failed", "error", err)
				conn.CloseNow()
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
