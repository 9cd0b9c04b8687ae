package httpclient

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"

	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// ErrCircuitOpen is returned while an open breaker rejects calls.
var ErrCircuitOpen = gobreaker.ErrOpenState

type BreakerConfig struct {
	// Name labels the breaker in logs and metrics.
	Name string
	// MaxRequests is how many probe calls a half-open breaker lets through.
	MaxRequests uint32
	// Interval resets the closed-state counters; zero never resets them.
	Interval time.Duration
	// Timeout is how long the breaker stays open before probing.
	Timeout time.Duration
	// The breaker opens once MinRequests calls were seen and at least
	// FailureRatio of them failed.
	FailureRatio float64
	MinRequests  uint32
}

func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:         name,
		MaxRequests:  1,
		Interval:     time.Minute,
		Timeout:      30 * time.Second,
		FailureRatio: 0.5,
		MinRequests:  5,
	}
}

func (c BreakerConfig) readyToTrip(counts gobreaker.Counts) bool {
	if counts.Requests < c.MinRequests || counts.Requests == 0 {
		return false
	}
	return float64(counts.TotalFailures)/float64(counts.Requests) >= c.FailureRatio
}

// IsFailure reports whether err says the dependency is unhealthy. Caller
// cancellation and AppErrors below 500 (not found, bad input) do not count.
func IsFailure(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.Status >= http.StatusInternalServerError
	}
	return true
}

// Breaker guards calls that produce a T, typically a decoded response.
type Breaker[T any] struct {
	name     string
	cb       *gobreaker.CircuitBreaker[T]
	logger   *slog.Logger
	fallback func(context.Context, error) (T, error)
}

func NewBreaker[T any](cfg BreakerConfig, logger *slog.Logger) *Breaker[T] {
	breakerState.WithLabelValues(cfg.Name).Set(stateGauge[gobreaker.StateClosed])

	return &Breaker[T]{
		name:   cfg.Name,
		logger: logger,
		cb: gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
			Name:         cfg.Name,
			MaxRequests:  cfg.MaxRequests,
			Interval:     cfg.Interval,
			Timeout:      cfg.Timeout,
			ReadyToTrip:  cfg.readyToTrip,
			IsSuccessful: func(err error) bool { return !IsFailure(err) },
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn("circuit breaker state change",
					slog.String("breaker", name),
					slog.String("from", from.String()),
					slog.String("to", to.String()),
				)
				breakerState.WithLabelValues(name).Set(stateGauge[to])
			},
		}),
	}
}

// WithFallback returns a copy that answers with fn instead of ErrCircuitOpen
// or gobreaker.ErrTooManyRequests while calls are being rejected.
func (b *Breaker[T]) WithFallback(fn func(ctx context.Context, err error) (T, error)) *Breaker[T] {
	cpy := *b
	cpy.fallback = fn
	return &cpy
}

// Execute runs fn unless the breaker is rejecting calls.
func (b *Breaker[T]) Execute(ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	out, err := b.cb.Execute(func() (T, error) { return fn(ctx) })

	rejected := errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
	switch {
	case rejected:
		breakerCalls.WithLabelValues(b.name, "rejected").Inc()
	case IsFailure(err):
		breakerCalls.WithLabelValues(b.name, "failure").Inc()
	default:
		breakerCalls.WithLabelValues(b.name, "success").Inc()
	}

	if rejected && b.fallback != nil {
		breakerFallbacks.WithLabelValues(b.name).Inc()
		b.logger.WarnContext(ctx, "circuit breaker rejecting calls, using fallback",
			slog.String("breaker", b.name),
			slog.String("state", b.cb.State().String()),
		)
		return b.fallback(ctx, err)
	}
	return out, err
}

func (b *Breaker[T]) State() gobreaker.State {
	return b.cb.State()
}
