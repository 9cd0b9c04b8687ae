package database

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// Backoff controls startup retries against a database that may still be
// coming up. Delay doubles from Base on every attempt and is spread by
// Jitter (a fraction of the delay) in both directions.
type Backoff struct {
	Attempts int
	Base     time.Duration
	Jitter   float64
}

var DefaultBackoff = Backoff{Attempts: 3, Base: time.Second, Jitter: 0.25}

func (b Backoff) Delay(attempt int) time.Duration {
	d := b.Base << max(attempt, 0)
	spread := float64(d) * b.Jitter * (2*rand.Float64() - 1) // #nosec G404 -- jitter only
	return d + time.Duration(spread)
}

// Retry runs fn until it succeeds, fails with an error retryable rejects,
// or b.Attempts runs out.
func Retry(ctx context.Context, b Backoff, logger *slog.Logger, op string, retryable func(error) bool, fn func(context.Context) error) error {
	var err error
	for attempt := 0; attempt < b.Attempts; attempt++ {
		if err = fn(ctx); err == nil || !retryable(err) {
			return err
		}
		if attempt == b.Attempts-1 {
			break
		}

		wait := b.Delay(attempt)
		if logger != nil {
			logger.WarnContext(ctx, op+" failed, retrying",
				slog.Int("attempt", attempt+1),
				slog.Int("max_attempts", b.Attempts),
				slog.Duration("backoff", wait),
				slog.String("error", err.Error()),
			)
		}
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return fmt.Errorf("%s: gave up waiting to retry: %w", op, ctx.Err())
		case <-t.C:
		}
	}
	return fmt.Errorf("%s after %d attempts: %w", op, b.Attempts, err)
}

// Message fragments that mark a driver error as a connectivity problem
// when it carries no typed cause.
var transientFragments = []string{
	"connection refused",
	"connection reset",
	"broken pipe",
	"no such host",
	"i/o timeout",
	"dial tcp",
	"unexpected EOF",
	"server closed the connection unexpectedly",
	"could not connect",
	"the database system is starting up",
}

// IsTransient reports whether err is a connectivity failure worth retrying.
// Query errors such as syntax or constraint violations are not.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}

	var connErr *pgconn.ConnectError
	var netErr net.Error
	if errors.As(err, &connErr) || errors.As(err, &netErr) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// Class 08: connection exception. 57P03: cannot_connect_now.
		return strings.HasPrefix(pgErr.Code, "08") || pgErr.Code == "57P03"
	}

	msg := err.Error()
	for _, f := range transientFragments {
		if strings.Contains(msg, f) {
			return true
		}
	}
	return false
}

func always(error) bool { return true }
