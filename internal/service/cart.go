package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	apperrors "github.com/utafrali/storefront/pkg/errors"

	"github.com/utafrali/storefront/internal/cart"
	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/repository"
)

// MaxQuantityPerRequest bounds the quantity accepted by a single add or update.
const MaxQuantityPerRequest = 1000

// ProductLookup resolves a product for a cart add.
type ProductLookup interface {
	GetByID(ctx context.Context, id string) (*domain.Product, error)
}

// CartEvents publishes cart changes.
type CartEvents interface {
	PublishCartUpdated(ctx context.Context, sessionID string, items []domain.LineItem) error
	PublishCartCleared(ctx context.Context, sessionID string) error
}

// CartView is the read model of a cart returned to clients.
type CartView struct {
	Items     []domain.LineItem `json:"items"`
	ItemCount int               `json:"item_count"`
	Total     decimal.Decimal   `json:"total"`
	Currency  string            `json:"currency"`
}

// CartResult is a cart view plus the notifications raised by the call that
// produced it.
type CartResult struct {
	Cart          CartView            `json:"cart"`
	Notifications []cart.Notification `json:"notifications"`
}

func newCartView(m *cart.Manager) CartView {
	return CartView{
		Items:     m.Items(),
		ItemCount: m.ItemCount(),
		Total:     m.Total(),
		Currency:  domain.DefaultCurrency,
	}
}

// session is one browsing session's cart. mu serialises every use of manager.
type session struct {
	mu       sync.Mutex
	manager  *cart.Manager
	recorder *cart.Recorder
	evicted  bool

	// lastSeen is guarded by CartService.mu.
	lastSeen time.Time
}

// CartService keeps one cart.Manager per session in memory, rehydrating it
// from the snapshot repository on first use and after idle eviction.
type CartService struct {
	snapshots   repository.SnapshotRepository
	products    ProductLookup
	events      CartEvents
	logger      *slog.Logger
	idleTimeout time.Duration
	now         func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
}

// NewCartService creates a new cart service.
func NewCartService(
	snapshots repository.SnapshotRepository,
	products ProductLookup,
	events CartEvents,
	logger *slog.Logger,
	idleTimeout time.Duration,
) *CartService {
	return &CartService{
		snapshots:   snapshots,
		products:    products,
		events:      events,
		logger:      logger,
		idleTimeout: idleTimeout,
		now:         time.Now,
		sessions:    make(map[string]*session),
	}
}

// GetCart returns the session's cart. A session that is not in memory and
// has nothing persisted is answered with an empty cart without being
// registered, so reads alone never grow the session table.
func (s *CartService) GetCart(ctx context.Context, sessionID string) (*CartResult, error) {
	if err := requireSession(sessionID); err != nil {
		return nil, err
	}

	if !s.isActive(sessionID) {
		rec := &cart.Recorder{}
		m := s.newManager(ctx, sessionID, rec)
		if len(m.Items()) == 0 {
			return &CartResult{Cart: newCartView(m), Notifications: rec.Drain()}, nil
		}
	}
	return s.mutate(ctx, sessionID, func(context.Context, *cart.Manager) {})
}

// AddItem looks productID up in the catalog and adds quantity units of it.
func (s *CartService) AddItem(ctx context.Context, sessionID, productID string, quantity int) (*CartResult, error) {
	if productID == "" {
		return nil, apperrors.InvalidInput("product id is required")
	}
	if quantity > MaxQuantityPerRequest {
		return nil, apperrors.InvalidInput(fmt.Sprintf("quantity must not exceed %d", MaxQuantityPerRequest))
	}
	if err := requireSession(sessionID); err != nil {
		return nil, err
	}

	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("look up product %s: %w", productID, err)
	}

	return s.mutate(ctx, sessionID, func(ctx context.Context, m *cart.Manager) {
		m.AddItem(ctx, *product, quantity)
	})
}

// UpdateQuantity sets the quantity of a line; zero or less removes it.
func (s *CartService) UpdateQuantity(ctx context.Context, sessionID, productID string, quantity int) (*CartResult, error) {
	if quantity > MaxQuantityPerRequest {
		return nil, apperrors.InvalidInput(fmt.Sprintf("quantity must not exceed %d", MaxQuantityPerRequest))
	}
	return s.mutate(ctx, sessionID, func(ctx context.Context, m *cart.Manager) {
		m.UpdateQuantity(ctx, productID, quantity)
	})
}

// RemoveItem removes a line from the cart.
func (s *CartService) RemoveItem(ctx context.Context, sessionID, productID string) (*CartResult, error) {
	return s.mutate(ctx, sessionID, func(ctx context.Context, m *cart.Manager) {
		m.RemoveItem(ctx, productID)
	})
}

// ClearCart empties the cart.
func (s *CartService) ClearCart(ctx context.Context, sessionID string) (*CartResult, error) {
	return s.mutate(ctx, sessionID, func(ctx context.Context, m *cart.Manager) {
		m.ClearCart(ctx)
	})
}

// Consume hands the cart's items and total to fn while holding the session,
// then clears the cart if fn succeeds. A failing fn leaves the cart untouched.
func (s *CartService) Consume(ctx context.Context, sessionID string, fn func(items []domain.LineItem, total decimal.Decimal) error) (*CartResult, error) {
	var fnErr error
	result, err := s.mutate(ctx, sessionID, func(ctx context.Context, m *cart.Manager) {
		if fnErr = fn(m.Items(), m.Total()); fnErr == nil {
			m.ClearCart(ctx)
		}
	})
	if err != nil {
		return nil, err
	}
	if fnErr != nil {
		return nil, fnErr
	}
	return result, nil
}

// mutate runs op against the session's manager and reports what changed.
func (s *CartService) mutate(ctx context.Context, sessionID string, op func(context.Context, *cart.Manager)) (*CartResult, error) {
	if err := requireSession(sessionID); err != nil {
		return nil, err
	}

	sess := s.acquire(ctx, sessionID)
	before := sess.manager.Items()
	op(ctx, sess.manager)
	view := newCartView(sess.manager)
	notes := sess.recorder.Drain()
	sess.mu.Unlock()

	for _, n := range notes {
		cartNotificationsTotal.WithLabelValues(string(n.Severity)).Inc()
		s.logger.DebugContext(ctx, "cart notification",
			slog.String("severity", string(n.Severity)),
			slog.String("message", n.Message),
		)
	}

	if !sameItems(before, view.Items) {
		s.publishChange(ctx, sessionID, view.Items)
	}

	return &CartResult{Cart: view, Notifications: notes}, nil
}

// acquire returns the session with its mutex held, creating and rehydrating
// it when needed.
func (s *CartService) acquire(ctx context.Context, sessionID string) *session {
	for {
		s.mu.Lock()
		sess, ok := s.sessions[sessionID]
		if !ok {
			sess = &session{}
			s.sessions[sessionID] = sess
			cartSessionsActive.Inc()
		}
		sess.lastSeen = s.now()
		s.mu.Unlock()

		sess.mu.Lock()
		if sess.evicted {
			sess.mu.Unlock()
			continue
		}
		if sess.manager == nil {
			sess.recorder = &cart.Recorder{}
			sess.manager = s.newManager(ctx, sessionID, sess.recorder)
		}
		return sess
	}
}

func (s *CartService) isActive(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[sessionID]
	return ok
}

// newManager builds a manager for sessionID and loads its snapshot.
func (s *CartService) newManager(ctx context.Context, sessionID string, rec *cart.Recorder) *cart.Manager {
	store := cart.NewSnapshotStore(s.snapshots, repository.SnapshotKey(sessionID))
	m := cart.NewManager(store, rec, s.logger.With(slog.String("session_id", sessionID)))
	m.Initialize(ctx)
	return m
}

func (s *CartService) publishChange(ctx context.Context, sessionID string, items []domain.LineItem) {
	if s.events == nil {
		return
	}
	var err error
	if len(items) == 0 {
		err = s.events.PublishCartCleared(ctx, sessionID)
	} else {
		err = s.events.PublishCartUpdated(ctx, sessionID, items)
	}
	if err != nil {
		s.logger.WarnContext(ctx, "failed to publish cart event",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()),
		)
	}
}

// EvictIdle drops sessions not used within the idle timeout and returns how
// many were evicted. Sessions busy with a request are skipped.
func (s *CartService) EvictIdle() int {
	cutoff := s.now().Add(-s.idleTimeout)

	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for id, sess := range s.sessions {
		if !sess.lastSeen.Before(cutoff) || !sess.mu.TryLock() {
			continue
		}
		sess.evicted = true
		sess.mu.Unlock()
		delete(s.sessions, id)
		evicted++
	}
	cartSessionsActive.Sub(float64(evicted))
	cartSessionsEvictedTotal.Add(float64(evicted))
	return evicted
}

// ActiveSessions returns the number of sessions held in memory.
func (s *CartService) ActiveSessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// RunJanitor evicts idle sessions every interval until ctx is canceled.
func (s *CartService) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.EvictIdle(); n > 0 {
				s.logger.Info("evicted idle cart sessions", slog.Int("count", n))
			}
		}
	}
}

func requireSession(sessionID string) error {
	if sessionID == "" {
		return apperrors.InvalidInput("session id is required")
	}
	return nil
}

func sameItems(a, b []domain.LineItem) bool {
	return slices.EqualFunc(a, b, func(x, y domain.LineItem) bool {
		return x.ProductID == y.ProductID &&
			x.Quantity == y.Quantity &&
			x.Name == y.Name &&
			x.ImageRef == y.ImageRef &&
			x.AvailableStock == y.AvailableStock &&
			x.UnitPrice.Equal(y.UnitPrice)
	})
}
