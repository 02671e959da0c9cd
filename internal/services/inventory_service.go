package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	domain "github.com/fitline/api/internal/domain"
	"github.com/fitline/api/internal/repositories"
)

// Inventory service sentinel errors.
var (
	ErrInventoryInvalidInput = errors.New("inventory: invalid input")
	ErrInventoryNotFound     = errors.New("inventory: product not found")
	ErrInventoryUnavailable  = errors.New("inventory: snapshot unavailable")
)

// backgroundRefreshTimeout bounds refreshes kicked off from the read path so a
// hung storage call cannot pin a goroutine forever.
const backgroundRefreshTimeout = 30 * time.Second

const defaultRefreshTTL = 5 * time.Minute

// InventoryServiceDeps lists collaborators required by the inventory service.
type InventoryServiceDeps struct {
	Source     repositories.InventorySource
	RefreshTTL time.Duration
	SourceRef  string
	Clock      func() time.Time
	Logger     func(ctx context.Context, msg string, fields map[string]any)
}

type inventoryService struct {
	source     repositories.InventorySource
	refreshTTL time.Duration
	sourceRef  string
	clock      func() time.Time
	logger     func(ctx context.Context, msg string, fields map[string]any)

	mu         sync.RWMutex
	products   []domain.Product
	byID       map[string]int
	loadedAt   time.Time
	refreshing bool
}

// NewInventoryService builds an InventoryService that serves a whole-snapshot
// view of the product catalog. The snapshot is swapped atomically; readers
// never observe a partially loaded state.
func NewInventoryService(deps InventoryServiceDeps) (InventoryService, error) {
	if deps.Source == nil {
		return nil, fmt.Errorf("%w: source is required", ErrInventoryInvalidInput)
	}
	ttl := deps.RefreshTTL
	if ttl <= 0 {
		ttl = defaultRefreshTTL
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &inventoryService{
		source:     deps.Source,
		refreshTTL: ttl,
		sourceRef:  strings.TrimSpace(deps.SourceRef),
		clock:      func() time.Time { return clock().UTC() },
		logger:     logger,
	}, nil
}

var _ InventoryService = (*inventoryService)(nil)

// Products returns the current snapshot. The first call blocks on the initial
// load; afterwards stale snapshots are served as-is while a refresh runs in
// the background. Callers must treat the returned slice as read-only.
func (s *inventoryService) Products(ctx context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	products := s.products
	loadedAt := s.loadedAt
	refreshing := s.refreshing
	s.mu.RUnlock()

	if loadedAt.IsZero() {
		if _, err := s.Refresh(ctx); err != nil {
			return nil, err
		}
		s.mu.RLock()
		products = s.products
		s.mu.RUnlock()
		return products, nil
	}

	if s.isStale(loadedAt) && !refreshing {
		go func() {
			bg, cancel := context.WithTimeout(context.Background(), backgroundRefreshTimeout)
			defer cancel()
			if _, err := s.Refresh(bg); err != nil {
				s.logger(bg, "inventory background refresh failed", map[string]any{"error": err.Error()})
			}
		}()
	}
	return products, nil
}

// Refresh fetches and normalizes the snapshot from the source. A fetch that
// resolves to zero records never replaces a populated snapshot, and a fetch
// error leaves the last known good snapshot in place.
func (s *inventoryService) Refresh(ctx context.Context) (InventoryRefreshResult, error) {
	s.mu.Lock()
	if s.refreshing {
		s.mu.Unlock()
		return InventoryRefreshResult{Skipped: true}, nil
	}
	s.refreshing = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.refreshing = false
		s.mu.Unlock()
	}()

	records, err := s.source.FetchSnapshot(ctx)
	fetchedAt := s.clock()
	if err != nil {
		s.logger(ctx, "inventory snapshot fetch failed", map[string]any{
			"source": s.sourceRef,
			"error":  err.Error(),
		})
		return InventoryRefreshResult{}, fmt.Errorf("%w: %v", ErrInventoryUnavailable, err)
	}

	products := make([]domain.Product, 0, len(records))
	for _, record := range records {
		product := domain.NormalizeProduct(record)
		if product.ID == "" {
			continue
		}
		products = append(products, product)
	}

	s.mu.Lock()
	held := len(s.products)
	s.mu.Unlock()
	if len(products) == 0 && held > 0 {
		s.logger(ctx, "inventory snapshot empty, keeping previous", map[string]any{
			"source": s.sourceRef,
			"held":   held,
		})
		return InventoryRefreshResult{Fetched: len(records), Skipped: true, FetchedAt: fetchedAt}, nil
	}

	byID := make(map[string]int, len(products))
	for i, product := range products {
		if _, ok := byID[product.ID]; !ok {
			byID[product.ID] = i
		}
	}

	s.mu.Lock()
	s.products = products
	s.byID = byID
	s.loadedAt = fetchedAt
	s.mu.Unlock()

	s.logger(ctx, "inventory snapshot loaded", map[string]any{
		"source":   s.sourceRef,
		"fetched":  len(records),
		"accepted": len(products),
	})
	return InventoryRefreshResult{Fetched: len(records), Accepted: len(products), FetchedAt: fetchedAt}, nil
}

func (s *inventoryService) SnapshotInfo() InventorySnapshotInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return InventorySnapshotInfo{
		Count:     len(s.products),
		LoadedAt:  s.loadedAt,
		Stale:     s.isStale(s.loadedAt),
		SourceRef: s.sourceRef,
	}
}

func (s *inventoryService) FindByID(ctx context.Context, productID string) (domain.Product, error) {
	id := strings.TrimSpace(productID)
	if id == "" {
		return domain.Product{}, fmt.Errorf("%w: product id is required", ErrInventoryInvalidInput)
	}
	if _, err := s.Products(ctx); err != nil {
		return domain.Product{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if idx, ok := s.byID[id]; ok {
		return s.products[idx], nil
	}
	return domain.Product{}, fmt.Errorf("%w: %s", ErrInventoryNotFound, id)
}

func (s *inventoryService) isStale(loadedAt time.Time) bool {
	if loadedAt.IsZero() {
		return true
	}
	return s.clock().Sub(loadedAt) > s.refreshTTL
}
