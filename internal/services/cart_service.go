package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/fitline/api/internal/domain"
	"github.com/fitline/api/internal/repositories"
)

// Cart service sentinel errors.
var (
	ErrCartInvalidInput = errors.New("cart: invalid input")
	ErrCartItemNotFound = errors.New("cart: item not found")
	ErrCartConflict     = errors.New("cart: conflicting update")
	ErrCartUnavailable  = errors.New("cart: storage unavailable")
)

// CartServiceDeps lists collaborators required by the cart service.
type CartServiceDeps struct {
	Carts       repositories.CartRepository
	Inventory   InventoryService
	Clock       func() time.Time
	IDGenerator func() string
	Logger      func(ctx context.Context, msg string, fields map[string]any)
}

type cartService struct {
	carts     repositories.CartRepository
	inventory InventoryService
	clock     func() time.Time
	newID     func() string
	logger    func(ctx context.Context, msg string, fields map[string]any)
}

// NewCartService builds a CartService. Each user has exactly one cart,
// keyed by the user id.
func NewCartService(deps CartServiceDeps) (CartService, error) {
	if deps.Carts == nil {
		return nil, fmt.Errorf("%w: cart repository is required", ErrCartInvalidInput)
	}
	if deps.Inventory == nil {
		return nil, fmt.Errorf("%w: inventory service is required", ErrCartInvalidInput)
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	newID := deps.IDGenerator
	if newID == nil {
		newID = func() string { return ulid.Make().String() }
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &cartService{
		carts:     deps.Carts,
		inventory: deps.Inventory,
		clock:     func() time.Time { return clock().UTC() },
		newID:     newID,
		logger:    logger,
	}, nil
}

var _ CartService = (*cartService)(nil)

func (s *cartService) GetOrCreateCart(ctx context.Context, userID string) (domain.Cart, error) {
	uid := strings.TrimSpace(userID)
	if uid == "" {
		return domain.Cart{}, fmt.Errorf("%w: user id is required", ErrCartInvalidInput)
	}
	cart, err := s.carts.GetCart(ctx, uid)
	if err != nil {
		if isRepoNotFound(err) {
			return s.emptyCart(uid), nil
		}
		return domain.Cart{}, s.translateRepoError(err)
	}
	return cart, nil
}

func (s *cartService) AddItem(ctx context.Context, cmd AddCartItemCommand) (domain.Cart, error) {
	uid := strings.TrimSpace(cmd.UserID)
	if uid == "" {
		return domain.Cart{}, fmt.Errorf("%w: user id is required", ErrCartInvalidInput)
	}
	name := strings.TrimSpace(cmd.Name)
	if name == "" {
		return domain.Cart{}, fmt.Errorf("%w: item name is required", ErrCartInvalidInput)
	}

	cart, err := s.GetOrCreateCart(ctx, uid)
	if err != nil {
		return domain.Cart{}, err
	}

	now := s.clock()
	item := domain.LineItem{
		ID:        s.newID(),
		ProductID: strings.TrimSpace(cmd.ProductID),
		Name:      name,
		Thickness: strings.TrimSpace(cmd.Thickness),
		Size:      strings.TrimSpace(cmd.Size),
		Material:  strings.TrimSpace(cmd.Material),
		Maker:     strings.TrimSpace(cmd.Maker),
		Location:  strings.TrimSpace(cmd.Location),
		UnitPrice: cmd.UnitPrice,
		Quantity:  clampQuantity(cmd.Quantity),
		AddedAt:   now,
	}
	item.SKUKey = domain.ComposeSKUKey(item.Name, item.Thickness, item.Size, item.Material)
	s.linkLineItem(ctx, &item, false)
	item.Amount = item.UnitPrice * int64(item.Quantity)

	// Repeat additions of the same product stay as separate lines.
	cart.Items = append(cart.Items, item)
	return s.saveCart(ctx, cart, now)
}

func (s *cartService) UpdateItem(ctx context.Context, cmd UpdateCartItemCommand) (domain.Cart, error) {
	uid := strings.TrimSpace(cmd.UserID)
	itemID := strings.TrimSpace(cmd.ItemID)
	if uid == "" || itemID == "" {
		return domain.Cart{}, fmt.Errorf("%w: user id and item id are required", ErrCartInvalidInput)
	}

	cart, err := s.carts.GetCart(ctx, uid)
	if err != nil {
		return domain.Cart{}, s.translateRepoError(err)
	}
	idx := indexOfLineItem(cart.Items, itemID)
	if idx < 0 {
		return domain.Cart{}, fmt.Errorf("%w: %s", ErrCartItemNotFound, itemID)
	}

	item := cart.Items[idx]
	keyChanged := false
	keyChanged = applyStringField(&item.Name, cmd.Name) || keyChanged
	keyChanged = applyStringField(&item.Thickness, cmd.Thickness) || keyChanged
	keyChanged = applyStringField(&item.Size, cmd.Size) || keyChanged
	keyChanged = applyStringField(&item.Material, cmd.Material) || keyChanged
	applyStringField(&item.Maker, cmd.Maker)
	applyStringField(&item.Location, cmd.Location)
	if cmd.UnitPrice != nil {
		item.UnitPrice = *cmd.UnitPrice
	}
	if cmd.Quantity != nil {
		item.Quantity = clampQuantity(*cmd.Quantity)
	}
	if item.Name == "" {
		return domain.Cart{}, fmt.Errorf("%w: item name is required", ErrCartInvalidInput)
	}

	now := s.clock()
	if keyChanged {
		item.SKUKey = domain.ComposeSKUKey(item.Name, item.Thickness, item.Size, item.Material)
		item.ProductID = ""
		s.linkLineItem(ctx, &item, false)
	}
	// The stored amount is always derived, never trusted from the client.
	item.Amount = item.UnitPrice * int64(item.Quantity)
	item.UpdatedAt = &now

	cart.Items[idx] = item
	return s.saveCart(ctx, cart, now)
}

func (s *cartService) RemoveItem(ctx context.Context, cmd RemoveCartItemCommand) (domain.Cart, error) {
	uid := strings.TrimSpace(cmd.UserID)
	itemID := strings.TrimSpace(cmd.ItemID)
	if uid == "" || itemID == "" {
		return domain.Cart{}, fmt.Errorf("%w: user id and item id are required", ErrCartInvalidInput)
	}

	cart, err := s.carts.GetCart(ctx, uid)
	if err != nil {
		return domain.Cart{}, s.translateRepoError(err)
	}
	idx := indexOfLineItem(cart.Items, itemID)
	if idx < 0 {
		return domain.Cart{}, fmt.Errorf("%w: %s", ErrCartItemNotFound, itemID)
	}
	cart.Items = append(cart.Items[:idx], cart.Items[idx+1:]...)
	return s.saveCart(ctx, cart, s.clock())
}

func (s *cartService) ClearCart(ctx context.Context, userID string) (domain.Cart, error) {
	uid := strings.TrimSpace(userID)
	if uid == "" {
		return domain.Cart{}, fmt.Errorf("%w: user id is required", ErrCartInvalidInput)
	}
	cart, err := s.carts.GetCart(ctx, uid)
	if err != nil {
		if isRepoNotFound(err) {
			return s.emptyCart(uid), nil
		}
		return domain.Cart{}, s.translateRepoError(err)
	}
	cart.Items = nil
	cart.Memo = ""
	return s.saveCart(ctx, cart, s.clock())
}

func (s *cartService) UpdateMemo(ctx context.Context, cmd UpdateCartMemoCommand) (domain.Cart, error) {
	uid := strings.TrimSpace(cmd.UserID)
	if uid == "" {
		return domain.Cart{}, fmt.Errorf("%w: user id is required", ErrCartInvalidInput)
	}
	cart, err := s.GetOrCreateCart(ctx, uid)
	if err != nil {
		return domain.Cart{}, err
	}
	cart.Memo = strings.TrimSpace(cmd.Memo)
	return s.saveCart(ctx, cart, s.clock())
}

// LoadItems replaces the cart contents wholesale with a historical item set,
// re-linking each line against the live snapshot. Lines whose product tuple no
// longer exists are kept but flagged unverified.
func (s *cartService) LoadItems(ctx context.Context, cmd LoadCartItemsCommand) (domain.Cart, error) {
	uid := strings.TrimSpace(cmd.UserID)
	if uid == "" {
		return domain.Cart{}, fmt.Errorf("%w: user id is required", ErrCartInvalidInput)
	}
	if len(cmd.Items) == 0 {
		return domain.Cart{}, fmt.Errorf("%w: at least one item is required", ErrCartInvalidInput)
	}

	cart, err := s.GetOrCreateCart(ctx, uid)
	if err != nil {
		return domain.Cart{}, err
	}

	now := s.clock()
	items := make([]domain.LineItem, 0, len(cmd.Items))
	for _, src := range cmd.Items {
		item := domain.LineItem{
			ID:        s.newID(),
			ProductID: strings.TrimSpace(src.ProductID),
			Name:      strings.TrimSpace(src.Name),
			Thickness: strings.TrimSpace(src.Thickness),
			Size:      strings.TrimSpace(src.Size),
			Material:  strings.TrimSpace(src.Material),
			Maker:     strings.TrimSpace(src.Maker),
			Location:  strings.TrimSpace(src.Location),
			UnitPrice: src.UnitPrice,
			Quantity:  clampQuantity(src.Quantity),
			AddedAt:   now,
		}
		if item.Name == "" {
			return domain.Cart{}, fmt.Errorf("%w: item name is required", ErrCartInvalidInput)
		}
		item.SKUKey = domain.ComposeSKUKey(item.Name, item.Thickness, item.Size, item.Material)
		s.linkLineItem(ctx, &item, true)
		item.Amount = item.UnitPrice * int64(item.Quantity)
		items = append(items, item)
	}

	cart.Items = items
	cart.Memo = strings.TrimSpace(cmd.Memo)
	return s.saveCart(ctx, cart, now)
}

// linkLineItem matches the line against the live snapshot by its product
// tuple and copies over stock figures. Identity is the field tuple, not the
// stored key, so rows whose key format drifted still match. With
// refreshPrice set, a verified match also replaces the line's unit price
// with the snapshot's current one.
func (s *cartService) linkLineItem(ctx context.Context, item *domain.LineItem, refreshPrice bool) {
	products, err := s.inventory.Products(ctx)
	if err != nil {
		s.logger(ctx, "cart item link skipped, snapshot unavailable", map[string]any{"error": err.Error()})
		item.Verified = false
		return
	}

	var matched *domain.Product
	if item.ProductID != "" {
		for i := range products {
			if products[i].ID == item.ProductID && products[i].MatchesSKUFields(item.Name, item.Thickness, item.Size, item.Material) {
				matched = &products[i]
				break
			}
		}
	}
	if matched == nil {
		for i := range products {
			if products[i].MatchesSKUFields(item.Name, item.Thickness, item.Size, item.Material) {
				matched = &products[i]
				break
			}
		}
	}
	if matched == nil {
		item.Verified = false
		item.CurrentStock = 0
		item.MarkingWaitQty = 0
		item.StockStatus = ""
		return
	}

	item.ProductID = matched.ID
	item.CurrentStock = matched.CurrentStock
	item.MarkingWaitQty = matched.MarkingWaitQty
	item.StockStatus = matched.StockStatus
	item.Verified = true
	if item.Maker == "" {
		item.Maker = matched.Maker
	}
	if item.Location == "" {
		item.Location = matched.Location
	}
	if refreshPrice || item.UnitPrice == 0 {
		item.UnitPrice = matched.UnitPrice
	}
}

func (s *cartService) saveCart(ctx context.Context, cart domain.Cart, now time.Time) (domain.Cart, error) {
	var expected *time.Time
	if !cart.UpdatedAt.IsZero() {
		stamp := cart.UpdatedAt
		expected = &stamp
	}
	if cart.CreatedAt.IsZero() {
		cart.CreatedAt = now
	}
	cart.UpdatedAt = now
	saved, err := s.carts.SaveCart(ctx, cart, expected)
	if err != nil {
		return domain.Cart{}, s.translateRepoError(err)
	}
	return saved, nil
}

func (s *cartService) emptyCart(userID string) domain.Cart {
	return domain.Cart{ID: userID, UserID: userID}
}

func (s *cartService) translateRepoError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return ErrCartItemNotFound
		case repoErr.IsConflict():
			return ErrCartConflict
		case repoErr.IsUnavailable():
			return ErrCartUnavailable
		}
		return ErrCartUnavailable
	}
	return ErrCartUnavailable
}

func isRepoNotFound(err error) bool {
	var repoErr repositories.RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsNotFound()
}

func clampQuantity(quantity int) int {
	if quantity < 1 {
		return 1
	}
	return quantity
}

func indexOfLineItem(items []domain.LineItem, itemID string) int {
	for i := range items {
		if items[i].ID == itemID {
			return i
		}
	}
	return -1
}

// applyStringField trims and assigns an optional update, reporting whether
// the value actually changed.
func applyStringField(dst *string, src *string) bool {
	if src == nil {
		return false
	}
	trimmed := strings.TrimSpace(*src)
	if trimmed == *dst {
		return false
	}
	*dst = trimmed
	return true
}
