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

// Order service sentinel errors.
var (
	ErrOrderInvalidInput      = errors.New("order: invalid input")
	ErrOrderNotFound          = errors.New("order: not found")
	ErrOrderForbidden         = errors.New("order: access denied")
	ErrOrderInvalidTransition = errors.New("order: invalid status transition")
	ErrOrderConflict          = errors.New("order: conflicting update")
	ErrOrderUnavailable       = errors.New("order: storage unavailable")
)

// orderTransitions lists the allowed forward moves per status. Cancellation
// is handled separately because it carries its own permission rules.
var orderTransitions = map[domain.OrderStatus][]domain.OrderStatus{
	domain.OrderStatusDraft:      {domain.OrderStatusSubmitted, domain.OrderStatusCanceled},
	domain.OrderStatusSubmitted:  {domain.OrderStatusProcessing, domain.OrderStatusCanceled},
	domain.OrderStatusProcessing: {domain.OrderStatusProcessed, domain.OrderStatusCanceled},
	domain.OrderStatusProcessed:  {domain.OrderStatusCompleted},
}

// OrderServiceDeps lists collaborators required by the order service.
type OrderServiceDeps struct {
	Orders      repositories.OrderRepository
	Carts       repositories.CartRepository
	Events      OrderEventPublisher
	Clock       func() time.Time
	IDGenerator func() string
	Logger      func(ctx context.Context, msg string, fields map[string]any)
}

type orderService struct {
	orders repositories.OrderRepository
	carts  repositories.CartRepository
	events OrderEventPublisher
	clock  func() time.Time
	newID  func() string
	logger func(ctx context.Context, msg string, fields map[string]any)
}

// NewOrderService builds an OrderService.
func NewOrderService(deps OrderServiceDeps) (OrderService, error) {
	if deps.Orders == nil {
		return nil, fmt.Errorf("%w: order repository is required", ErrOrderInvalidInput)
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
	return &orderService{
		orders: deps.Orders,
		carts:  deps.Carts,
		events: deps.Events,
		clock:  func() time.Time { return clock().UTC() },
		newID:  newID,
		logger: logger,
	}, nil
}

var _ OrderService = (*orderService)(nil)

// Submit persists a new order from the given line items. When an idempotency
// key is supplied it becomes the document id, so a retried submission returns
// the already stored order instead of creating a duplicate.
func (s *orderService) Submit(ctx context.Context, cmd SubmitOrderCommand) (domain.Order, error) {
	uid := strings.TrimSpace(cmd.UserID)
	if uid == "" {
		return domain.Order{}, fmt.Errorf("%w: user id is required", ErrOrderInvalidInput)
	}
	if len(cmd.Items) == 0 {
		return domain.Order{}, fmt.Errorf("%w: at least one item is required", ErrOrderInvalidInput)
	}
	delivery := normalizeDelivery(cmd.Delivery)
	if delivery.Location == "" && delivery.Address == "" {
		return domain.Order{}, fmt.Errorf("%w: a delivery location or address is required", ErrOrderInvalidInput)
	}

	now := s.clock()
	orderID := strings.TrimSpace(cmd.IdempotencyKey)
	if orderID == "" {
		orderID = s.newID()
	}

	items, total, err := normalizeOrderItems(cmd.Items)
	if err != nil {
		return domain.Order{}, err
	}

	order := domain.Order{
		ID:          orderID,
		OrderNumber: formatOrderNumber(now, orderID),
		UserID:      uid,
		Status:      domain.OrderStatusSubmitted,
		Items:       items,
		Memo:        strings.TrimSpace(cmd.Memo),
		Delivery:    delivery,
		TotalAmount: total,
		CreatedAt:   now,
		UpdatedAt:   now,
		SubmittedAt: &now,
	}

	if err := s.orders.Insert(ctx, order); err != nil {
		if isRepoConflict(err) {
			existing, findErr := s.orders.FindByID(ctx, orderID)
			if findErr == nil && existing.UserID == uid {
				return existing, nil
			}
			return domain.Order{}, s.translateRepoError(err)
		}
		return domain.Order{}, s.translateRepoError(err)
	}

	if cmd.ClearCart && s.carts != nil {
		if err := s.carts.DeleteCart(ctx, uid); err != nil && !isRepoNotFound(err) {
			s.logger(ctx, "cart cleanup after order submit failed", map[string]any{
				"orderId": order.ID,
				"error":   err.Error(),
			})
		}
	}

	s.publishEvent(ctx, "order.submitted", order)
	return order, nil
}

func (s *orderService) GetOrder(ctx context.Context, cmd OrderReadCommand) (domain.Order, error) {
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return domain.Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return domain.Order{}, s.translateRepoError(err)
	}
	if !cmd.AsStaff && order.UserID != strings.TrimSpace(cmd.UserID) {
		return domain.Order{}, fmt.Errorf("%w: %s", ErrOrderForbidden, orderID)
	}
	return order, nil
}

func (s *orderService) ListOrders(ctx context.Context, filter OrderListFilter) (domain.CursorPage[domain.Order], error) {
	page, err := s.orders.List(ctx, filter)
	if err != nil {
		return domain.CursorPage[domain.Order]{}, s.translateRepoError(err)
	}
	return page, nil
}

// TransitionStatus moves an order along the staff-managed lifecycle.
func (s *orderService) TransitionStatus(ctx context.Context, cmd OrderStatusCommand) (domain.Order, error) {
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return domain.Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return domain.Order{}, s.translateRepoError(err)
	}
	if !orderTransitionAllowed(order.Status, cmd.TargetStatus) {
		return domain.Order{}, fmt.Errorf("%w: %s -> %s", ErrOrderInvalidTransition, order.Status, cmd.TargetStatus)
	}

	now := s.clock()
	order.Status = cmd.TargetStatus
	order.UpdatedAt = now
	switch cmd.TargetStatus {
	case domain.OrderStatusSubmitted:
		order.SubmittedAt = &now
	case domain.OrderStatusCanceled:
		order.CanceledAt = &now
	}
	if err := s.orders.Update(ctx, order); err != nil {
		return domain.Order{}, s.translateRepoError(err)
	}
	s.publishEvent(ctx, "order.status_changed", order)
	return order, nil
}

// Cancel handles buyer-initiated cancellation. Buyers may only cancel before
// processing starts; staff may cancel anything not yet completed.
func (s *orderService) Cancel(ctx context.Context, cmd CancelOrderCommand) (domain.Order, error) {
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return domain.Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return domain.Order{}, s.translateRepoError(err)
	}
	if !cmd.AsStaff && order.UserID != strings.TrimSpace(cmd.UserID) {
		return domain.Order{}, fmt.Errorf("%w: %s", ErrOrderForbidden, orderID)
	}

	cancellable := order.Status == domain.OrderStatusDraft || order.Status == domain.OrderStatusSubmitted
	if cmd.AsStaff {
		cancellable = cancellable || order.Status == domain.OrderStatusProcessing
	}
	if !cancellable {
		return domain.Order{}, fmt.Errorf("%w: %s -> %s", ErrOrderInvalidTransition, order.Status, domain.OrderStatusCanceled)
	}

	now := s.clock()
	order.Status = domain.OrderStatusCanceled
	order.UpdatedAt = now
	order.CanceledAt = &now
	if err := s.orders.Update(ctx, order); err != nil {
		return domain.Order{}, s.translateRepoError(err)
	}
	s.publishEvent(ctx, "order.canceled", order)
	return order, nil
}

// Delete removes an order document. Buyers may only delete their own drafts;
// staff may also purge canceled orders.
func (s *orderService) Delete(ctx context.Context, cmd DeleteOrderCommand) error {
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return s.translateRepoError(err)
	}
	if !cmd.AsStaff && order.UserID != strings.TrimSpace(cmd.UserID) {
		return fmt.Errorf("%w: %s", ErrOrderForbidden, orderID)
	}
	deletable := order.Status == domain.OrderStatusDraft
	if cmd.AsStaff {
		deletable = deletable || order.Status == domain.OrderStatusCanceled
	}
	if !deletable {
		return fmt.Errorf("%w: only drafts can be deleted", ErrOrderInvalidTransition)
	}
	if err := s.orders.Delete(ctx, orderID); err != nil {
		return s.translateRepoError(err)
	}
	return nil
}

func (s *orderService) publishEvent(ctx context.Context, kind string, order domain.Order) {
	if s.events == nil {
		return
	}
	event := OrderEvent{
		ID:         s.newID(),
		Kind:       kind,
		TargetRef:  "orders/" + order.ID,
		UserID:     order.UserID,
		Status:     string(order.Status),
		OccurredAt: s.clock(),
		Metadata:   map[string]string{"orderNumber": order.OrderNumber},
	}
	if err := s.events.PublishOrderEvent(ctx, event); err != nil {
		// Event delivery is best effort; the write already succeeded.
		s.logger(ctx, "order event publish failed", map[string]any{
			"kind":    kind,
			"orderId": order.ID,
			"error":   err.Error(),
		})
	}
}

func (s *orderService) translateRepoError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return ErrOrderNotFound
		case repoErr.IsConflict():
			return ErrOrderConflict
		case repoErr.IsUnavailable():
			return ErrOrderUnavailable
		}
		return ErrOrderUnavailable
	}
	return ErrOrderUnavailable
}

func orderTransitionAllowed(from, to domain.OrderStatus) bool {
	for _, allowed := range orderTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

func isRepoConflict(err error) bool {
	var repoErr repositories.RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsConflict()
}

// normalizeOrderItems trims the captured lines and recomputes every amount
// plus the document total.
func normalizeOrderItems(items []domain.LineItem) ([]domain.LineItem, int64, error) {
	normalized := make([]domain.LineItem, 0, len(items))
	var total int64
	for _, src := range items {
		item := src
		item.Name = strings.TrimSpace(item.Name)
		if item.Name == "" {
			return nil, 0, fmt.Errorf("%w: item name is required", ErrOrderInvalidInput)
		}
		item.Thickness = strings.TrimSpace(item.Thickness)
		item.Size = strings.TrimSpace(item.Size)
		item.Material = strings.TrimSpace(item.Material)
		item.Maker = strings.TrimSpace(item.Maker)
		item.Location = strings.TrimSpace(item.Location)
		if item.Quantity < 1 {
			item.Quantity = 1
		}
		item.SKUKey = domain.ComposeSKUKey(item.Name, item.Thickness, item.Size, item.Material)
		item.Amount = item.UnitPrice * int64(item.Quantity)
		total += item.Amount
		normalized = append(normalized, item)
	}
	return normalized, total, nil
}

func normalizeDelivery(delivery domain.DeliveryInfo) domain.DeliveryInfo {
	delivery.Location = strings.TrimSpace(delivery.Location)
	delivery.Address = strings.TrimSpace(delivery.Address)
	delivery.Contact = strings.TrimSpace(delivery.Contact)
	delivery.Note = strings.TrimSpace(delivery.Note)
	return delivery
}

// formatOrderNumber derives a short human friendly reference from the
// submission date and the document id tail.
func formatOrderNumber(now time.Time, orderID string) string {
	tail := orderID
	if len(tail) > 6 {
		tail = tail[len(tail)-6:]
	}
	return fmt.Sprintf("ORD-%s-%s", now.Format("20060102"), strings.ToUpper(tail))
}
