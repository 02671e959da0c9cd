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

// Quotation service sentinel errors.
var (
	ErrQuotationInvalidInput      = errors.New("quotation: invalid input")
	ErrQuotationNotFound          = errors.New("quotation: not found")
	ErrQuotationForbidden         = errors.New("quotation: access denied")
	ErrQuotationInvalidTransition = errors.New("quotation: invalid status transition")
	ErrQuotationConflict          = errors.New("quotation: conflicting update")
	ErrQuotationUnavailable       = errors.New("quotation: storage unavailable")
)

var quotationTransitions = map[domain.QuotationStatus][]domain.QuotationStatus{
	domain.QuotationStatusDraft:     {domain.QuotationStatusSubmitted, domain.QuotationStatusCanceled},
	domain.QuotationStatusSubmitted: {domain.QuotationStatusProcessed, domain.QuotationStatusCanceled},
}

// QuotationServiceDeps lists collaborators required by the quotation service.
type QuotationServiceDeps struct {
	Quotations  repositories.QuotationRepository
	Carts       repositories.CartRepository
	Events      OrderEventPublisher
	Clock       func() time.Time
	IDGenerator func() string
	Logger      func(ctx context.Context, msg string, fields map[string]any)
}

type quotationService struct {
	quotations repositories.QuotationRepository
	carts      repositories.CartRepository
	events     OrderEventPublisher
	clock      func() time.Time
	newID      func() string
	logger     func(ctx context.Context, msg string, fields map[string]any)
}

// NewQuotationService builds a QuotationService.
func NewQuotationService(deps QuotationServiceDeps) (QuotationService, error) {
	if deps.Quotations == nil {
		return nil, fmt.Errorf("%w: quotation repository is required", ErrQuotationInvalidInput)
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
	return &quotationService{
		quotations: deps.Quotations,
		carts:      deps.Carts,
		events:     deps.Events,
		clock:      func() time.Time { return clock().UTC() },
		newID:      newID,
		logger:     logger,
	}, nil
}

var _ QuotationService = (*quotationService)(nil)

// Submit persists a quotation request built from the given lines. As with
// orders, an idempotency key doubles as the document id.
func (s *quotationService) Submit(ctx context.Context, cmd SubmitQuotationCommand) (domain.Quotation, error) {
	uid := strings.TrimSpace(cmd.UserID)
	if uid == "" {
		return domain.Quotation{}, fmt.Errorf("%w: user id is required", ErrQuotationInvalidInput)
	}
	if len(cmd.Items) == 0 {
		return domain.Quotation{}, fmt.Errorf("%w: at least one item is required", ErrQuotationInvalidInput)
	}

	now := s.clock()
	quotationID := strings.TrimSpace(cmd.IdempotencyKey)
	if quotationID == "" {
		quotationID = s.newID()
	}

	items, total, err := normalizeQuotationItems(cmd.Items)
	if err != nil {
		return domain.Quotation{}, err
	}

	quotation := domain.Quotation{
		ID:          quotationID,
		UserID:      uid,
		Status:      domain.QuotationStatusSubmitted,
		Items:       items,
		Memo:        strings.TrimSpace(cmd.Memo),
		TotalAmount: total,
		CreatedAt:   now,
		UpdatedAt:   now,
		SubmittedAt: &now,
	}

	if err := s.quotations.Insert(ctx, quotation); err != nil {
		if isRepoConflict(err) {
			existing, findErr := s.quotations.FindByID(ctx, quotationID)
			if findErr == nil && existing.UserID == uid {
				return existing, nil
			}
		}
		return domain.Quotation{}, s.translateRepoError(err)
	}

	if cmd.ClearCart && s.carts != nil {
		if err := s.carts.DeleteCart(ctx, uid); err != nil && !isRepoNotFound(err) {
			s.logger(ctx, "cart cleanup after quotation submit failed", map[string]any{
				"quotationId": quotation.ID,
				"error":       err.Error(),
			})
		}
	}

	s.publishEvent(ctx, "quotation.submitted", quotation)
	return quotation, nil
}

func (s *quotationService) GetQuotation(ctx context.Context, cmd QuotationReadCommand) (domain.Quotation, error) {
	quotationID := strings.TrimSpace(cmd.QuotationID)
	if quotationID == "" {
		return domain.Quotation{}, fmt.Errorf("%w: quotation id is required", ErrQuotationInvalidInput)
	}
	quotation, err := s.quotations.FindByID(ctx, quotationID)
	if err != nil {
		return domain.Quotation{}, s.translateRepoError(err)
	}
	if !cmd.AsStaff && quotation.UserID != strings.TrimSpace(cmd.UserID) {
		return domain.Quotation{}, fmt.Errorf("%w: %s", ErrQuotationForbidden, quotationID)
	}
	return quotation, nil
}

func (s *quotationService) ListQuotations(ctx context.Context, filter QuotationListFilter) (domain.CursorPage[domain.Quotation], error) {
	page, err := s.quotations.List(ctx, filter)
	if err != nil {
		return domain.CursorPage[domain.Quotation]{}, s.translateRepoError(err)
	}
	return page, nil
}

func (s *quotationService) TransitionStatus(ctx context.Context, cmd QuotationStatusCommand) (domain.Quotation, error) {
	quotationID := strings.TrimSpace(cmd.QuotationID)
	if quotationID == "" {
		return domain.Quotation{}, fmt.Errorf("%w: quotation id is required", ErrQuotationInvalidInput)
	}
	quotation, err := s.quotations.FindByID(ctx, quotationID)
	if err != nil {
		return domain.Quotation{}, s.translateRepoError(err)
	}
	if !quotationTransitionAllowed(quotation.Status, cmd.TargetStatus) {
		return domain.Quotation{}, fmt.Errorf("%w: %s -> %s", ErrQuotationInvalidTransition, quotation.Status, cmd.TargetStatus)
	}

	now := s.clock()
	quotation.Status = cmd.TargetStatus
	quotation.UpdatedAt = now
	switch cmd.TargetStatus {
	case domain.QuotationStatusSubmitted:
		quotation.SubmittedAt = &now
	case domain.QuotationStatusCanceled:
		quotation.CanceledAt = &now
	}
	if err := s.quotations.Update(ctx, quotation); err != nil {
		return domain.Quotation{}, s.translateRepoError(err)
	}
	s.publishEvent(ctx, "quotation.status_changed", quotation)
	return quotation, nil
}

// Cancel handles buyer-initiated withdrawal of a quotation request.
func (s *quotationService) Cancel(ctx context.Context, cmd CancelQuotationCommand) (domain.Quotation, error) {
	quotationID := strings.TrimSpace(cmd.QuotationID)
	if quotationID == "" {
		return domain.Quotation{}, fmt.Errorf("%w: quotation id is required", ErrQuotationInvalidInput)
	}
	quotation, err := s.quotations.FindByID(ctx, quotationID)
	if err != nil {
		return domain.Quotation{}, s.translateRepoError(err)
	}
	if !cmd.AsStaff && quotation.UserID != strings.TrimSpace(cmd.UserID) {
		return domain.Quotation{}, fmt.Errorf("%w: %s", ErrQuotationForbidden, quotationID)
	}
	if quotation.Status != domain.QuotationStatusDraft && quotation.Status != domain.QuotationStatusSubmitted {
		return domain.Quotation{}, fmt.Errorf("%w: %s -> %s", ErrQuotationInvalidTransition, quotation.Status, domain.QuotationStatusCanceled)
	}

	now := s.clock()
	quotation.Status = domain.QuotationStatusCanceled
	quotation.UpdatedAt = now
	quotation.CanceledAt = &now
	if err := s.quotations.Update(ctx, quotation); err != nil {
		return domain.Quotation{}, s.translateRepoError(err)
	}
	s.publishEvent(ctx, "quotation.canceled", quotation)
	return quotation, nil
}

func (s *quotationService) Delete(ctx context.Context, cmd DeleteQuotationCommand) error {
	quotationID := strings.TrimSpace(cmd.QuotationID)
	if quotationID == "" {
		return fmt.Errorf("%w: quotation id is required", ErrQuotationInvalidInput)
	}
	quotation, err := s.quotations.FindByID(ctx, quotationID)
	if err != nil {
		return s.translateRepoError(err)
	}
	if !cmd.AsStaff && quotation.UserID != strings.TrimSpace(cmd.UserID) {
		return fmt.Errorf("%w: %s", ErrQuotationForbidden, quotationID)
	}
	deletable := quotation.Status == domain.QuotationStatusDraft
	if cmd.AsStaff {
		deletable = deletable || quotation.Status == domain.QuotationStatusCanceled
	}
	if !deletable {
		return fmt.Errorf("%w: only drafts can be deleted", ErrQuotationInvalidTransition)
	}
	if err := s.quotations.Delete(ctx, quotationID); err != nil {
		return s.translateRepoError(err)
	}
	return nil
}

func (s *quotationService) publishEvent(ctx context.Context, kind string, quotation domain.Quotation) {
	if s.events == nil {
		return
	}
	event := OrderEvent{
		ID:         s.newID(),
		Kind:       kind,
		TargetRef:  "quotations/" + quotation.ID,
		UserID:     quotation.UserID,
		Status:     string(quotation.Status),
		OccurredAt: s.clock(),
	}
	if err := s.events.PublishOrderEvent(ctx, event); err != nil {
		s.logger(ctx, "quotation event publish failed", map[string]any{
			"kind":        kind,
			"quotationId": quotation.ID,
			"error":       err.Error(),
		})
	}
}

func (s *quotationService) translateRepoError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return ErrQuotationNotFound
		case repoErr.IsConflict():
			return ErrQuotationConflict
		case repoErr.IsUnavailable():
			return ErrQuotationUnavailable
		}
		return ErrQuotationUnavailable
	}
	return ErrQuotationUnavailable
}

func quotationTransitionAllowed(from, to domain.QuotationStatus) bool {
	for _, allowed := range quotationTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

func normalizeQuotationItems(items []domain.LineItem) ([]domain.LineItem, int64, error) {
	normalized, total, err := normalizeOrderItems(items)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: item name is required", ErrQuotationInvalidInput)
	}
	return normalized, total, nil
}
