package services

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/fitline/api/internal/domain"
)

type stubQuotationRepo struct {
	quotations map[string]domain.Quotation
}

func newStubQuotationRepo() *stubQuotationRepo {
	return &stubQuotationRepo{quotations: map[string]domain.Quotation{}}
}

func (r *stubQuotationRepo) Insert(_ context.Context, quotation domain.Quotation) error {
	if _, exists := r.quotations[quotation.ID]; exists {
		return &stubRepoError{conflict: true}
	}
	r.quotations[quotation.ID] = quotation
	return nil
}

func (r *stubQuotationRepo) Update(_ context.Context, quotation domain.Quotation) error {
	if _, exists := r.quotations[quotation.ID]; !exists {
		return &stubRepoError{notFound: true}
	}
	r.quotations[quotation.ID] = quotation
	return nil
}

func (r *stubQuotationRepo) Delete(_ context.Context, quotationID string) error {
	if _, exists := r.quotations[quotationID]; !exists {
		return &stubRepoError{notFound: true}
	}
	delete(r.quotations, quotationID)
	return nil
}

func (r *stubQuotationRepo) FindByID(_ context.Context, quotationID string) (domain.Quotation, error) {
	quotation, exists := r.quotations[quotationID]
	if !exists {
		return domain.Quotation{}, &stubRepoError{notFound: true}
	}
	return quotation, nil
}

func (r *stubQuotationRepo) List(_ context.Context, _ QuotationListFilter) (domain.CursorPage[domain.Quotation], error) {
	page := domain.CursorPage[domain.Quotation]{}
	for _, quotation := range r.quotations {
		page.Items = append(page.Items, quotation)
	}
	return page, nil
}

func newTestQuotationService(t *testing.T, repo *stubQuotationRepo) QuotationService {
	t.Helper()
	svc, err := NewQuotationService(QuotationServiceDeps{
		Quotations: repo,
		Clock: func() time.Time {
			return time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
		},
	})
	if err != nil {
		t.Fatalf("NewQuotationService: %v", err)
	}
	return svc
}

func quotationFixture() SubmitQuotationCommand {
	return SubmitQuotationCommand{
		UserID: "user-1",
		Items: []domain.LineItem{
			{Name: "90E(L)", Thickness: "S40S", Size: "15A", Material: "STS304-W", UnitPrice: 1200, Quantity: 10},
		},
		Memo: "견적 요청",
	}
}

func TestQuotationServiceSubmit(t *testing.T) {
	ctx := context.Background()
	repo := newStubQuotationRepo()
	svc := newTestQuotationService(t, repo)

	quotation, err := svc.Submit(ctx, quotationFixture())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if quotation.Status != domain.QuotationStatusSubmitted || quotation.SubmittedAt == nil {
		t.Fatalf("expected submitted quotation, got %+v", quotation)
	}
	if quotation.TotalAmount != 12000 {
		t.Fatalf("expected total 12000, got %d", quotation.TotalAmount)
	}

	if _, err := svc.Submit(ctx, SubmitQuotationCommand{UserID: "user-1"}); !errors.Is(err, ErrQuotationInvalidInput) {
		t.Fatalf("expected ErrQuotationInvalidInput, got %v", err)
	}
}

func TestQuotationServiceLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := newStubQuotationRepo()
	svc := newTestQuotationService(t, repo)

	quotation, err := svc.Submit(ctx, quotationFixture())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	processed, err := svc.TransitionStatus(ctx, QuotationStatusCommand{
		QuotationID:  quotation.ID,
		TargetStatus: domain.QuotationStatusProcessed,
		ActorID:      "staff-1",
	})
	if err != nil {
		t.Fatalf("TransitionStatus: %v", err)
	}
	if processed.Status != domain.QuotationStatusProcessed {
		t.Fatalf("expected PROCESSED, got %s", processed.Status)
	}

	if _, err := svc.Cancel(ctx, CancelQuotationCommand{QuotationID: quotation.ID, UserID: "user-1"}); !errors.Is(err, ErrQuotationInvalidTransition) {
		t.Fatalf("expected processed quotations to be uncancellable, got %v", err)
	}
}

func TestQuotationServiceOwnership(t *testing.T) {
	ctx := context.Background()
	repo := newStubQuotationRepo()
	svc := newTestQuotationService(t, repo)

	quotation, err := svc.Submit(ctx, quotationFixture())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if _, err := svc.GetQuotation(ctx, QuotationReadCommand{QuotationID: quotation.ID, UserID: "intruder"}); !errors.Is(err, ErrQuotationForbidden) {
		t.Fatalf("expected ErrQuotationForbidden, got %v", err)
	}
	if _, err := svc.GetQuotation(ctx, QuotationReadCommand{QuotationID: quotation.ID, AsStaff: true}); err != nil {
		t.Fatalf("staff read: %v", err)
	}
	if err := svc.Delete(ctx, DeleteQuotationCommand{QuotationID: quotation.ID, UserID: "user-1"}); !errors.Is(err, ErrQuotationInvalidTransition) {
		t.Fatalf("expected submitted quotations to be undeletable by buyers, got %v", err)
	}
}
