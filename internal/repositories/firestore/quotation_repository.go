package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/fitline/api/internal/domain"
	pfirestore "github.com/fitline/api/internal/platform/firestore"
	"github.com/fitline/api/internal/repositories"
)

const quotationsCollection = "quotations"

// QuotationRepository persists quotation documents within Firestore.
type QuotationRepository struct {
	base *pfirestore.BaseRepository[quotationDocument]
}

// NewQuotationRepository constructs a Firestore-backed quotation repository.
func NewQuotationRepository(provider *pfirestore.Provider) (*QuotationRepository, error) {
	if provider == nil {
		return nil, errors.New("quotation repository: firestore provider is required")
	}
	base := pfirestore.NewBaseRepository[quotationDocument](provider, quotationsCollection, nil, nil)
	return &QuotationRepository{base: base}, nil
}

// Insert stores a new quotation document. The ID must be unique.
func (r *QuotationRepository) Insert(ctx context.Context, quotation domain.Quotation) error {
	if r == nil || r.base == nil {
		return errors.New("quotation repository not initialised")
	}
	quotationID := strings.TrimSpace(quotation.ID)
	if quotationID == "" {
		return errors.New("quotation repository: quotation id is required")
	}
	docRef, err := r.base.DocumentRef(ctx, quotationID)
	if err != nil {
		return err
	}
	if _, err := docRef.Create(ctx, encodeQuotationDocument(quotation)); err != nil {
		return pfirestore.WrapError("quotations.insert", err)
	}
	return nil
}

// Update replaces the persisted quotation state with the provided snapshot.
func (r *QuotationRepository) Update(ctx context.Context, quotation domain.Quotation) error {
	if r == nil || r.base == nil {
		return errors.New("quotation repository not initialised")
	}
	quotationID := strings.TrimSpace(quotation.ID)
	if quotationID == "" {
		return errors.New("quotation repository: quotation id is required")
	}
	if _, err := r.base.Set(ctx, quotationID, encodeQuotationDocument(quotation)); err != nil {
		return err
	}
	return nil
}

// Delete removes the quotation document.
func (r *QuotationRepository) Delete(ctx context.Context, quotationID string) error {
	if r == nil || r.base == nil {
		return errors.New("quotation repository not initialised")
	}
	quotationID = strings.TrimSpace(quotationID)
	if quotationID == "" {
		return errors.New("quotation repository: quotation id is required")
	}
	_, err := r.base.Delete(ctx, quotationID)
	return err
}

// FindByID fetches a single quotation.
func (r *QuotationRepository) FindByID(ctx context.Context, quotationID string) (domain.Quotation, error) {
	if r == nil || r.base == nil {
		return domain.Quotation{}, errors.New("quotation repository not initialised")
	}
	quotationID = strings.TrimSpace(quotationID)
	if quotationID == "" {
		return domain.Quotation{}, errors.New("quotation repository: quotation id is required")
	}
	doc, err := r.base.Get(ctx, quotationID)
	if err != nil {
		return domain.Quotation{}, err
	}
	return decodeQuotationDocument(doc.ID, doc.Data), nil
}

// List returns quotations ordered by most recent creation.
func (r *QuotationRepository) List(ctx context.Context, filter repositories.QuotationListFilter) (domain.CursorPage[domain.Quotation], error) {
	if r == nil || r.base == nil {
		return domain.CursorPage[domain.Quotation]{}, errors.New("quotation repository not initialised")
	}

	limit := filter.Pagination.PageSize
	if limit < 0 {
		limit = 0
	}
	fetchLimit := limit
	if limit > 0 {
		fetchLimit = limit + 1
	}

	var startAfter []any
	if token := strings.TrimSpace(filter.Pagination.PageToken); token != "" {
		tokenTime, tokenID, err := decodeListToken(token)
		if err != nil {
			return domain.CursorPage[domain.Quotation]{}, fmt.Errorf("quotation repository: invalid page token: %w", err)
		}
		startAfter = []any{tokenTime, tokenID}
	}

	userID := strings.TrimSpace(filter.UserID)
	statuses := make([]string, 0, len(filter.Status))
	for _, status := range filter.Status {
		if trimmed := strings.TrimSpace(string(status)); trimmed != "" {
			statuses = append(statuses, trimmed)
		}
	}

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		if userID != "" {
			q = q.Where("userId", "==", userID)
		}
		if len(statuses) == 1 {
			q = q.Where("status", "==", statuses[0])
		} else if len(statuses) > 1 {
			if len(statuses) > 10 {
				statuses = statuses[:10]
			}
			q = q.Where("status", "in", statuses)
		}
		if filter.DateRange.From != nil {
			q = q.Where("createdAt", ">=", filter.DateRange.From.UTC())
		}
		if filter.DateRange.To != nil {
			q = q.Where("createdAt", "<=", filter.DateRange.To.UTC())
		}
		q = q.OrderBy("createdAt", firestore.Desc).OrderBy(firestore.DocumentID, firestore.Desc)
		if len(startAfter) == 2 {
			q = q.StartAfter(startAfter...)
		}
		if fetchLimit > 0 {
			q = q.Limit(fetchLimit)
		}
		return q
	})
	if err != nil {
		return domain.CursorPage[domain.Quotation]{}, err
	}

	nextToken := ""
	if limit > 0 && len(docs) == fetchLimit {
		last := docs[len(docs)-1]
		tokenTime := last.Data.CreatedAt
		if tokenTime.IsZero() {
			tokenTime = last.CreateTime
		}
		nextToken = encodeListToken(tokenTime, last.ID)
		docs = docs[:len(docs)-1]
	}

	items := make([]domain.Quotation, 0, len(docs))
	for _, doc := range docs {
		items = append(items, decodeQuotationDocument(doc.ID, doc.Data))
	}
	return domain.CursorPage[domain.Quotation]{Items: items, NextPageToken: nextToken}, nil
}

type quotationDocument struct {
	UserID      string             `firestore:"userId"`
	Status      string             `firestore:"status"`
	Items       []lineItemDocument `firestore:"items"`
	Memo        string             `firestore:"memo,omitempty"`
	TotalAmount int64              `firestore:"totalAmount"`
	CreatedAt   time.Time          `firestore:"createdAt"`
	UpdatedAt   time.Time          `firestore:"updatedAt"`
	SubmittedAt *time.Time         `firestore:"submittedAt,omitempty"`
	CanceledAt  *time.Time         `firestore:"canceledAt,omitempty"`
}

func encodeQuotationDocument(quotation domain.Quotation) quotationDocument {
	return quotationDocument{
		UserID:      strings.TrimSpace(quotation.UserID),
		Status:      strings.TrimSpace(string(quotation.Status)),
		Items:       encodeLineItems(quotation.Items),
		Memo:        strings.TrimSpace(quotation.Memo),
		TotalAmount: quotation.TotalAmount,
		CreatedAt:   quotation.CreatedAt.UTC(),
		UpdatedAt:   quotation.UpdatedAt.UTC(),
		SubmittedAt: normalizeTimePointer(quotation.SubmittedAt),
		CanceledAt:  normalizeTimePointer(quotation.CanceledAt),
	}
}

func decodeQuotationDocument(id string, doc quotationDocument) domain.Quotation {
	return domain.Quotation{
		ID:          id,
		UserID:      doc.UserID,
		Status:      domain.QuotationStatus(doc.Status),
		Items:       decodeLineItems(doc.Items),
		Memo:        doc.Memo,
		TotalAmount: doc.TotalAmount,
		CreatedAt:   doc.CreatedAt,
		UpdatedAt:   doc.UpdatedAt,
		SubmittedAt: normalizeTimePointer(doc.SubmittedAt),
		CanceledAt:  normalizeTimePointer(doc.CanceledAt),
	}
}

var _ repositories.QuotationRepository = (*QuotationRepository)(nil)
