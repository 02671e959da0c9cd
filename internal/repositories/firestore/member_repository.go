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

const membersCollection = "members"

// MemberRepository persists trading-partner accounts within Firestore.
type MemberRepository struct {
	base *pfirestore.BaseRepository[memberDocument]
}

// NewMemberRepository constructs a Firestore-backed member repository.
func NewMemberRepository(provider *pfirestore.Provider) (*MemberRepository, error) {
	if provider == nil {
		return nil, errors.New("member repository: firestore provider is required")
	}
	base := pfirestore.NewBaseRepository[memberDocument](provider, membersCollection, nil, nil)
	return &MemberRepository{base: base}, nil
}

// FindByID fetches a single member account.
func (r *MemberRepository) FindByID(ctx context.Context, memberID string) (domain.Member, error) {
	if r == nil || r.base == nil {
		return domain.Member{}, errors.New("member repository not initialised")
	}
	memberID = strings.TrimSpace(memberID)
	if memberID == "" {
		return domain.Member{}, errors.New("member repository: member id is required")
	}
	doc, err := r.base.Get(ctx, memberID)
	if err != nil {
		return domain.Member{}, err
	}
	return decodeMemberDocument(doc.ID, doc.Data), nil
}

// Upsert stores the member profile under its account ID.
func (r *MemberRepository) Upsert(ctx context.Context, member domain.Member) (domain.Member, error) {
	if r == nil || r.base == nil {
		return domain.Member{}, errors.New("member repository not initialised")
	}
	memberID := strings.TrimSpace(member.ID)
	if memberID == "" {
		return domain.Member{}, errors.New("member repository: member id is required")
	}
	doc := encodeMemberDocument(member)
	result, err := r.base.Set(ctx, memberID, doc)
	if err != nil {
		return domain.Member{}, err
	}
	saved := decodeMemberDocument(memberID, doc)
	saved.UpdatedAt = result.UpdateTime
	return saved, nil
}

// List returns members ordered by registration time, optionally filtered by
// approval status.
func (r *MemberRepository) List(ctx context.Context, filter repositories.MemberListFilter) (domain.CursorPage[domain.Member], error) {
	if r == nil || r.base == nil {
		return domain.CursorPage[domain.Member]{}, errors.New("member repository not initialised")
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
			return domain.CursorPage[domain.Member]{}, fmt.Errorf("member repository: invalid page token: %w", err)
		}
		startAfter = []any{tokenTime, tokenID}
	}

	statuses := make([]string, 0, len(filter.Status))
	for _, status := range filter.Status {
		if trimmed := strings.TrimSpace(string(status)); trimmed != "" {
			statuses = append(statuses, trimmed)
		}
	}

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		if len(statuses) == 1 {
			q = q.Where("status", "==", statuses[0])
		} else if len(statuses) > 1 {
			if len(statuses) > 10 {
				statuses = statuses[:10]
			}
			q = q.Where("status", "in", statuses)
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
		return domain.CursorPage[domain.Member]{}, err
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

	items := make([]domain.Member, 0, len(docs))
	for _, doc := range docs {
		items = append(items, decodeMemberDocument(doc.ID, doc.Data))
	}
	return domain.CursorPage[domain.Member]{Items: items, NextPageToken: nextToken}, nil
}

type memberDocument struct {
	Email                   string     `firestore:"email"`
	CompanyName             string     `firestore:"companyName,omitempty"`
	ContactName             string     `firestore:"contactName,omitempty"`
	Phone                   string     `firestore:"phone,omitempty"`
	Role                    string     `firestore:"role"`
	Status                  string     `firestore:"status"`
	DefaultDeliveryLocation string     `firestore:"defaultDeliveryLocation,omitempty"`
	CreatedAt               time.Time  `firestore:"createdAt"`
	UpdatedAt               time.Time  `firestore:"updatedAt"`
	ApprovedAt              *time.Time `firestore:"approvedAt,omitempty"`
}

func encodeMemberDocument(member domain.Member) memberDocument {
	return memberDocument{
		Email:                   strings.TrimSpace(member.Email),
		CompanyName:             strings.TrimSpace(member.CompanyName),
		ContactName:             strings.TrimSpace(member.ContactName),
		Phone:                   strings.TrimSpace(member.Phone),
		Role:                    strings.TrimSpace(string(member.Role)),
		Status:                  strings.TrimSpace(string(member.Status)),
		DefaultDeliveryLocation: strings.TrimSpace(member.DefaultDeliveryLocation),
		CreatedAt:               member.CreatedAt.UTC(),
		UpdatedAt:               member.UpdatedAt.UTC(),
		ApprovedAt:              normalizeTimePointer(member.ApprovedAt),
	}
}

func decodeMemberDocument(id string, doc memberDocument) domain.Member {
	return domain.Member{
		ID:                      id,
		Email:                   doc.Email,
		CompanyName:             doc.CompanyName,
		ContactName:             doc.ContactName,
		Phone:                   doc.Phone,
		Role:                    domain.MemberRole(doc.Role),
		Status:                  domain.MemberStatus(doc.Status),
		DefaultDeliveryLocation: doc.DefaultDeliveryLocation,
		CreatedAt:               doc.CreatedAt,
		UpdatedAt:               doc.UpdatedAt,
		ApprovedAt:              normalizeTimePointer(doc.ApprovedAt),
	}
}

var _ repositories.MemberRepository = (*MemberRepository)(nil)
