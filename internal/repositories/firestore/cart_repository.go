package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/fitline/api/internal/domain"
	pfirestore "github.com/fitline/api/internal/platform/firestore"
	"github.com/fitline/api/internal/repositories"
)

const cartCollection = "carts"

// CartRepository persists one cart document per user within Firestore.
type CartRepository struct {
	base *pfirestore.BaseRepository[cartDocument]
}

// NewCartRepository constructs a Firestore-backed cart repository.
func NewCartRepository(provider *pfirestore.Provider) (*CartRepository, error) {
	if provider == nil {
		return nil, errors.New("cart repository: firestore provider is required")
	}
	base := pfirestore.NewBaseRepository[cartDocument](provider, cartCollection, nil, nil)
	return &CartRepository{base: base}, nil
}

// GetCart loads the cart document for the given user ID.
func (r *CartRepository) GetCart(ctx context.Context, userID string) (domain.Cart, error) {
	if r == nil || r.base == nil {
		return domain.Cart{}, errors.New("cart repository not initialised")
	}
	uid := strings.TrimSpace(userID)
	if uid == "" {
		return domain.Cart{}, errors.New("cart repository: user id is required")
	}

	doc, err := r.base.Get(ctx, uid)
	if err != nil {
		return domain.Cart{}, err
	}

	cart := domain.Cart{
		ID:     doc.ID,
		UserID: doc.ID,
		Memo:   strings.TrimSpace(doc.Data.Memo),
		Items:  decodeLineItems(doc.Data.Items),
		CreatedAt: func() time.Time {
			if !doc.Data.CreatedAt.IsZero() {
				return doc.Data.CreatedAt
			}
			return doc.CreateTime
		}(),
		UpdatedAt: func() time.Time {
			if !doc.UpdateTime.IsZero() {
				return doc.UpdateTime
			}
			return doc.Data.UpdatedAt
		}(),
	}
	return cart, nil
}

// SaveCart upserts the whole cart document, optionally guarded by the last
// known update time for optimistic locking.
func (r *CartRepository) SaveCart(ctx context.Context, cart domain.Cart, expectedUpdate *time.Time) (domain.Cart, error) {
	if r == nil || r.base == nil {
		return domain.Cart{}, errors.New("cart repository not initialised")
	}

	cartID := strings.TrimSpace(cart.ID)
	if cartID == "" {
		cartID = strings.TrimSpace(cart.UserID)
	}
	if cartID == "" {
		return domain.Cart{}, errors.New("cart repository: cart id is required")
	}

	now := time.Now().UTC()
	if !cart.UpdatedAt.IsZero() {
		now = cart.UpdatedAt.UTC()
	}
	createdAt := cart.CreatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = now
	}

	doc := cartDocument{
		Memo:      strings.TrimSpace(cart.Memo),
		Items:     encodeLineItems(cart.Items),
		CreatedAt: createdAt,
		UpdatedAt: now,
	}

	var opts []firestore.Precondition
	if expectedUpdate != nil && !expectedUpdate.IsZero() {
		opts = append(opts, firestore.LastUpdateTime(expectedUpdate.UTC()))
	}

	var result pfirestore.MutationResult
	var err error
	if len(opts) == 0 {
		result, err = r.base.Set(ctx, cartID, doc)
	} else {
		docRef, refErr := r.base.DocumentRef(ctx, cartID)
		if refErr != nil {
			return domain.Cart{}, refErr
		}
		writeResult, writeErr := docRef.Update(ctx, []firestore.Update{
			{Path: "memo", Value: doc.Memo},
			{Path: "items", Value: doc.Items},
			{Path: "updatedAt", Value: doc.UpdatedAt},
		}, opts...)
		if writeErr != nil {
			return domain.Cart{}, pfirestore.WrapError("carts.save", writeErr)
		}
		result = pfirestore.MutationResult{UpdateTime: writeResult.UpdateTime}
	}
	if err != nil {
		return domain.Cart{}, err
	}

	saved := cart
	saved.ID = cartID
	saved.UserID = cartID
	saved.Memo = doc.Memo
	saved.Items = decodeLineItems(doc.Items)
	saved.CreatedAt = createdAt
	saved.UpdatedAt = result.UpdateTime
	return saved, nil
}

// DeleteCart removes the cart document entirely.
func (r *CartRepository) DeleteCart(ctx context.Context, userID string) error {
	if r == nil || r.base == nil {
		return errors.New("cart repository not initialised")
	}
	uid := strings.TrimSpace(userID)
	if uid == "" {
		return errors.New("cart repository: user id is required")
	}
	_, err := r.base.Delete(ctx, uid)
	return err
}

type cartDocument struct {
	Memo      string             `firestore:"memo,omitempty"`
	Items     []lineItemDocument `firestore:"items"`
	CreatedAt time.Time          `firestore:"createdAt"`
	UpdatedAt time.Time          `firestore:"updatedAt"`
}

var _ repositories.CartRepository = (*CartRepository)(nil)
