package firestore

import (
	"strings"
	"time"

	domain "github.com/fitline/api/internal/domain"
)

// lineItemDocument is the persisted shape shared by cart, order and
// quotation documents. Line items are value snapshots, never references.
type lineItemDocument struct {
	ID             string     `firestore:"id"`
	ProductID      string     `firestore:"productId,omitempty"`
	Name           string     `firestore:"name"`
	Thickness      string     `firestore:"thickness,omitempty"`
	Size           string     `firestore:"size,omitempty"`
	Material       string     `firestore:"material,omitempty"`
	Maker          string     `firestore:"maker,omitempty"`
	Location       string     `firestore:"location,omitempty"`
	UnitPrice      int64      `firestore:"unitPrice"`
	Quantity       int        `firestore:"quantity"`
	Amount         int64      `firestore:"amount"`
	SKUKey         string     `firestore:"skuKey,omitempty"`
	CurrentStock   int        `firestore:"currentStock"`
	MarkingWaitQty int        `firestore:"markingWaitQty,omitempty"`
	StockStatus    string     `firestore:"stockStatus,omitempty"`
	Verified       bool       `firestore:"verified"`
	AddedAt        time.Time  `firestore:"addedAt"`
	UpdatedAt      *time.Time `firestore:"updatedAt,omitempty"`
}

func encodeLineItems(items []domain.LineItem) []lineItemDocument {
	docs := make([]lineItemDocument, 0, len(items))
	for _, item := range items {
		docs = append(docs, lineItemDocument{
			ID:             strings.TrimSpace(item.ID),
			ProductID:      strings.TrimSpace(item.ProductID),
			Name:           strings.TrimSpace(item.Name),
			Thickness:      strings.TrimSpace(item.Thickness),
			Size:           strings.TrimSpace(item.Size),
			Material:       strings.TrimSpace(item.Material),
			Maker:          strings.TrimSpace(item.Maker),
			Location:       strings.TrimSpace(item.Location),
			UnitPrice:      item.UnitPrice,
			Quantity:       item.Quantity,
			Amount:         item.Amount,
			SKUKey:         strings.TrimSpace(item.SKUKey),
			CurrentStock:   item.CurrentStock,
			MarkingWaitQty: item.MarkingWaitQty,
			StockStatus:    string(item.StockStatus),
			Verified:       item.Verified,
			AddedAt:        item.AddedAt.UTC(),
			UpdatedAt:      normalizeTimePointer(item.UpdatedAt),
		})
	}
	return docs
}

func decodeLineItems(docs []lineItemDocument) []domain.LineItem {
	items := make([]domain.LineItem, 0, len(docs))
	for _, doc := range docs {
		items = append(items, domain.LineItem{
			ID:             doc.ID,
			ProductID:      doc.ProductID,
			Name:           doc.Name,
			Thickness:      doc.Thickness,
			Size:           doc.Size,
			Material:       doc.Material,
			Maker:          doc.Maker,
			Location:       doc.Location,
			UnitPrice:      doc.UnitPrice,
			Quantity:       doc.Quantity,
			Amount:         doc.Amount,
			SKUKey:         doc.SKUKey,
			CurrentStock:   doc.CurrentStock,
			MarkingWaitQty: doc.MarkingWaitQty,
			StockStatus:    domain.StockStatus(doc.StockStatus),
			Verified:       doc.Verified,
			AddedAt:        doc.AddedAt,
			UpdatedAt:      normalizeTimePointer(doc.UpdatedAt),
		})
	}
	return items
}

func normalizeTimePointer(value *time.Time) *time.Time {
	if value == nil || value.IsZero() {
		return nil
	}
	ts := value.UTC()
	return &ts
}

func sumLineAmounts(items []domain.LineItem) int64 {
	var total int64
	for _, item := range items {
		total += item.Amount
	}
	return total
}
