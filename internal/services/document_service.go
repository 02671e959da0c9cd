package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	domain "github.com/fitline/api/internal/domain"
	"github.com/fitline/api/internal/repositories"
)

// Document service sentinel errors.
var (
	ErrDocumentInvalidInput = errors.New("document: invalid input")
	ErrDocumentNotFound     = errors.New("document: not found")
	ErrDocumentForbidden    = errors.New("document: access denied")
	ErrDocumentUnavailable  = errors.New("document: storage unavailable")
)

// memoHTMLPolicy strips all markup from buyer supplied memos before they are
// placed in a rendered sheet.
var memoHTMLPolicy = bluemonday.StrictPolicy()

var amountPrinter = message.NewPrinter(language.Korean)

var sheetTemplate = template.Must(template.New("sheet").Parse(`<!DOCTYPE html>
<html lang="ko">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: "Malgun Gothic", sans-serif; margin: 2rem; color: #222; }
h1 { font-size: 1.4rem; border-bottom: 2px solid #222; padding-bottom: .4rem; }
p.meta { color: #666; font-size: .85rem; }
table { width: 100%; border-collapse: collapse; margin-top: 1rem; }
th, td { border: 1px solid #999; padding: .35rem .5rem; font-size: .85rem; }
th { background: #f0f0f0; }
td.num { text-align: right; }
tfoot td { font-weight: bold; }
p.memo { margin-top: 1.2rem; padding: .6rem; background: #fafafa; border: 1px solid #ddd; white-space: pre-wrap; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<p class="meta">{{.Reference}} &middot; {{.IssuedAt}}</p>
{{- if .DeliveryLocation}}
<p>납품처: {{.DeliveryLocation}}{{if .DeliveryAddress}} ({{.DeliveryAddress}}){{end}}{{if .DeliveryContact}} / {{.DeliveryContact}}{{end}}</p>
{{- end}}
<table>
<thead>
<tr><th>품명</th><th>두께</th><th>규격</th><th>재질</th><th>단가</th><th>수량</th><th>금액</th></tr>
</thead>
<tbody>
{{- range .Lines}}
<tr><td>{{.Name}}</td><td>{{.Thickness}}</td><td>{{.Size}}</td><td>{{.Material}}</td><td class="num">{{.UnitPrice}}</td><td class="num">{{.Quantity}}</td><td class="num">{{.Amount}}</td></tr>
{{- end}}
</tbody>
<tfoot>
<tr><td colspan="6">합계</td><td class="num">{{.Total}}</td></tr>
</tfoot>
</table>
{{- if .Memo}}
<p class="memo">{{.Memo}}</p>
{{- end}}
</body>
</html>
`))

type sheetLine struct {
	Name      string
	Thickness string
	Size      string
	Material  string
	UnitPrice string
	Quantity  string
	Amount    string
}

type sheetView struct {
	Title            string
	Reference        string
	IssuedAt         string
	DeliveryLocation string
	DeliveryAddress  string
	DeliveryContact  string
	Lines            []sheetLine
	Total            string
	Memo             string
}

// DocumentServiceDeps lists collaborators required by the document service.
type DocumentServiceDeps struct {
	Orders     repositories.OrderRepository
	Quotations repositories.QuotationRepository
	Clock      func() time.Time
}

type documentService struct {
	orders     repositories.OrderRepository
	quotations repositories.QuotationRepository
	clock      func() time.Time
}

// NewDocumentService builds a DocumentService rendering printable HTML sheets.
func NewDocumentService(deps DocumentServiceDeps) (DocumentService, error) {
	if deps.Orders == nil {
		return nil, fmt.Errorf("%w: order repository is required", ErrDocumentInvalidInput)
	}
	if deps.Quotations == nil {
		return nil, fmt.Errorf("%w: quotation repository is required", ErrDocumentInvalidInput)
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &documentService{
		orders:     deps.Orders,
		quotations: deps.Quotations,
		clock:      func() time.Time { return clock().UTC() },
	}, nil
}

var _ DocumentService = (*documentService)(nil)

func (s *documentService) RenderOrderSheet(ctx context.Context, cmd RenderDocumentCommand) (RenderedDocument, error) {
	orderID := strings.TrimSpace(cmd.DocumentID)
	if orderID == "" {
		return RenderedDocument{}, fmt.Errorf("%w: order id is required", ErrDocumentInvalidInput)
	}
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return RenderedDocument{}, s.translateRepoError(err)
	}
	if !cmd.AsStaff && order.UserID != strings.TrimSpace(cmd.UserID) {
		return RenderedDocument{}, fmt.Errorf("%w: %s", ErrDocumentForbidden, orderID)
	}

	title := "발주서 " + order.OrderNumber
	view := sheetView{
		Title:            title,
		Reference:        order.OrderNumber,
		IssuedAt:         s.clock().Format("2006-01-02"),
		DeliveryLocation: order.Delivery.Location,
		DeliveryAddress:  order.Delivery.Address,
		DeliveryContact:  order.Delivery.Contact,
		Lines:            buildSheetLines(order.Items),
		Total:            formatAmount(order.TotalAmount),
		Memo:             sanitizeMemo(order.Memo),
	}
	return s.render(title, view)
}

// RenderReceipt renders the settlement receipt for an order. Receipts exist
// only once staff have priced the order, so earlier lifecycle states are
// rejected.
func (s *documentService) RenderReceipt(ctx context.Context, cmd RenderDocumentCommand) (RenderedDocument, error) {
	orderID := strings.TrimSpace(cmd.DocumentID)
	if orderID == "" {
		return RenderedDocument{}, fmt.Errorf("%w: order id is required", ErrDocumentInvalidInput)
	}
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return RenderedDocument{}, s.translateRepoError(err)
	}
	if !cmd.AsStaff && order.UserID != strings.TrimSpace(cmd.UserID) {
		return RenderedDocument{}, fmt.Errorf("%w: %s", ErrDocumentForbidden, orderID)
	}
	if order.Status != domain.OrderStatusProcessed && order.Status != domain.OrderStatusCompleted {
		return RenderedDocument{}, fmt.Errorf("%w: order %s has not been settled", ErrDocumentInvalidInput, orderID)
	}

	title := "영수증 " + order.OrderNumber
	view := sheetView{
		Title:            title,
		Reference:        order.OrderNumber,
		IssuedAt:         s.clock().Format("2006-01-02"),
		DeliveryLocation: order.Delivery.Location,
		DeliveryAddress:  order.Delivery.Address,
		DeliveryContact:  order.Delivery.Contact,
		Lines:            buildSheetLines(order.Items),
		Total:            formatAmount(order.TotalAmount),
		Memo:             sanitizeMemo(order.Memo),
	}
	return s.render(title, view)
}

func (s *documentService) RenderQuotationSheet(ctx context.Context, cmd RenderDocumentCommand) (RenderedDocument, error) {
	quotationID := strings.TrimSpace(cmd.DocumentID)
	if quotationID == "" {
		return RenderedDocument{}, fmt.Errorf("%w: quotation id is required", ErrDocumentInvalidInput)
	}
	quotation, err := s.quotations.FindByID(ctx, quotationID)
	if err != nil {
		return RenderedDocument{}, s.translateRepoError(err)
	}
	if !cmd.AsStaff && quotation.UserID != strings.TrimSpace(cmd.UserID) {
		return RenderedDocument{}, fmt.Errorf("%w: %s", ErrDocumentForbidden, quotationID)
	}

	title := "견적의뢰서 " + quotation.ID
	view := sheetView{
		Title:     title,
		Reference: quotation.ID,
		IssuedAt:  s.clock().Format("2006-01-02"),
		Lines:     buildSheetLines(quotation.Items),
		Total:     formatAmount(quotation.TotalAmount),
		Memo:      sanitizeMemo(quotation.Memo),
	}
	return s.render(title, view)
}

func (s *documentService) render(title string, view sheetView) (RenderedDocument, error) {
	var buf bytes.Buffer
	if err := sheetTemplate.Execute(&buf, view); err != nil {
		return RenderedDocument{}, fmt.Errorf("document: render %q: %w", title, err)
	}
	return RenderedDocument{
		Title:       title,
		HTML:        buf.String(),
		GeneratedAt: s.clock(),
	}, nil
}

func (s *documentService) translateRepoError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		if repoErr.IsNotFound() {
			return ErrDocumentNotFound
		}
		return ErrDocumentUnavailable
	}
	return ErrDocumentUnavailable
}

func buildSheetLines(items []domain.LineItem) []sheetLine {
	lines := make([]sheetLine, 0, len(items))
	for _, item := range items {
		lines = append(lines, sheetLine{
			Name:      item.Name,
			Thickness: item.Thickness,
			Size:      item.Size,
			Material:  item.Material,
			UnitPrice: formatAmount(item.UnitPrice),
			Quantity:  amountPrinter.Sprintf("%d", item.Quantity),
			Amount:    formatAmount(item.Amount),
		})
	}
	return lines
}

// formatAmount renders a won amount with thousand separators.
func formatAmount(amount int64) string {
	return amountPrinter.Sprintf("%d", amount)
}

func sanitizeMemo(memo string) string {
	return strings.TrimSpace(memoHTMLPolicy.Sanitize(memo))
}
