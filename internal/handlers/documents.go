package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fitline/api/internal/platform/auth"
	"github.com/fitline/api/internal/platform/httpx"
	"github.com/fitline/api/internal/services"
)

// DocumentHandlers serves printable HTML sheets for orders and quotations.
type DocumentHandlers struct {
	authn *auth.Authenticator
	docs  services.DocumentService
}

// NewDocumentHandlers constructs the document endpoints.
func NewDocumentHandlers(authn *auth.Authenticator, docs services.DocumentService) *DocumentHandlers {
	return &DocumentHandlers{authn: authn, docs: docs}
}

// Routes wires the document endpoints onto the provided router.
func (h *DocumentHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireFirebaseAuth())
	}
	r.Get("/orders/{orderID}", h.orderSheet)
	r.Get("/orders/{orderID}/receipt", h.orderReceipt)
	r.Get("/quotations/{quotationID}", h.quotationSheet)
}

func (h *DocumentHandlers) orderSheet(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.requireDocs(w, r)
	if !ok {
		return
	}
	doc, err := h.docs.RenderOrderSheet(r.Context(), services.RenderDocumentCommand{
		DocumentID: chi.URLParam(r, "orderID"),
		UserID:     identity.UID,
		AsStaff:    identity.HasAnyRole(auth.RoleStaff, auth.RoleAdmin),
	})
	if err != nil {
		h.writeDocumentError(w, r, err)
		return
	}
	writeHTMLDocument(w, doc)
}

func (h *DocumentHandlers) orderReceipt(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.requireDocs(w, r)
	if !ok {
		return
	}
	doc, err := h.docs.RenderReceipt(r.Context(), services.RenderDocumentCommand{
		DocumentID: chi.URLParam(r, "orderID"),
		UserID:     identity.UID,
		AsStaff:    identity.HasAnyRole(auth.RoleStaff, auth.RoleAdmin),
	})
	if err != nil {
		h.writeDocumentError(w, r, err)
		return
	}
	writeHTMLDocument(w, doc)
}

func (h *DocumentHandlers) quotationSheet(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.requireDocs(w, r)
	if !ok {
		return
	}
	doc, err := h.docs.RenderQuotationSheet(r.Context(), services.RenderDocumentCommand{
		DocumentID: chi.URLParam(r, "quotationID"),
		UserID:     identity.UID,
		AsStaff:    identity.HasAnyRole(auth.RoleStaff, auth.RoleAdmin),
	})
	if err != nil {
		h.writeDocumentError(w, r, err)
		return
	}
	writeHTMLDocument(w, doc)
}

func (h *DocumentHandlers) requireDocs(w http.ResponseWriter, r *http.Request) (*auth.Identity, bool) {
	ctx := r.Context()
	if h.docs == nil {
		httpx.WriteError(ctx, w, httpx.NewError("document_service_unavailable", "document service is unavailable", http.StatusServiceUnavailable))
		return nil, false
	}
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok || identity == nil || identity.UID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return nil, false
	}
	return identity, true
}

func (h *DocumentHandlers) writeDocumentError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	switch {
	case errors.Is(err, services.ErrDocumentInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrDocumentForbidden):
		httpx.WriteError(ctx, w, httpx.NewError("document_forbidden", "document does not belong to the caller", http.StatusForbidden))
	case errors.Is(err, services.ErrDocumentNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("document_not_found", "document not found", http.StatusNotFound))
	case errors.Is(err, services.ErrDocumentUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("document_service_unavailable", "document storage is unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("document_error", "failed to render document", http.StatusInternalServerError))
	}
}

func writeHTMLDocument(w http.ResponseWriter, doc services.RenderedDocument) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(doc.HTML))
}
