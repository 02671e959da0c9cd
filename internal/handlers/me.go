package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	domain "github.com/fitline/api/internal/domain"
	"github.com/fitline/api/internal/platform/auth"
	"github.com/fitline/api/internal/platform/httpx"
	"github.com/fitline/api/internal/services"
)

const maxProfileBodyBytes = 16 * 1024

// MeHandlers serves the caller's own member profile.
type MeHandlers struct {
	authn   *auth.Authenticator
	members services.MemberService
}

// NewMeHandlers constructs the profile endpoints.
func NewMeHandlers(authn *auth.Authenticator, members services.MemberService) *MeHandlers {
	return &MeHandlers{authn: authn, members: members}
}

// Routes wires the profile endpoints onto the provided router.
func (h *MeHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireFirebaseAuth())
	}
	r.Get("/", h.getProfile)
	r.Patch("/", h.updateProfile)
}

func (h *MeHandlers) getProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := h.requireMembers(w, r)
	if !ok {
		return
	}

	member, err := h.members.GetMember(ctx, identity.UID)
	if err != nil {
		writeMemberServiceError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildMemberPayload(member))
}

type updateProfileRequest struct {
	CompanyName             *string `json:"companyName"`
	ContactName             *string `json:"contactName"`
	Phone                   *string `json:"phone"`
	DefaultDeliveryLocation *string `json:"defaultDeliveryLocation"`
}

func (h *MeHandlers) updateProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := h.requireMembers(w, r)
	if !ok {
		return
	}

	body, err := readLimitedBody(r, maxProfileBodyBytes)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	var req updateProfileRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return
	}

	member, err := h.members.UpdateProfile(ctx, services.UpdateMemberProfileCommand{
		MemberID:                identity.UID,
		ActorID:                 identity.UID,
		CompanyName:             req.CompanyName,
		ContactName:             req.ContactName,
		Phone:                   req.Phone,
		DefaultDeliveryLocation: req.DefaultDeliveryLocation,
	})
	if err != nil {
		writeMemberServiceError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildMemberPayload(member))
}

func (h *MeHandlers) requireMembers(w http.ResponseWriter, r *http.Request) (*auth.Identity, bool) {
	ctx := r.Context()
	if h.members == nil {
		httpx.WriteError(ctx, w, httpx.NewError("member_service_unavailable", "member service is unavailable", http.StatusServiceUnavailable))
		return nil, false
	}
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok || identity == nil || identity.UID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return nil, false
	}
	return identity, true
}

func writeMemberServiceError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	switch {
	case errors.Is(err, services.ErrMemberInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrMemberNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("member_not_found", "member not found", http.StatusNotFound))
	case errors.Is(err, services.ErrMemberInvalidState):
		httpx.WriteError(ctx, w, httpx.NewError("member_invalid_state", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrMemberUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("member_service_unavailable", "member storage is unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("member_error", "failed to process member request", http.StatusInternalServerError))
	}
}

type memberPayload struct {
	ID                      string `json:"id"`
	Email                   string `json:"email,omitempty"`
	CompanyName             string `json:"companyName,omitempty"`
	ContactName             string `json:"contactName,omitempty"`
	Phone                   string `json:"phone,omitempty"`
	Role                    string `json:"role"`
	Status                  string `json:"status"`
	DefaultDeliveryLocation string `json:"defaultDeliveryLocation,omitempty"`
	CreatedAt               string `json:"createdAt,omitempty"`
	UpdatedAt               string `json:"updatedAt,omitempty"`
	ApprovedAt              string `json:"approvedAt,omitempty"`
}

func buildMemberPayload(member domain.Member) memberPayload {
	return memberPayload{
		ID:                      member.ID,
		Email:                   member.Email,
		CompanyName:             member.CompanyName,
		ContactName:             member.ContactName,
		Phone:                   member.Phone,
		Role:                    string(member.Role),
		Status:                  string(member.Status),
		DefaultDeliveryLocation: member.DefaultDeliveryLocation,
		CreatedAt:               formatTime(member.CreatedAt),
		UpdatedAt:               formatTime(member.UpdatedAt),
		ApprovedAt:              formatTimePtr(member.ApprovedAt),
	}
}
