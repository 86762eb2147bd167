package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"memberhub-backend/internal/domain"
	"memberhub-backend/internal/service"
)

// MembershipHandler exposes the lifecycle commands over HTTP.
type MembershipHandler struct {
	memberSvc service.MembershipService
}

func NewMembershipHandler(memberSvc service.MembershipService) *MembershipHandler {
	return &MembershipHandler{memberSvc: memberSvc}
}

func membershipID(r *http.Request) (int64, error) {
	return strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
}

type createMembershipRequest struct {
	OrgID               int32  `json:"org_id"`
	ExternalIdentityRef string `json:"external_identity_ref"`
	SponsorID           *int64 `json:"sponsor_id,omitempty"`
	NotifyEmail         string `json:"notify_email,omitempty"`
	LocationText        string `json:"location_text,omitempty"`
}

func (h *MembershipHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createMembershipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	m, err := h.memberSvc.CreateMembership(r.Context(), req.OrgID, req.ExternalIdentityRef, req.SponsorID, req.NotifyEmail, req.LocationText)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (h *MembershipHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := membershipID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid membership id")
		return
	}
	m, err := h.memberSvc.GetMembership(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *MembershipHandler) History(w http.ResponseWriter, r *http.Request) {
	id, err := membershipID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid membership id")
		return
	}
	history, err := h.memberSvc.GetStatusHistory(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

// command wraps the shared id-parse / execute / respond cycle of the
// transition endpoints.
func (h *MembershipHandler) command(w http.ResponseWriter, r *http.Request, run func(id int64) (*domain.Membership, error)) {
	id, err := membershipID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid membership id")
		return
	}
	m, err := run(id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *MembershipHandler) Submit(w http.ResponseWriter, r *http.Request) {
	h.command(w, r, func(id int64) (*domain.Membership, error) {
		return h.memberSvc.Submit(r.Context(), id, actorFrom(r.Context()))
	})
}

func (h *MembershipHandler) Verify(w http.ResponseWriter, r *http.Request) {
	h.command(w, r, func(id int64) (*domain.Membership, error) {
		return h.memberSvc.Verify(r.Context(), id, actorFrom(r.Context()))
	})
}

func (h *MembershipHandler) RequestPayment(w http.ResponseWriter, r *http.Request) {
	h.command(w, r, func(id int64) (*domain.Membership, error) {
		return h.memberSvc.RequestPayment(r.Context(), id, actorFrom(r.Context()))
	})
}

type confirmPaymentRequest struct {
	PaymentRef string `json:"payment_ref"`
}

func (h *MembershipHandler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	var req confirmPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	h.command(w, r, func(id int64) (*domain.Membership, error) {
		return h.memberSvc.ConfirmPayment(r.Context(), id, actorFrom(r.Context()), req.PaymentRef)
	})
}

type suspendRequest struct {
	Reason string `json:"reason"`
}

func (h *MembershipHandler) Suspend(w http.ResponseWriter, r *http.Request) {
	var req suspendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	h.command(w, r, func(id int64) (*domain.Membership, error) {
		return h.memberSvc.Suspend(r.Context(), id, actorFrom(r.Context()), req.Reason)
	})
}

func (h *MembershipHandler) Reinstate(w http.ResponseWriter, r *http.Request) {
	h.command(w, r, func(id int64) (*domain.Membership, error) {
		return h.memberSvc.Reinstate(r.Context(), id, actorFrom(r.Context()))
	})
}

func (h *MembershipHandler) Terminate(w http.ResponseWriter, r *http.Request) {
	h.command(w, r, func(id int64) (*domain.Membership, error) {
		return h.memberSvc.Terminate(r.Context(), id, actorFrom(r.Context()))
	})
}

type enrichGeographyRequest struct {
	Tier         domain.GeographyTier `json:"tier"`
	LocationText string               `json:"location_text,omitempty"`
	NodeID       *int32               `json:"node_id,omitempty"`
	PathIDs      []int32              `json:"path_ids,omitempty"`
	PathNames    []string             `json:"path_names,omitempty"`
}

func (h *MembershipHandler) EnrichGeography(w http.ResponseWriter, r *http.Request) {
	var req enrichGeographyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	assignment := domain.GeographyAssignment{
		Tier:         req.Tier,
		LocationText: req.LocationText,
		NodeID:       req.NodeID,
		PathIDs:      req.PathIDs,
		PathNames:    req.PathNames,
	}
	h.command(w, r, func(id int64) (*domain.Membership, error) {
		return h.memberSvc.EnrichGeography(r.Context(), id, actorFrom(r.Context()), assignment)
	})
}
