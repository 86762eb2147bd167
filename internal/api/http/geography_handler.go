package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"memberhub-backend/internal/domain"
	"memberhub-backend/internal/service"
)

// GeographyHandler exposes node seeding and hierarchy queries. Seeding is
// done once per tenant by a collaborator before enrichment can resolve
// anything to the verified tier.
type GeographyHandler struct {
	geoSvc service.GeographyService
}

func NewGeographyHandler(geoSvc service.GeographyService) *GeographyHandler {
	return &GeographyHandler{geoSvc: geoSvc}
}

func nodeID(r *http.Request) (int32, error) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 32)
	return int32(id), err
}

type createNodeRequest struct {
	OrgID    int32           `json:"org_id"`
	Name     string          `json:"name"`
	Level    domain.GeoLevel `json:"level"`
	ParentID *int32          `json:"parent_id,omitempty"`
}

func (h *GeographyHandler) CreateNode(w http.ResponseWriter, r *http.Request) {
	var req createNodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	node, err := h.geoSvc.CreateNode(r.Context(), req.OrgID, req.Name, req.Level, req.ParentID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, node)
}

func (h *GeographyHandler) GetNode(w http.ResponseWriter, r *http.Request) {
	id, err := nodeID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid node id")
		return
	}
	node, err := h.geoSvc.GetNode(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, node)
}

func (h *GeographyHandler) ListChildren(w http.ResponseWriter, r *http.Request) {
	id, err := nodeID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid node id")
		return
	}
	children, err := h.geoSvc.ListChildren(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, children)
}

func (h *GeographyHandler) RetireNode(w http.ResponseWriter, r *http.Request) {
	id, err := nodeID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid node id")
		return
	}
	if err := h.geoSvc.RetireNode(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ReviewQueue lists memberships parked by the enrichment batch for manual
// geography resolution.
func (h *GeographyHandler) ReviewQueue(w http.ResponseWriter, r *http.Request) {
	orgID, err := strconv.ParseInt(r.URL.Query().Get("org_id"), 10, 32)
	if err != nil {
		writeError(w, http.StatusBadRequest, "query parameter org_id is required")
		return
	}
	var limit int64
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if limit, err = strconv.ParseInt(raw, 10, 32); err != nil {
			writeError(w, http.StatusBadRequest, "invalid limit parameter")
			return
		}
	}
	items, err := h.geoSvc.ListReviewQueue(r.Context(), int32(orgID), int32(limit))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// ResolveReview closes a parked item after a person has assigned the
// geography out of band; the resolving actor comes from the bearer token.
func (h *GeographyHandler) ResolveReview(w http.ResponseWriter, r *http.Request) {
	membershipID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid membership id")
		return
	}
	if err := h.geoSvc.ResolveReviewItem(r.Context(), membershipID, actorFrom(r.Context())); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Search answers fuzzy name lookups, e.g. /api/v1/geography/search?org_id=1&q=Ward+7,+Kathmandu
func (h *GeographyHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeError(w, http.StatusBadRequest, "query parameter q is required")
		return
	}
	orgID, err := strconv.ParseInt(r.URL.Query().Get("org_id"), 10, 32)
	if err != nil {
		writeError(w, http.StatusBadRequest, "query parameter org_id is required")
		return
	}
	var within *int32
	if raw := r.URL.Query().Get("within"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 32)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid within parameter")
			return
		}
		w32 := int32(id)
		within = &w32
	}
	candidates, err := h.geoSvc.FindByApproximateName(r.Context(), int32(orgID), q, within)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, candidates)
}
