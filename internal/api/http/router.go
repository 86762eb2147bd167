package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"memberhub-backend/internal/security"
)

// NewRouter wires the command surface. Everything under /api/v1 requires a
// bearer token; /healthz does not.
func NewRouter(members *MembershipHandler, geo *GeographyHandler, tokens security.TokenManager) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(AuthMiddleware(tokens))

	api.HandleFunc("/memberships", members.Create).Methods(http.MethodPost)
	api.HandleFunc("/memberships/{id:[0-9]+}", members.Get).Methods(http.MethodGet)
	api.HandleFunc("/memberships/{id:[0-9]+}/history", members.History).Methods(http.MethodGet)
	api.HandleFunc("/memberships/{id:[0-9]+}/submit", members.Submit).Methods(http.MethodPost)
	api.HandleFunc("/memberships/{id:[0-9]+}/verify", members.Verify).Methods(http.MethodPost)
	api.HandleFunc("/memberships/{id:[0-9]+}/request-payment", members.RequestPayment).Methods(http.MethodPost)
	api.HandleFunc("/memberships/{id:[0-9]+}/confirm-payment", members.ConfirmPayment).Methods(http.MethodPost)
	api.HandleFunc("/memberships/{id:[0-9]+}/suspend", members.Suspend).Methods(http.MethodPost)
	api.HandleFunc("/memberships/{id:[0-9]+}/reinstate", members.Reinstate).Methods(http.MethodPost)
	api.HandleFunc("/memberships/{id:[0-9]+}/terminate", members.Terminate).Methods(http.MethodPost)
	api.HandleFunc("/memberships/{id:[0-9]+}/geography", members.EnrichGeography).Methods(http.MethodPost)

	api.HandleFunc("/geography/nodes", geo.CreateNode).Methods(http.MethodPost)
	api.HandleFunc("/geography/nodes/{id:[0-9]+}", geo.GetNode).Methods(http.MethodGet)
	api.HandleFunc("/geography/nodes/{id:[0-9]+}/retire", geo.RetireNode).Methods(http.MethodPost)
	api.HandleFunc("/geography/nodes/{id:[0-9]+}/children", geo.ListChildren).Methods(http.MethodGet)
	api.HandleFunc("/geography/search", geo.Search).Methods(http.MethodGet)
	api.HandleFunc("/geography/review-queue", geo.ReviewQueue).Methods(http.MethodGet)
	api.HandleFunc("/geography/review-queue/{id:[0-9]+}/resolve", geo.ResolveReview).Methods(http.MethodPost)

	return r
}
