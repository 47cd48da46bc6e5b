package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"exchange-market/internal/auth"
	"exchange-market/internal/lifecycle"
	"exchange-market/pkg/events"
	"exchange-market/pkg/logging"
	"exchange-market/pkg/metrics"
)

// Server wires the orchestrator to HTTP routes.
type Server struct {
	orc    *lifecycle.Orchestrator
	events events.Store
	log    *logging.ComponentLogger
}

func NewServer(orc *lifecycle.Orchestrator, ev events.Store, log *logging.Logger) *Server {
	s := &Server{orc: orc, events: ev}
	if log != nil {
		s.log = log.WithComponent("api")
	}
	return s
}

// Router builds the full route table. Browse and single-listing reads are
// public; everything else requires a bearer token.
func (s *Server) Router(authMw *auth.Middleware) *mux.Router {
	r := mux.NewRouter()
	r.Use(RequestID)
	r.Use(metrics.Middleware)

	api := r.PathPrefix("/api").Subrouter()

	// Per-route auth wrapping. One matcher-less subrouter for the private
	// surface would swallow public paths: mux never falls back to a later
	// route once a subrouter matched.
	authed := func(h http.HandlerFunc) http.Handler { return authMw.Require(h) }

	// Public reads. The single-listing read stays public so the view
	// counter covers anonymous readers too.
	api.HandleFunc("/listings", s.browseListings).Methods(http.MethodGet)
	api.HandleFunc("/products", s.listProducts).Methods(http.MethodGet)
	api.HandleFunc("/users/{id:[0-9]+}/reviews", s.userReviews).Methods(http.MethodGet)

	api.Handle("/listings", authed(s.createListing)).Methods(http.MethodPost)
	api.Handle("/listings/my", authed(s.myListings)).Methods(http.MethodGet)
	api.Handle("/listings/{id:[0-9]+}", authed(s.updateListing)).Methods(http.MethodPut)
	api.Handle("/listings/{id:[0-9]+}", authed(s.cancelListing)).Methods(http.MethodDelete)
	api.Handle("/listings/{id:[0-9]+}/events", authed(s.listingEvents)).Methods(http.MethodGet)

	api.Handle("/offers", authed(s.createOffer)).Methods(http.MethodPost)
	api.Handle("/offers/incoming", authed(s.incomingOffers)).Methods(http.MethodGet)
	api.Handle("/offers/outgoing", authed(s.outgoingOffers)).Methods(http.MethodGet)
	api.Handle("/offers/{id:[0-9]+}", authed(s.getOffer)).Methods(http.MethodGet)
	api.Handle("/offers/{id:[0-9]+}/accept", authed(s.acceptOffer)).Methods(http.MethodPost)
	api.Handle("/offers/{id:[0-9]+}/reject", authed(s.rejectOffer)).Methods(http.MethodPost)
	api.Handle("/offers/{id:[0-9]+}/cancel", authed(s.cancelOffer)).Methods(http.MethodPost)

	api.Handle("/deals", authed(s.myDeals)).Methods(http.MethodGet)
	api.Handle("/deals/{id:[0-9]+}", authed(s.getDeal)).Methods(http.MethodGet)
	api.Handle("/deals/{id:[0-9]+}/confirm", authed(s.confirmDeal)).Methods(http.MethodPost)
	api.Handle("/deals/{id:[0-9]+}/cancel", authed(s.cancelDeal)).Methods(http.MethodPost)

	api.Handle("/reviews", authed(s.createReview)).Methods(http.MethodPost)

	// /listings/my registers before this route in the table, but mux picks
	// the first match in registration order, so {id} must stay numeric.
	api.HandleFunc("/listings/{id:[0-9]+}", s.getListing).Methods(http.MethodGet)

	return r
}

// listingEvents returns the audit trail for a listing the caller owns.
func (s *Server) listingEvents(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	if _, err := s.orc.OwnListing(r.Context(), caller(r), id); err != nil {
		writeError(w, s.log, err)
		return
	}
	evs, err := s.events.ListByListing(r.Context(), id)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	if evs == nil {
		evs = []events.StoredEvent{}
	}
	writeJSON(w, http.StatusOK, evs)
}
