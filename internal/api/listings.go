package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"exchange-market/internal/auth"
	"exchange-market/internal/lifecycle"
	"exchange-market/internal/models"
	errs "exchange-market/pkg/errors"
)

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		return 0, errs.NewValidation("api.pathID", "invalid id", err)
	}
	return id, nil
}

func caller(r *http.Request) int64 {
	id, _ := auth.FromContext(r.Context())
	return id.UserID
}

type createListingRequest struct {
	ProductID         int64            `json:"product_id"`
	Quantity          int              `json:"quantity"`
	Condition         models.Condition `json:"condition"`
	Description       *string          `json:"description"`
	City              *string          `json:"city"`
	WantedDescription *string          `json:"wanted_description"`
}

func (s *Server) createListing(w http.ResponseWriter, r *http.Request) {
	var req createListingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, s.log, errs.NewValidation("api.createListing", "invalid body", err))
		return
	}
	l, err := s.orc.CreateListing(r.Context(), caller(r), lifecycle.ListingInput{
		ProductID:         req.ProductID,
		Quantity:          req.Quantity,
		Condition:         req.Condition,
		Description:       req.Description,
		City:              req.City,
		WantedDescription: req.WantedDescription,
	})
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, l)
}

type listingPage struct {
	Listings []models.ListingView `json:"listings"`
	Total    int                  `json:"total"`
	Page     int                  `json:"page"`
	Limit    int                  `json:"limit"`
}

func (s *Server) browseListings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := models.ListingFilter{
		City:     q.Get("city"),
		Category: q.Get("category"),
		Status:   models.ListingStatus(q.Get("status")),
	}
	f.ProductID, _ = strconv.ParseInt(q.Get("product_id"), 10, 64)
	f.Page, _ = strconv.Atoi(q.Get("page"))
	f.Limit, _ = strconv.Atoi(q.Get("limit"))
	f.Normalize()

	items, total, err := s.orc.ListListings(r.Context(), f)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	if items == nil {
		items = []models.ListingView{}
	}
	writeJSON(w, http.StatusOK, listingPage{Listings: items, Total: total, Page: f.Page, Limit: f.Limit})
}

func (s *Server) myListings(w http.ResponseWriter, r *http.Request) {
	items, err := s.orc.MyListings(r.Context(), caller(r))
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	if items == nil {
		items = []models.OwnerListing{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) getListing(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	v, err := s.orc.GetListing(r.Context(), id)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) updateListing(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	var upd models.ListingUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		writeError(w, s.log, errs.NewValidation("api.updateListing", "invalid body", err))
		return
	}
	l, err := s.orc.UpdateListing(r.Context(), caller(r), id, upd)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (s *Server) cancelListing(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	if err := s.orc.CancelListing(r.Context(), caller(r), id); err != nil {
		writeError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}
