package api

import (
	"encoding/json"
	"net/http"

	"exchange-market/internal/models"
	errs "exchange-market/pkg/errors"
)

func (s *Server) myDeals(w http.ResponseWriter, r *http.Request) {
	items, err := s.orc.MyDeals(r.Context(), caller(r))
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	if items == nil {
		items = []models.DealView{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) getDeal(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	v, err := s.orc.GetDeal(r.Context(), caller(r), id)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) confirmDeal(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	d, err := s.orc.ConfirmDeal(r.Context(), caller(r), id)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) cancelDeal(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	d, err := s.orc.CancelDeal(r.Context(), caller(r), id)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

type createReviewRequest struct {
	DealID  int64   `json:"deal_id"`
	Rating  int     `json:"rating"`
	Comment *string `json:"comment"`
}

func (s *Server) createReview(w http.ResponseWriter, r *http.Request) {
	var req createReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, s.log, errs.NewValidation("api.createReview", "invalid body", err))
		return
	}
	rv, err := s.orc.CreateReview(r.Context(), caller(r), req.DealID, req.Rating, req.Comment)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, rv)
}

type userReviewsResponse struct {
	Reviews []models.Review `json:"reviews"`
	Average float64         `json:"average_rating"`
}

func (s *Server) userReviews(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	reviews, avg, err := s.orc.UserReviews(r.Context(), id)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	if reviews == nil {
		reviews = []models.Review{}
	}
	writeJSON(w, http.StatusOK, userReviewsResponse{Reviews: reviews, Average: avg})
}

func (s *Server) listProducts(w http.ResponseWriter, r *http.Request) {
	items, err := s.orc.Products(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	if items == nil {
		items = []models.Product{}
	}
	writeJSON(w, http.StatusOK, items)
}
