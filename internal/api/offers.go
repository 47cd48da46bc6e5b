package api

import (
	"encoding/json"
	"net/http"

	"exchange-market/internal/lifecycle"
	"exchange-market/internal/models"
	errs "exchange-market/pkg/errors"
)

type createOfferRequest struct {
	ListingID int64   `json:"listing_id"`
	Message   *string `json:"message"`
	Items     []struct {
		ProductID int64            `json:"product_id"`
		Quantity  int              `json:"quantity"`
		Condition models.Condition `json:"condition"`
	} `json:"items"`
}

func (s *Server) createOffer(w http.ResponseWriter, r *http.Request) {
	var req createOfferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, s.log, errs.NewValidation("api.createOffer", "invalid body", err))
		return
	}
	in := lifecycle.OfferInput{ListingID: req.ListingID, Message: req.Message}
	for _, it := range req.Items {
		in.Items = append(in.Items, lifecycle.OfferItemInput{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Condition: it.Condition,
		})
	}
	o, err := s.orc.CreateOffer(r.Context(), caller(r), in)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

func (s *Server) incomingOffers(w http.ResponseWriter, r *http.Request) {
	items, err := s.orc.IncomingOffers(r.Context(), caller(r))
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	if items == nil {
		items = []models.OfferView{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) outgoingOffers(w http.ResponseWriter, r *http.Request) {
	items, err := s.orc.OutgoingOffers(r.Context(), caller(r))
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	if items == nil {
		items = []models.OfferView{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) getOffer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	o, err := s.orc.GetOffer(r.Context(), caller(r), id)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (s *Server) acceptOffer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	res, err := s.orc.AcceptOffer(r.Context(), caller(r), id)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) rejectOffer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	o, err := s.orc.RejectOffer(r.Context(), caller(r), id)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (s *Server) cancelOffer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	o, err := s.orc.CancelOffer(r.Context(), caller(r), id)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}
