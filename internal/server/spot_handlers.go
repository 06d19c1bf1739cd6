package server

import (
	"net/http"

	"github.com/shopspring/decimal"

	"marginDiary/internal/app"
	"marginDiary/internal/domain"
)

type spotRequest struct {
	Company   string           `json:"company"`
	Ticker    string           `json:"ticker"`
	Type      string           `json:"transactionType"`
	Price     *decimal.Decimal `json:"price"`
	Quantity  *decimal.Decimal `json:"quantity"`
	Amount    decimal.Decimal  `json:"amount"`
	TradeDate *dateOnly        `json:"tradeDate"`
	Note      string           `json:"note"`
}

func (req *spotRequest) draft() app.SpotDraft {
	d := app.SpotDraft{
		Company:  req.Company,
		Ticker:   req.Ticker,
		Type:     domain.SpotTransactionType(req.Type),
		Price:    req.Price,
		Quantity: req.Quantity,
		Amount:   req.Amount,
		Note:     req.Note,
	}
	if req.TradeDate != nil {
		t := req.TradeDate.Time
		d.TradeDate = &t
	}
	return d
}

type spotResponse struct {
	ID          int64            `json:"id"`
	PortfolioID int64            `json:"portfolioId"`
	Company     string           `json:"company,omitempty"`
	Ticker      string           `json:"ticker"`
	Type        string           `json:"transactionType"`
	Price       *decimal.Decimal `json:"price,omitempty"`
	Quantity    *decimal.Decimal `json:"quantity,omitempty"`
	Amount      decimal.Decimal  `json:"amount"`
	TradeDate   dateOnly         `json:"tradeDate"`
	Note        string           `json:"note,omitempty"`
}

func toSpotResponse(tx *domain.SpotTransaction) spotResponse {
	return spotResponse{
		ID:          tx.ID,
		PortfolioID: tx.PortfolioID,
		Company:     tx.Company,
		Ticker:      tx.Ticker,
		Type:        string(tx.Type),
		Price:       tx.Price,
		Quantity:    tx.Quantity,
		Amount:      tx.Amount,
		TradeDate:   dateOnly{tx.TradeDate},
		Note:        tx.Note,
	}
}

func (s *Server) handleListSpot(w http.ResponseWriter, r *http.Request) {
	txs, err := s.spot.List(r.Context(), s.userID(r), s.portfolioID(r))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	out := make([]spotResponse, 0, len(txs))
	for _, tx := range txs {
		out = append(out, toSpotResponse(tx))
	}
	s.respond(w, r, http.StatusOK, out)
}

func (s *Server) handleCreateSpot(w http.ResponseWriter, r *http.Request) {
	var req spotRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	tx, err := s.spot.Create(r.Context(), s.userID(r), s.portfolioID(r), req.draft())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respond(w, r, http.StatusCreated, toSpotResponse(tx))
}

func (s *Server) handleGetSpot(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, r, domain.Invalid("id", "must be an integer"))
		return
	}
	tx, err := s.spot.Get(r.Context(), s.userID(r), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respond(w, r, http.StatusOK, toSpotResponse(tx))
}

func (s *Server) handleUpdateSpot(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, r, domain.Invalid("id", "must be an integer"))
		return
	}
	var req spotRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	draft := req.draft()
	tx := &domain.SpotTransaction{
		ID:       id,
		Company:  draft.Company,
		Ticker:   draft.Ticker,
		Type:     draft.Type,
		Price:    draft.Price,
		Quantity: draft.Quantity,
		Amount:   draft.Amount,
		Note:     draft.Note,
	}
	if draft.TradeDate != nil {
		tx.TradeDate = domain.DateOnly(*draft.TradeDate)
	}
	updated, err := s.spot.Update(r.Context(), s.userID(r), tx)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respond(w, r, http.StatusOK, toSpotResponse(updated))
}

func (s *Server) handleDeleteSpot(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, r, domain.Invalid("id", "must be an integer"))
		return
	}
	if err := s.spot.Delete(r.Context(), s.userID(r), id); err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respond(w, r, http.StatusNoContent, nil)
}

func (s *Server) handleSpotStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.spot.Stats(r.Context(), s.userID(r), s.portfolioID(r))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respond(w, r, http.StatusOK, stats)
}

func (s *Server) handleSpotHoldings(w http.ResponseWriter, r *http.Request) {
	holdings, err := s.spot.Holdings(r.Context(), s.userID(r), s.portfolioID(r))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respond(w, r, http.StatusOK, holdings)
}
