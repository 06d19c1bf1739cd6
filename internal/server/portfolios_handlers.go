package server

import (
	"net/http"
	"strings"
	"time"

	"marginDiary/internal/domain"
)

type portfolioRequest struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Currency string `json:"currency"`
}

type portfolioResponse struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Type     string `json:"type,omitempty"`
	Currency string `json:"currency"`
	IsActive bool   `json:"isActive"`
}

func toPortfolioResponse(p *domain.Portfolio) portfolioResponse {
	return portfolioResponse{
		ID:       p.ID,
		Name:     p.Name,
		Type:     p.Type,
		Currency: p.Currency,
		IsActive: p.IsActive,
	}
}

func (s *Server) handleListPortfolios(w http.ResponseWriter, r *http.Request) {
	portfolios, err := s.portfolios.List(r.Context(), s.userID(r))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	out := make([]portfolioResponse, 0, len(portfolios))
	for _, p := range portfolios {
		out = append(out, toPortfolioResponse(p))
	}
	s.respond(w, r, http.StatusOK, out)
}

func (s *Server) handleCreatePortfolio(w http.ResponseWriter, r *http.Request) {
	var req portfolioRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	p, err := s.portfolios.Create(r.Context(), s.userID(r), req.Name, req.Type, req.Currency)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respond(w, r, http.StatusCreated, toPortfolioResponse(p))
}

func (s *Server) handleDeletePortfolio(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, r, domain.Invalid("id", "must be an integer"))
		return
	}
	if err := s.portfolios.Deactivate(r.Context(), s.userID(r), id); err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respond(w, r, http.StatusNoContent, nil)
}

// handlePrices is the quote cache passthrough: tickers is a comma
// separated list, ttl an optional override in seconds. Unpriceable
// tickers are simply absent from the result.
func (s *Server) handlePrices(w http.ResponseWriter, r *http.Request) {
	if s.quotes == nil {
		s.respond(w, r, http.StatusOK, map[string]interface{}{})
		return
	}
	raw := r.URL.Query().Get("tickers")
	if raw == "" {
		s.respondError(w, r, domain.Invalid("tickers", "must not be empty"))
		return
	}
	var tickers []string
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tickers = append(tickers, t)
		}
	}

	ttl := s.quoteTTL
	if rawTTL := r.URL.Query().Get("ttl"); rawTTL != "" {
		d, err := time.ParseDuration(rawTTL + "s")
		if err != nil || d <= 0 {
			s.respondError(w, r, domain.Invalid("ttl", "must be a positive number of seconds"))
			return
		}
		ttl = d
	}

	s.respond(w, r, http.StatusOK, s.quotes.GetPrices(r.Context(), tickers, ttl))
}
