package server

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"marginDiary/internal/app"
	"marginDiary/internal/domain"
)

// tradeRequest is the JSON shape of a trade draft. Dates travel as
// YYYY-MM-DD strings.
type tradeRequest struct {
	Symbol            string              `json:"symbol"`
	EntryPrice        decimal.Decimal     `json:"entryPrice"`
	Quantity          int64               `json:"quantity"`
	EntryDate         *dateOnly           `json:"entryDate"`
	MarginRate        decimal.Decimal     `json:"marginRate"`
	Leverage          *decimal.Decimal    `json:"leverage"`
	BorrowedAmount    *decimal.Decimal    `json:"borrowedAmount"`
	CollateralAmount  *decimal.Decimal    `json:"collateralAmount"`
	MaintenanceMargin *decimal.Decimal    `json:"maintenanceMargin"`
	RateType          string              `json:"financingRateType"`
	FinancingCurrency string              `json:"financingCurrency"`
	Notes             string              `json:"notes"`
}

func (req *tradeRequest) draft() app.TradeDraft {
	d := app.TradeDraft{
		Symbol:            req.Symbol,
		EntryPrice:        req.EntryPrice,
		Quantity:          req.Quantity,
		MarginRate:        req.MarginRate,
		Leverage:          req.Leverage,
		BorrowedAmount:    req.BorrowedAmount,
		CollateralAmount:  req.CollateralAmount,
		MaintenanceMargin: req.MaintenanceMargin,
		RateType:          domain.FinancingRateType(req.RateType),
		FinancingCurrency: req.FinancingCurrency,
		Notes:             req.Notes,
	}
	if req.EntryDate != nil {
		t := req.EntryDate.Time
		d.EntryDate = &t
	}
	return d
}

type closureResponse struct {
	ID             int64           `json:"id"`
	ClosedQuantity int64           `json:"closedQuantity"`
	ExitPrice      decimal.Decimal `json:"exitPrice"`
	ExitDate       dateOnly        `json:"exitDate"`
	Notes          string          `json:"notes,omitempty"`
}

type financingEventResponse struct {
	ID           int64            `json:"id"`
	EventDate    dateOnly         `json:"eventDate"`
	EventType    string           `json:"eventType"`
	Rate         *decimal.Decimal `json:"rate,omitempty"`
	AmountChange *decimal.Decimal `json:"amountChange,omitempty"`
	Notes        string           `json:"notes,omitempty"`
}

type tradeResponse struct {
	ID                int64                    `json:"id"`
	PortfolioID       int64                    `json:"portfolioId"`
	Symbol            string                   `json:"symbol"`
	EntryPrice        decimal.Decimal          `json:"entryPrice"`
	Quantity          int64                    `json:"quantity"`
	EntryDate         dateOnly                 `json:"entryDate"`
	ExitPrice         *decimal.Decimal         `json:"exitPrice,omitempty"`
	ExitDate          *dateOnly                `json:"exitDate,omitempty"`
	MarginRate        decimal.Decimal          `json:"marginRate"`
	Leverage          *decimal.Decimal         `json:"leverage,omitempty"`
	BorrowedAmount    *decimal.Decimal         `json:"borrowedAmount,omitempty"`
	CollateralAmount  *decimal.Decimal         `json:"collateralAmount,omitempty"`
	MaintenanceMargin *decimal.Decimal         `json:"maintenanceMargin,omitempty"`
	RateType          string                   `json:"financingRateType,omitempty"`
	FinancingCurrency string                   `json:"financingCurrency,omitempty"`
	Notes             string                   `json:"notes,omitempty"`
	OpenQuantity      int64                    `json:"openQuantity"`
	IsClosed          bool                     `json:"isClosed"`
	TotalCost         decimal.Decimal          `json:"totalCost"`
	DailyInterest     decimal.Decimal          `json:"dailyInterest"`
	TotalInterest     decimal.Decimal          `json:"totalInterest"`
	Profit            *decimal.Decimal         `json:"profit,omitempty"`
	LiquidationPrice  *decimal.Decimal         `json:"liquidationPrice,omitempty"`
	Closures          []closureResponse        `json:"closures,omitempty"`
	FinancingEvents   []financingEventResponse `json:"financingEvents,omitempty"`
}

func toTradeResponse(t *domain.Trade) tradeResponse {
	today := domain.DateOnly(time.Now())
	resp := tradeResponse{
		ID:                t.ID,
		PortfolioID:       t.PortfolioID,
		Symbol:            t.Symbol,
		EntryPrice:        t.EntryPrice,
		Quantity:          t.Quantity,
		EntryDate:         dateOnly{t.EntryDate},
		ExitPrice:         t.ExitPrice,
		MarginRate:        t.MarginRate,
		Leverage:          t.LeverageValue(),
		BorrowedAmount:    t.BorrowedAmount,
		CollateralAmount:  t.CollateralAmount,
		MaintenanceMargin: t.MaintenanceMargin,
		RateType:          string(t.RateType),
		FinancingCurrency: t.FinancingCurrency,
		Notes:             t.Notes,
		OpenQuantity:      t.OpenQuantity(),
		IsClosed:          t.IsClosed(),
		TotalCost:         t.PositionCost().Round(domain.MoneyScale),
		DailyInterest:     t.DailyInterestAmount(today),
		TotalInterest:     t.TotalInterest(today),
		Profit:            t.Profit(today),
		LiquidationPrice:  t.LiquidationPrice(),
	}
	if t.ExitDate != nil {
		resp.ExitDate = &dateOnly{*t.ExitDate}
	}
	for _, c := range t.Closures {
		resp.Closures = append(resp.Closures, closureResponse{
			ID:             c.ID,
			ClosedQuantity: c.ClosedQuantity,
			ExitPrice:      c.ExitPrice,
			ExitDate:       dateOnly{c.ExitDate},
			Notes:          c.Notes,
		})
	}
	for _, e := range t.FinancingEvents {
		resp.FinancingEvents = append(resp.FinancingEvents, toFinancingEventResponse(e))
	}
	return resp
}

func toFinancingEventResponse(e *domain.FinancingEvent) financingEventResponse {
	return financingEventResponse{
		ID:           e.ID,
		EventDate:    dateOnly{e.EventDate},
		EventType:    string(e.EventType),
		Rate:         e.Rate,
		AmountChange: e.AmountChange,
		Notes:        e.Notes,
	}
}

func (s *Server) handleListTrades(w http.ResponseWriter, r *http.Request) {
	trades, err := s.trades.List(r.Context(), s.userID(r), s.portfolioID(r))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	out := make([]tradeResponse, 0, len(trades))
	for _, t := range trades {
		out = append(out, toTradeResponse(t))
	}
	s.respond(w, r, http.StatusOK, out)
}

func (s *Server) handleBuyTrade(w http.ResponseWriter, r *http.Request) {
	var req tradeRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	trade, err := s.trades.Open(r.Context(), s.userID(r), s.portfolioID(r), req.draft())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respond(w, r, http.StatusCreated, toTradeResponse(trade))
}

func (s *Server) handleBulkImport(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Trades []tradeRequest `json:"trades"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	drafts := make([]app.TradeDraft, 0, len(req.Trades))
	for _, t := range req.Trades {
		drafts = append(drafts, t.draft())
	}
	result, err := s.trades.Import(r.Context(), s.userID(r), s.portfolioID(r), drafts)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respond(w, r, http.StatusOK, result)
}

func (s *Server) handleGetTrade(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, r, domain.Invalid("id", "must be an integer"))
		return
	}
	trade, err := s.trades.Get(r.Context(), s.userID(r), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respond(w, r, http.StatusOK, toTradeResponse(trade))
}

func (s *Server) handleUpdateTrade(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, r, domain.Invalid("id", "must be an integer"))
		return
	}
	var req tradeRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	draft := req.draft()
	trade := &domain.Trade{
		ID:                id,
		Symbol:            draft.Symbol,
		EntryPrice:        draft.EntryPrice,
		Quantity:          draft.Quantity,
		MarginRate:        draft.MarginRate,
		Leverage:          draft.Leverage,
		BorrowedAmount:    draft.BorrowedAmount,
		CollateralAmount:  draft.CollateralAmount,
		MaintenanceMargin: draft.MaintenanceMargin,
		RateType:          draft.RateType,
		FinancingCurrency: draft.FinancingCurrency,
		Notes:             draft.Notes,
	}
	if draft.EntryDate != nil {
		trade.EntryDate = domain.DateOnly(*draft.EntryDate)
	}
	updated, err := s.trades.Update(r.Context(), s.userID(r), trade)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respond(w, r, http.StatusOK, toTradeResponse(updated))
}

func (s *Server) handleDeleteTrade(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, r, domain.Invalid("id", "must be an integer"))
		return
	}
	if err := s.trades.Delete(r.Context(), s.userID(r), id); err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respond(w, r, http.StatusNoContent, nil)
}

type fifoCloseRequest struct {
	Symbol    string          `json:"symbol"`
	Quantity  int64           `json:"quantity"`
	ExitPrice decimal.Decimal `json:"exitPrice"`
	ExitDate  *dateOnly       `json:"exitDate"`
	Notes     string          `json:"notes"`
}

func (s *Server) handleFIFOClose(w http.ResponseWriter, r *http.Request) {
	var req fifoCloseRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	exitDate := time.Now()
	if req.ExitDate != nil {
		exitDate = req.ExitDate.Time
	}
	result, err := s.trades.FIFOClose(r.Context(), s.userID(r), req.Symbol, req.Quantity, req.ExitPrice, exitDate, req.Notes)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respond(w, r, http.StatusOK, result)
}

func (s *Server) handleClosePart(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, r, domain.Invalid("id", "must be an integer"))
		return
	}
	var req fifoCloseRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	exitDate := time.Now()
	if req.ExitDate != nil {
		exitDate = req.ExitDate.Time
	}
	trade, err := s.trades.ClosePart(r.Context(), s.userID(r), id, req.Quantity, req.ExitPrice, exitDate, req.Notes)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respond(w, r, http.StatusOK, toTradeResponse(trade))
}

type financingEventRequest struct {
	EventType    string           `json:"eventType"`
	EventDate    *dateOnly        `json:"eventDate"`
	Rate         *decimal.Decimal `json:"rate"`
	AmountChange *decimal.Decimal `json:"amountChange"`
	Notes        string           `json:"notes"`
}

func (s *Server) handleListFinancingEvents(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, r, domain.Invalid("id", "must be an integer"))
		return
	}
	trade, err := s.trades.Get(r.Context(), s.userID(r), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	out := make([]financingEventResponse, 0, len(trade.FinancingEvents))
	for _, e := range trade.FinancingEvents {
		out = append(out, toFinancingEventResponse(e))
	}
	s.respond(w, r, http.StatusOK, out)
}

func (s *Server) handleAddFinancingEvent(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, r, domain.Invalid("id", "must be an integer"))
		return
	}
	var req financingEventRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	if req.EventType == "" {
		req.EventType = string(domain.EventRateChange)
	}
	draft := app.FinancingEventDraft{
		EventType:    domain.FinancingEventType(req.EventType),
		Rate:         req.Rate,
		AmountChange: req.AmountChange,
		Notes:        req.Notes,
	}
	if req.EventDate != nil {
		t := req.EventDate.Time
		draft.EventDate = &t
	}
	trade, err := s.trades.AddFinancingEvent(r.Context(), s.userID(r), id, draft)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respond(w, r, http.StatusOK, toTradeResponse(trade))
}

func (s *Server) handleDailyInterest(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, r, domain.Invalid("id", "must be an integer"))
		return
	}
	trade, err := s.trades.Get(r.Context(), s.userID(r), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respond(w, r, http.StatusOK, trade.DailyInterestSchedule())
}

func (s *Server) handleTradeStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.stats.PortfolioStats(r.Context(), s.userID(r), s.portfolioID(r))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respond(w, r, http.StatusOK, stats)
}

func (s *Server) handleOpenPositions(w http.ResponseWriter, r *http.Request) {
	positions, err := s.stats.OpenPositions(r.Context(), s.userID(r), s.portfolioID(r))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respond(w, r, http.StatusOK, positions)
}

func (s *Server) analyticsWindow(r *http.Request) (*time.Time, *time.Time, error) {
	var from, to *time.Time
	if raw := r.URL.Query().Get("startDate"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return nil, nil, domain.Invalid("startDate", "must be YYYY-MM-DD")
		}
		from = &t
	}
	if raw := r.URL.Query().Get("endDate"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return nil, nil, domain.Invalid("endDate", "must be YYYY-MM-DD")
		}
		to = &t
	}
	return from, to, nil
}

func (s *Server) handleAnalyticsSummary(w http.ResponseWriter, r *http.Request) {
	from, to, err := s.analyticsWindow(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	summary, err := s.stats.AnalyticsSummary(r.Context(), s.userID(r), s.portfolioID(r), from, to)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respond(w, r, http.StatusOK, summary)
}

func (s *Server) handleAnalyticsMonthly(w http.ResponseWriter, r *http.Request) {
	from, to, err := s.analyticsWindow(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	months, err := s.stats.MonthlyAnalytics(r.Context(), s.userID(r), s.portfolioID(r), from, to)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respond(w, r, http.StatusOK, months)
}

func (s *Server) handleAnalyticsSymbols(w http.ResponseWriter, r *http.Request) {
	from, to, err := s.analyticsWindow(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	symbols, err := s.stats.SymbolAnalytics(r.Context(), s.userID(r), s.portfolioID(r), from, to)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respond(w, r, http.StatusOK, symbols)
}
