// Command import_trades loads a JSON file of trade rows into the diary
// database, using the same normalization pipeline the HTTP API applies.
// Failed rows are reported per index and never abort the batch.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"marginDiary/config"
	"marginDiary/internal/adapters/sqlite"
	"marginDiary/internal/adapters/zlog"
	"marginDiary/internal/app"
	"marginDiary/internal/domain"
)

var (
	filePath    = flag.String("file", "", "Path to a JSON array of trade rows")
	userID      = flag.Int64("user", 1, "Owner user ID")
	portfolioID = flag.Int64("portfolio", 0, "Target portfolio ID")
)

// tradeRow mirrors the API's trade payload. Dates travel as YYYY-MM-DD.
type tradeRow struct {
	Symbol            string           `json:"symbol"`
	EntryPrice        decimal.Decimal  `json:"entryPrice"`
	Quantity          int64            `json:"quantity"`
	EntryDate         string           `json:"entryDate"`
	MarginRate        decimal.Decimal  `json:"marginRate"`
	Leverage          *decimal.Decimal `json:"leverage"`
	BorrowedAmount    *decimal.Decimal `json:"borrowedAmount"`
	CollateralAmount  *decimal.Decimal `json:"collateralAmount"`
	MaintenanceMargin *decimal.Decimal `json:"maintenanceMargin"`
	RateType          string           `json:"financingRateType"`
	FinancingCurrency string           `json:"financingCurrency"`
	Notes             string           `json:"notes"`
}

func (r tradeRow) draft() (app.TradeDraft, error) {
	d := app.TradeDraft{
		Symbol:            r.Symbol,
		EntryPrice:        r.EntryPrice,
		Quantity:          r.Quantity,
		MarginRate:        r.MarginRate,
		Leverage:          r.Leverage,
		BorrowedAmount:    r.BorrowedAmount,
		CollateralAmount:  r.CollateralAmount,
		MaintenanceMargin: r.MaintenanceMargin,
		RateType:          domain.FinancingRateType(r.RateType),
		FinancingCurrency: r.FinancingCurrency,
		Notes:             r.Notes,
	}
	if r.EntryDate != "" {
		t, err := time.Parse("2006-01-02", r.EntryDate)
		if err != nil {
			return app.TradeDraft{}, fmt.Errorf("bad entryDate %q: %w", r.EntryDate, err)
		}
		d.EntryDate = &t
	}
	return d, nil
}

func main() {
	flag.Parse()
	if *filePath == "" {
		log.Fatalf("FATAL: -file is required")
	}
	if *portfolioID <= 0 {
		log.Fatalf("FATAL: -portfolio is required")
	}

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err) // Use standard log before logger is ready
	}

	// 2. Initialize Logger
	appLogger := zlog.New(cfg.LogLevel)

	// 3. Initialize Repository (SQLite Adapter)
	repo, err := sqlite.NewRepository(sqlite.Config{DBPath: cfg.DBPath, Logger: appLogger})
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize database: %v", err)
	}
	defer repo.Close()

	// 4. Read and decode the input file
	data, err := os.ReadFile(*filePath)
	if err != nil {
		log.Fatalf("FATAL: Failed to read %s: %v", *filePath, err)
	}
	var rows []tradeRow
	if err := json.Unmarshal(data, &rows); err != nil {
		log.Fatalf("FATAL: Failed to parse %s: %v", *filePath, err)
	}

	drafts := make([]app.TradeDraft, 0, len(rows))
	for i, row := range rows {
		d, err := row.draft()
		if err != nil {
			log.Fatalf("FATAL: Row %d: %v", i, err)
		}
		drafts = append(drafts, d)
	}

	// 5. Run the import through the application service
	svc, err := app.NewTradeService(repo, appLogger)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize trade service: %v", err)
	}
	ctx := context.Background()
	result, err := svc.Import(ctx, *userID, *portfolioID, drafts)
	if err != nil {
		appLogger.Error(ctx, err, "Import failed")
		log.Fatalf("FATAL: Import failed: %v", err)
	}

	fmt.Printf("Imported %d of %d rows\n", result.Imported, len(rows))
	for _, e := range result.Errors {
		fmt.Printf("  row %d: %s\n", e.Index, e.Reason)
	}
	if result.Failed > 0 {
		os.Exit(1)
	}
}
