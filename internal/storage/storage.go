package storage

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"stock-decision-bot/internal/market"
)

// ErrNotFound marks lookups with no rows.
var ErrNotFound = errors.New("storage: not found")

// StockDaily is one persisted daily bar. Indicator columns were added to
// the schema later, so existing databases get them through the lazy
// migration in Open.
type StockDaily struct {
	ID          uint    `gorm:"primaryKey;autoIncrement"`
	Symbol      string  `gorm:"size:10;uniqueIndex:uix_code_date;index"`
	Date        string  `gorm:"size:10;uniqueIndex:uix_code_date"`
	Open        float64 `gorm:"column:open"`
	High        float64 `gorm:"column:high"`
	Low         float64 `gorm:"column:low"`
	Close       float64 `gorm:"column:close"`
	Volume      float64 `gorm:"column:volume"`
	Amount      float64 `gorm:"column:amount"`
	PctChg      float64 `gorm:"column:pct_chg"`
	MA5         float64 `gorm:"column:ma5"`
	MA10        float64 `gorm:"column:ma10"`
	MA20        float64 `gorm:"column:ma20"`
	VolumeRatio float64 `gorm:"column:volume_ratio"`
	MACD        float64 `gorm:"column:macd"`
	MACDSignal  float64 `gorm:"column:macd_signal"`
	MACDHist    float64 `gorm:"column:macd_hist"`
	RSI         float64 `gorm:"column:rsi"`
	ATR         float64 `gorm:"column:atr"`
	DataSource  string  `gorm:"size:50;column:data_source"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (StockDaily) TableName() string { return "stock_daily" }

// indicatorColumns are the late additions filled in by the lazy migration.
var indicatorColumns = []string{"macd", "macd_signal", "macd_hist", "rsi", "atr"}

// Store persists daily bars and builds analysis contexts.
type Store struct {
	db     *gorm.DB
	logger zerolog.Logger
}

// Open connects to the database. An empty dsn opens (and creates) the
// SQLite file at path; a postgres:// dsn switches backends.
func Open(path, dsn string, logger zerolog.Logger) (*Store, error) {
	log := logger.With().Str("component", "Storage").Logger()

	var dialector gorm.Dialector
	if dsn != "" {
		dialector = postgres.Open(dsn)
	} else {
		if dir := filepath.Dir(path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("create database directory: %w", err)
			}
		}
		dialector = sqlite.Open(path)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &Store{db: db, logger: log}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

// migrate creates the table on a fresh database and backfills missing
// indicator columns on an existing one. Column additions that fail are
// logged and skipped so an odd legacy schema cannot block startup.
func (s *Store) migrate() error {
	migrator := s.db.Migrator()

	if !migrator.HasTable(&StockDaily{}) {
		if err := migrator.CreateTable(&StockDaily{}); err != nil {
			return fmt.Errorf("create stock_daily: %w", err)
		}
		return nil
	}

	for _, col := range indicatorColumns {
		if migrator.HasColumn(&StockDaily{}, col) {
			continue
		}
		if err := migrator.AddColumn(&StockDaily{}, col); err != nil {
			s.logger.Warn().Err(err).Str("column", col).Msg("indicator column migration failed")
			continue
		}
		s.logger.Info().Str("column", col).Msg("indicator column added")
	}
	return nil
}

// SaveBars upserts a series and returns the number of newly inserted
// rows. Existing (symbol, date) rows are updated in place, bumping
// updated_at; per-row failures are logged and skipped.
func (s *Store) SaveBars(ctx context.Context, bars []market.Bar) (int, error) {
	if len(bars) == 0 {
		return 0, nil
	}

	inserted := 0
	for _, b := range bars {
		row := toRow(b)

		var existing StockDaily
		err := s.db.WithContext(ctx).
			Where("symbol = ? AND date = ?", row.Symbol, row.Date).
			First(&existing).Error
		switch {
		case err == nil:
			if err := s.db.WithContext(ctx).Model(&existing).Updates(updateColumns(row)).Error; err != nil {
				s.logger.Warn().Err(err).Str("symbol", row.Symbol).Str("date", row.Date).
					Msg("row update failed, skipping")
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					continue
				}
				s.logger.Warn().Err(err).Str("symbol", row.Symbol).Str("date", row.Date).
					Msg("row insert failed, skipping")
				continue
			}
			inserted++
		default:
			s.logger.Warn().Err(err).Str("symbol", row.Symbol).Str("date", row.Date).
				Msg("row lookup failed, skipping")
		}
	}

	s.logger.Debug().Int("rows", len(bars)).Int("inserted", inserted).
		Str("symbol", bars[0].Symbol).Msg("bars saved")
	return inserted, nil
}

// History returns up to limit most recent rows in ascending date order.
func (s *Store) History(ctx context.Context, symbol string, limit int) ([]market.Bar, error) {
	var rows []StockDaily
	err := s.db.WithContext(ctx).
		Where("symbol = ?", symbol).
		Order("date DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("load history for %s: %w", symbol, err)
	}

	bars := make([]market.Bar, len(rows))
	for i, r := range rows {
		bars[len(rows)-1-i] = fromRow(r)
	}
	return bars, nil
}

// LatestDate returns the most recent stored trading day for symbol.
func (s *Store) LatestDate(ctx context.Context, symbol string) (string, error) {
	var row StockDaily
	err := s.db.WithContext(ctx).
		Where("symbol = ?", symbol).
		Order("date DESC").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return row.Date, nil
}

// Count returns the stored row count for symbol.
func (s *Store) Count(ctx context.Context, symbol string) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&StockDaily{}).
		Where("symbol = ?", symbol).
		Count(&n).Error
	return n, err
}

// Row returns one stored row for assertions and diagnostics.
func (s *Store) Row(ctx context.Context, symbol, date string) (*StockDaily, error) {
	var row StockDaily
	err := s.db.WithContext(ctx).
		Where("symbol = ? AND date = ?", symbol, date).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// AnalysisContext summarizes the stored window handed to downstream
// consumers (LLM prompt assembly, dashboard). Fewer than 20 rows is not
// enough structure to describe, so it returns nil.
type AnalysisContext struct {
	Symbol            string       `json:"symbol"`
	Rows              int          `json:"rows"`
	LatestDate        string       `json:"latest_date"`
	Close             float64      `json:"close"`
	MA5               float64      `json:"ma5"`
	MA10              float64      `json:"ma10"`
	MA20              float64      `json:"ma20"`
	MAStatus          string       `json:"ma_status"`
	VolumeRatio       float64      `json:"volume_ratio"`
	VolumeChangeRatio float64      `json:"volume_change_ratio"`
	MACD              float64      `json:"macd"`
	MACDSignal        float64      `json:"macd_signal"`
	MACDHist          float64      `json:"macd_hist"`
	RSI               float64      `json:"rsi"`
	ATR               float64      `json:"atr"`
	Bars              []market.Bar `json:"-"`
}

func (s *Store) AnalysisContext(ctx context.Context, symbol string, days int) (*AnalysisContext, error) {
	if days <= 0 {
		days = 60
	}
	bars, err := s.History(ctx, symbol, days)
	if err != nil {
		return nil, err
	}
	if len(bars) < market.MinDecisionRows {
		return nil, nil
	}

	latest := bars[len(bars)-1]
	prev := bars[len(bars)-2]

	volumeChange := 1.0
	if prev.Volume > 0 {
		volumeChange = round2(latest.Volume / prev.Volume)
	}

	return &AnalysisContext{
		Symbol:            symbol,
		Rows:              len(bars),
		LatestDate:        latest.Date,
		Close:             latest.Close,
		MA5:               latest.MA5,
		MA10:              latest.MA10,
		MA20:              latest.MA20,
		MAStatus:          maStatus(latest),
		VolumeRatio:       latest.VolumeRatio,
		VolumeChangeRatio: volumeChange,
		MACD:              latest.MACD,
		MACDSignal:        latest.MACDSignal,
		MACDHist:          latest.MACDHist,
		RSI:               latest.RSI,
		ATR:               latest.ATR,
		Bars:              bars,
	}, nil
}

func maStatus(b market.Bar) string {
	switch {
	case b.MA20 > 0 && b.Close > b.MA5 && b.MA5 > b.MA10 && b.MA10 > b.MA20:
		return "多头排列 📈"
	case b.MA20 > 0 && b.Close < b.MA5 && b.MA5 < b.MA10 && b.MA10 < b.MA20:
		return "空头排列 📉"
	case b.Close > b.MA5 && b.MA5 > b.MA10:
		return "短期向好 🔼"
	case b.Close < b.MA5 && b.MA5 < b.MA10:
		return "短期走弱 🔽"
	default:
		return "震荡整理 ➡️"
	}
}

// Symbols lists the distinct symbols with stored history.
func (s *Store) Symbols(ctx context.Context) ([]string, error) {
	var symbols []string
	err := s.db.WithContext(ctx).Model(&StockDaily{}).
		Distinct("symbol").
		Order("symbol").
		Pluck("symbol", &symbols).Error
	return symbols, err
}

// HealthCheck pings the underlying database.
func (s *Store) HealthCheck(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("get database handle: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func toRow(b market.Bar) StockDaily {
	return StockDaily{
		Symbol:      b.Symbol,
		Date:        b.Date,
		Open:        b.Open,
		High:        b.High,
		Low:         b.Low,
		Close:       b.Close,
		Volume:      b.Volume,
		Amount:      b.Amount,
		PctChg:      b.PctChg,
		MA5:         b.MA5,
		MA10:        b.MA10,
		MA20:        b.MA20,
		VolumeRatio: b.VolumeRatio,
		MACD:        b.MACD,
		MACDSignal:  b.MACDSignal,
		MACDHist:    b.MACDHist,
		RSI:         b.RSI,
		ATR:         b.ATR,
		DataSource:  b.Source,
	}
}

func fromRow(r StockDaily) market.Bar {
	return market.Bar{
		Symbol:      r.Symbol,
		Date:        r.Date,
		Open:        r.Open,
		High:        r.High,
		Low:         r.Low,
		Close:       r.Close,
		Volume:      r.Volume,
		Amount:      r.Amount,
		PctChg:      r.PctChg,
		MA5:         r.MA5,
		MA10:        r.MA10,
		MA20:        r.MA20,
		VolumeRatio: r.VolumeRatio,
		MACD:        r.MACD,
		MACDSignal:  r.MACDSignal,
		MACDHist:    r.MACDHist,
		RSI:         r.RSI,
		ATR:         r.ATR,
		Source:      r.DataSource,
	}
}

// updateColumns lists every non-key column so a re-upsert refreshes the
// whole row and bumps updated_at.
func updateColumns(row StockDaily) map[string]interface{} {
	return map[string]interface{}{
		"open":         row.Open,
		"high":         row.High,
		"low":          row.Low,
		"close":        row.Close,
		"volume":       row.Volume,
		"amount":       row.Amount,
		"pct_chg":      row.PctChg,
		"ma5":          row.MA5,
		"ma10":         row.MA10,
		"ma20":         row.MA20,
		"volume_ratio": row.VolumeRatio,
		"macd":         row.MACD,
		"macd_signal":  row.MACDSignal,
		"macd_hist":    row.MACDHist,
		"rsi":          row.RSI,
		"atr":          row.ATR,
		"data_source":  row.DataSource,
		"updated_at":   time.Now(),
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
