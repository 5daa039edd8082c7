package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/capitalcompass/tradedesk/internal/database"
	"github.com/capitalcompass/tradedesk/internal/models"
	apperrors "github.com/capitalcompass/tradedesk/pkg/errors"
)

// NewsCheckResult answers a terminal's pre-trade news poll for one currency.
type NewsCheckResult struct {
	Currency string `json:"currency"`
	Day      int    `json:"day"`
	Status   string `json:"status"`
	Allowed  bool   `json:"allowed"`
}

// UpsertPairInput captures a trading-pair definition created or edited by staff.
type UpsertPairInput struct {
	Pair      string
	State     string
	MaxSpread float64
	MinLot    float64
	MaxLot    float64
}

// MarketService serves trading-pair limits and the per-currency news calendar.
type MarketService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewMarketService constructs a MarketService. clock may be nil.
func NewMarketService(db *gorm.DB, clock func() time.Time) (*MarketService, error) {
	if db == nil {
		return nil, errors.New("market service: db is required")
	}
	if clock == nil {
		clock = time.Now
	}
	return &MarketService{db: db, now: clock}, nil
}

// GetTradingPair returns the limits for one instrument.
func (s *MarketService) GetTradingPair(ctx context.Context, pair string) (*models.TradingPair, error) {
	ctx = ensureContext(ctx)

	pair = strings.ToUpper(strings.TrimSpace(pair))
	if pair == "" {
		return nil, apperrors.NewBadRequest("pair is required")
	}

	var row models.TradingPair
	err := s.db.WithContext(ctx).Where("pair = ?", pair).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewNotFound("trading pair not found")
	}
	if err != nil {
		return nil, fmt.Errorf("market service: find pair: %w", err)
	}

	return &row, nil
}

// ListTradingPairs returns every configured instrument.
func (s *MarketService) ListTradingPairs(ctx context.Context) ([]models.TradingPair, error) {
	ctx = ensureContext(ctx)

	var pairs []models.TradingPair
	if err := s.db.WithContext(ctx).Order("pair ASC").Find(&pairs).Error; err != nil {
		return nil, fmt.Errorf("market service: list pairs: %w", err)
	}

	return pairs, nil
}

// UpsertTradingPair creates or overwrites the limits for one instrument.
func (s *MarketService) UpsertTradingPair(ctx context.Context, input UpsertPairInput) (*models.TradingPair, error) {
	ctx = ensureContext(ctx)

	pair := strings.ToUpper(strings.TrimSpace(input.Pair))
	if pair == "" {
		return nil, apperrors.NewBadRequest("pair is required")
	}
	state := input.State
	if state == "" {
		state = models.PairStateEnabled
	}
	if state != models.PairStateEnabled && state != models.PairStateDisabled {
		return nil, apperrors.NewBadRequest("state must be enabled or disabled")
	}

	var row models.TradingPair
	err := s.db.WithContext(ctx).Where("pair = ?", pair).Take(&row).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		row = models.TradingPair{
			Pair:      pair,
			State:     state,
			MaxSpread: input.MaxSpread,
			MinLot:    input.MinLot,
			MaxLot:    input.MaxLot,
		}
		if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
			if database.IsUniqueConstraintError(err) {
				return nil, apperrors.NewConflict("trading pair already exists")
			}
			return nil, fmt.Errorf("market service: create pair: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("market service: find pair: %w", err)
	default:
		if err := s.db.WithContext(ctx).Model(&row).Updates(map[string]any{
			"state":      state,
			"max_spread": input.MaxSpread,
			"min_lot":    input.MinLot,
			"max_lot":    input.MaxLot,
		}).Error; err != nil {
			return nil, fmt.Errorf("market service: update pair: %w", err)
		}
		row.State = state
		row.MaxSpread = input.MaxSpread
		row.MinLot = input.MinLot
		row.MaxLot = input.MaxLot
	}

	return &row, nil
}

// NewsCheck reports whether trading is allowed for a currency on the given
// weekday (1=Monday .. 7=Sunday); day <= 0 means today. Currencies with no
// calendar row default to enabled, so a missing configuration never blocks a
// terminal.
func (s *MarketService) NewsCheck(ctx context.Context, currency string, day int) (*NewsCheckResult, error) {
	ctx = ensureContext(ctx)

	currency = strings.ToUpper(strings.TrimSpace(currency))
	if len(currency) != 3 {
		return nil, apperrors.NewBadRequest("currency must be a 3-letter code")
	}
	if day > 7 {
		return nil, apperrors.NewBadRequest("day must be between 1 and 7")
	}
	if day <= 0 {
		day = isoWeekday(s.now().UTC())
	}
	result := &NewsCheckResult{
		Currency: currency,
		Day:      day,
		Status:   models.PairStateEnabled,
	}

	var status models.NewsStatus
	err := s.db.WithContext(ctx).Where("currency = ?", currency).Take(&status).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		// default enabled
	case err != nil:
		return nil, fmt.Errorf("market service: find news status: %w", err)
	default:
		result.Status = status.DayStatus(day)
	}

	result.Allowed = result.Status == models.PairStateEnabled
	return result, nil
}

// SetNewsStatus sets one weekday's status for a currency, creating the
// calendar row on first use.
func (s *MarketService) SetNewsStatus(ctx context.Context, currency string, day int, state string) error {
	ctx = ensureContext(ctx)

	currency = strings.ToUpper(strings.TrimSpace(currency))
	if len(currency) != 3 {
		return apperrors.NewBadRequest("currency must be a 3-letter code")
	}
	column, ok := newsDayColumn(day)
	if !ok {
		return apperrors.NewBadRequest("day must be 1 (Monday) through 5 (Friday)")
	}
	if state != models.PairStateEnabled && state != models.PairStateDisabled {
		return apperrors.NewBadRequest("state must be enabled or disabled")
	}

	var status models.NewsStatus
	err := s.db.WithContext(ctx).Where("currency = ?", currency).Take(&status).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		status = models.NewsStatus{Currency: currency}
		if err := s.db.WithContext(ctx).Create(&status).Error; err != nil {
			return fmt.Errorf("market service: create news status: %w", err)
		}
	} else if err != nil {
		return fmt.Errorf("market service: find news status: %w", err)
	}

	if err := s.db.WithContext(ctx).Model(&status).Update(column, state).Error; err != nil {
		return fmt.Errorf("market service: update news status: %w", err)
	}

	return nil
}

// ResetNewsAll re-enables every currency on every weekday. Returns the number
// of calendar rows touched.
func (s *MarketService) ResetNewsAll(ctx context.Context) (int64, error) {
	ctx = ensureContext(ctx)

	result := s.db.WithContext(ctx).Model(&models.NewsStatus{}).
		Where("1 = 1").
		Updates(map[string]any{
			"monday_status":    models.PairStateEnabled,
			"tuesday_status":   models.PairStateEnabled,
			"wednesday_status": models.PairStateEnabled,
			"thursday_status":  models.PairStateEnabled,
			"friday_status":    models.PairStateEnabled,
		})
	if result.Error != nil {
		return 0, fmt.Errorf("market service: reset news statuses: %w", result.Error)
	}

	return result.RowsAffected, nil
}

// ServerTime reports the clock terminals synchronise against.
func (s *MarketService) ServerTime() time.Time {
	return s.now().UTC()
}

func isoWeekday(t time.Time) int {
	day := int(t.Weekday())
	if day == 0 {
		return 7
	}
	return day
}

func newsDayColumn(day int) (string, bool) {
	switch day {
	case 1:
		return "monday_status", true
	case 2:
		return "tuesday_status", true
	case 3:
		return "wednesday_status", true
	case 4:
		return "thursday_status", true
	case 5:
		return "friday_status", true
	default:
		return "", false
	}
}
