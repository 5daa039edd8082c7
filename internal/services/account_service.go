package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"gorm.io/gorm"

	"github.com/capitalcompass/tradedesk/internal/database"
	"github.com/capitalcompass/tradedesk/internal/models"
	apperrors "github.com/capitalcompass/tradedesk/pkg/errors"
	"github.com/capitalcompass/tradedesk/pkg/metrics"
)

// ErrOwnerNotFound rejects snapshot reports for unknown account names. An
// inactive registration produces the same status with a distinct message.
var ErrOwnerNotFound = apperrors.New("OWNER_NOT_FOUND", "Account name is not registered", http.StatusNotFound)

// SnapshotInput carries one financial report from a trading terminal.
type SnapshotInput struct {
	MT5Name       string
	AccountNumber string
	Balance       float64
	Equity        float64
	Margin        float64
	FreeMargin    float64
	Leverage      int
}

// RegisterNameInput captures an account-name registration created by staff.
type RegisterNameInput struct {
	MT5Name   string
	OwnerName string
	Email     string
}

// AccountService manages account-name registrations and the per-account
// financial snapshots reported by trading terminals.
type AccountService struct {
	db       *gorm.DB
	activity *ActivityService
}

// NewAccountService constructs an AccountService.
func NewAccountService(db *gorm.DB, activity *ActivityService) (*AccountService, error) {
	if db == nil {
		return nil, errors.New("account service: db is required")
	}
	return &AccountService{db: db, activity: activity}, nil
}

// ReportSnapshot records the latest financial state for one trading account.
// The first report for an (owner, account number) pair inserts a row; every
// later report overwrites the numeric fields in place. The latest report
// always wins; the store's row lock is the only serialisation.
func (s *AccountService) ReportSnapshot(ctx context.Context, input SnapshotInput) (*models.AccountSnapshot, error) {
	ctx = ensureContext(ctx)

	mt5Name := strings.TrimSpace(input.MT5Name)
	accountNumber := strings.TrimSpace(input.AccountNumber)
	if mt5Name == "" || accountNumber == "" {
		return nil, apperrors.NewBadRequest("mt5_name and account_number are required")
	}

	owner, err := s.resolveActiveName(ctx, mt5Name)
	if err != nil {
		metrics.SnapshotReports.WithLabelValues("rejected").Inc()
		return nil, err
	}

	var snapshot models.AccountSnapshot
	err = s.db.WithContext(ctx).
		Where("account_name_id = ? AND account_number = ?", owner.ID, accountNumber).
		Take(&snapshot).Error

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		snapshot = models.AccountSnapshot{
			AccountNameID: owner.ID,
			AccountNumber: accountNumber,
			Balance:       input.Balance,
			Equity:        input.Equity,
			Margin:        input.Margin,
			FreeMargin:    input.FreeMargin,
			Leverage:      input.Leverage,
		}
		if err := s.db.WithContext(ctx).Create(&snapshot).Error; err != nil {
			if database.IsUniqueConstraintError(err) {
				// Lost a create race; fall through to the overwrite path.
				return s.ReportSnapshot(ctx, input)
			}
			return nil, fmt.Errorf("account service: create snapshot: %w", err)
		}
		metrics.SnapshotReports.WithLabelValues("created").Inc()

	case err != nil:
		return nil, fmt.Errorf("account service: find snapshot: %w", err)

	default:
		if err := s.db.WithContext(ctx).Model(&snapshot).Updates(map[string]any{
			"balance":     input.Balance,
			"equity":      input.Equity,
			"margin":      input.Margin,
			"free_margin": input.FreeMargin,
			"leverage":    input.Leverage,
		}).Error; err != nil {
			return nil, fmt.Errorf("account service: update snapshot: %w", err)
		}
		snapshot.Balance = input.Balance
		snapshot.Equity = input.Equity
		snapshot.Margin = input.Margin
		snapshot.FreeMargin = input.FreeMargin
		snapshot.Leverage = input.Leverage
		metrics.SnapshotReports.WithLabelValues("updated").Inc()
	}

	s.recordActivity(ctx, owner.ID, "account.snapshot_reported", map[string]any{
		"account_number": accountNumber,
		"balance":        input.Balance,
		"equity":         input.Equity,
	})

	return &snapshot, nil
}

// GetClientBasic returns the registration row for an MT5 account name.
func (s *AccountService) GetClientBasic(ctx context.Context, mt5Name string) (*models.AccountName, error) {
	ctx = ensureContext(ctx)

	mt5Name = strings.TrimSpace(mt5Name)
	if mt5Name == "" {
		return nil, apperrors.NewBadRequest("mt5_name is required")
	}

	var name models.AccountName
	err := s.db.WithContext(ctx).Where("mt5_name = ?", mt5Name).Take(&name).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewNotFound("client not found")
	}
	if err != nil {
		return nil, fmt.Errorf("account service: find client: %w", err)
	}

	return &name, nil
}

// ListSnapshots returns the stored snapshots for one registration, newest first.
func (s *AccountService) ListSnapshots(ctx context.Context, mt5Name string) ([]models.AccountSnapshot, error) {
	ctx = ensureContext(ctx)

	owner, err := s.GetClientBasic(ctx, mt5Name)
	if err != nil {
		return nil, err
	}

	var snapshots []models.AccountSnapshot
	if err := s.db.WithContext(ctx).
		Where("account_name_id = ?", owner.ID).
		Order("updated_at DESC").
		Find(&snapshots).Error; err != nil {
		return nil, fmt.Errorf("account service: list snapshots: %w", err)
	}

	return snapshots, nil
}

// RegisterName creates an account-name registration in the active state.
func (s *AccountService) RegisterName(ctx context.Context, input RegisterNameInput) (*models.AccountName, error) {
	ctx = ensureContext(ctx)

	mt5Name := strings.TrimSpace(input.MT5Name)
	ownerName := strings.TrimSpace(input.OwnerName)
	if mt5Name == "" || ownerName == "" {
		return nil, apperrors.NewBadRequest("mt5_name and name are required")
	}

	name := &models.AccountName{
		MT5Name:   mt5Name,
		OwnerName: ownerName,
		Email:     strings.ToLower(strings.TrimSpace(input.Email)),
		State:     models.NameStateActive,
	}

	if err := s.db.WithContext(ctx).Create(name).Error; err != nil {
		if database.IsUniqueConstraintError(err) {
			return nil, apperrors.NewConflict("account name already registered")
		}
		return nil, fmt.Errorf("account service: register name: %w", err)
	}

	return name, nil
}

// SetNameState toggles a registration between active and inactive. Inactive
// registrations stop accepting snapshot reports without losing history.
func (s *AccountService) SetNameState(ctx context.Context, id, state string) error {
	ctx = ensureContext(ctx)

	if state != models.NameStateActive && state != models.NameStateInactive {
		return apperrors.NewBadRequest("state must be active or inactive")
	}

	result := s.db.WithContext(ctx).Model(&models.AccountName{}).
		Where("id = ?", strings.TrimSpace(id)).
		Update("state", state)
	if result.Error != nil {
		return fmt.Errorf("account service: update name state: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.NewNotFound("account name not found")
	}

	return nil
}

func (s *AccountService) resolveActiveName(ctx context.Context, mt5Name string) (*models.AccountName, error) {
	var name models.AccountName
	err := s.db.WithContext(ctx).Where("mt5_name = ?", mt5Name).Take(&name).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOwnerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("account service: resolve account name: %w", err)
	}

	if name.State != models.NameStateActive {
		return nil, ErrOwnerNotFound.WithMessage("Account name is registered but inactive")
	}

	return &name, nil
}

func (s *AccountService) recordActivity(ctx context.Context, nameID, action string, details map[string]any) {
	if s.activity == nil {
		return
	}
	_ = s.activity.Record(ctx, ActivityEntry{
		AccountNameID: &nameID,
		Action:        action,
		Details:       details,
	})
}
