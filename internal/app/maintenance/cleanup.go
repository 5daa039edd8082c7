package maintenance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	iauth "github.com/capitalcompass/tradedesk/internal/auth"
	"github.com/capitalcompass/tradedesk/internal/models"
	"github.com/capitalcompass/tradedesk/internal/services"
	"github.com/capitalcompass/tradedesk/pkg/logger"
)

const (
	defaultActivityRetentionDays = 90
	defaultSessionSpec           = "@hourly"
	defaultActivitySpec          = "@daily"
	defaultTokenSpec             = "@daily"
)

// Cleaner coordinates background maintenance: purging expired sessions,
// pruning old activity logs, and clearing stale password-reset tokens.
type Cleaner struct {
	db        *gorm.DB
	sessions  *iauth.SessionService
	activity  *services.ActivityService
	cron      *cron.Cron
	now       func() time.Time
	log       *zap.Logger
	enabled   bool
	retention int

	sessionSchedule  string
	activitySchedule string
	tokenSchedule    string
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithNow overrides the clock used for cleanup comparisons.
func WithNow(now func() time.Time) Option {
	return func(cleaner *Cleaner) {
		if now != nil {
			cleaner.now = now
		}
	}
}

// WithActivityRetentionDays adjusts how long activity logs are retained.
func WithActivityRetentionDays(days int) Option {
	return func(cleaner *Cleaner) {
		if days > 0 {
			cleaner.retention = days
		}
	}
}

// WithSessionSchedule overrides the cron specification for session cleanup.
func WithSessionSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.sessionSchedule = spec
		}
	}
}

// NewCleaner constructs a Cleaner with sensible defaults. Any nil dependency
// results in the corresponding cleanup job being skipped.
func NewCleaner(db *gorm.DB, sessions *iauth.SessionService, activity *services.ActivityService, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		db:               db,
		sessions:         sessions,
		activity:         activity,
		now:              time.Now,
		retention:        defaultActivityRetentionDays,
		sessionSchedule:  defaultSessionSpec,
		activitySchedule: defaultActivitySpec,
		tokenSchedule:    defaultTokenSpec,
		log:              logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	cleaner.enabled = cleaner.sessions != nil || cleaner.activity != nil || cleaner.db != nil

	return cleaner
}

// Start registers cleanup jobs with the cron scheduler and launches it if at
// least one cleanup is enabled.
func (c *Cleaner) Start() error {
	if !c.enabled {
		return nil
	}

	if c.sessions != nil {
		if _, err := c.cron.AddFunc(c.sessionSchedule, func() {
			ctx := context.Background()
			if _, err := c.sessions.CleanupExpired(ctx); err != nil {
				c.log.Warn("session cleanup failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	if c.activity != nil && c.retention > 0 {
		if _, err := c.cron.AddFunc(c.activitySchedule, func() {
			ctx := context.Background()
			if _, err := c.activity.CleanupOlderThan(ctx, c.retention); err != nil {
				c.log.Warn("activity cleanup failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	if c.db != nil {
		if _, err := c.cron.AddFunc(c.tokenSchedule, func() {
			ctx := context.Background()
			if _, err := CleanupResetTokens(ctx, c.db, c.now()); err != nil {
				c.log.Warn("reset token cleanup failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	c.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// RunOnce executes all configured cleanup routines sequentially. Used in tests
// and during graceful shutdown.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error

	if c.sessions != nil {
		if _, err := c.sessions.CleanupExpired(ctx); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	if c.activity != nil && c.retention > 0 {
		if _, err := c.activity.CleanupOlderThan(ctx, c.retention); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	if c.db != nil {
		if _, err := CleanupResetTokens(ctx, c.db, c.now()); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	return errs
}

// CleanupResetTokens clears expired password-reset tokens so stale links stop
// resolving to accounts. Returns the number of users touched.
func CleanupResetTokens(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	if db == nil {
		return 0, errors.New("cleanup reset tokens: db is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	result := db.WithContext(ctx).Model(&models.User{}).
		Where("reset_token <> '' AND reset_token_expires_at < ?", now).
		Updates(map[string]any{
			"reset_token":            "",
			"reset_token_expires_at": nil,
		})
	if result.Error != nil {
		return 0, fmt.Errorf("cleanup reset tokens: %w", result.Error)
	}

	return result.RowsAffected, nil
}
