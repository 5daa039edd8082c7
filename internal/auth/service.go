package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/capitalcompass/tradedesk/internal/database"
	"github.com/capitalcompass/tradedesk/internal/models"
	"github.com/capitalcompass/tradedesk/internal/services"
	"github.com/capitalcompass/tradedesk/pkg/crypto"
	apperrors "github.com/capitalcompass/tradedesk/pkg/errors"
	"github.com/capitalcompass/tradedesk/pkg/mail"
	"github.com/capitalcompass/tradedesk/pkg/metrics"
)

const (
	defaultLockoutThreshold = 5
	defaultResetTokenTTL    = time.Hour
	verificationTokenBytes  = 32
	resetTokenBytes         = 32
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ErrAlreadyVerified rejects re-verification of a verified account.
var ErrAlreadyVerified = apperrors.New("ALREADY_VERIFIED", "Account is already verified", 409)

// Config describes tunable behaviour for the AuthService.
type Config struct {
	// VerificationRequired controls whether registrations start in the
	// pending state until the emailed token is confirmed. When false, new
	// users are active immediately.
	VerificationRequired bool
	LockoutThreshold     int
	ResetTokenTTL        time.Duration
	VerifyBaseURL        string
	Policy               PasswordPolicy
	Clock                func() time.Time
}

// RegisterInput captures the details required to register a dashboard user.
type RegisterInput struct {
	Email    string
	Password string
	Name     string
	Phone    string
	MT5Name  string
}

// LoginResult is returned on successful authentication.
type LoginResult struct {
	User      models.SanitizedUser
	Token     string
	ExpiresAt time.Time
}

// AuthService implements the account lifecycle: registration, login with
// lockout, email verification, and password reset.
type AuthService struct {
	db        *gorm.DB
	sessions  *SessionService
	mailer    mail.Mailer
	activity  *services.ActivityService
	policy    PasswordPolicy
	verify    bool
	threshold int
	resetTTL  time.Duration
	baseURL   string
	now       func() time.Time
}

// NewAuthService constructs an AuthService. The mailer and activity service
// are optional; a nil mailer suppresses verification/reset messages.
func NewAuthService(db *gorm.DB, sessions *SessionService, mailer mail.Mailer, activity *services.ActivityService, cfg Config) (*AuthService, error) {
	if db == nil {
		return nil, errors.New("auth service: db is required")
	}
	if sessions == nil {
		return nil, errors.New("auth service: session service is required")
	}

	threshold := cfg.LockoutThreshold
	if threshold <= 0 {
		threshold = defaultLockoutThreshold
	}

	resetTTL := cfg.ResetTokenTTL
	if resetTTL <= 0 {
		resetTTL = defaultResetTokenTTL
	}

	policy := cfg.Policy
	if policy == (PasswordPolicy{}) {
		policy = DefaultPasswordPolicy()
	}

	clock := time.Now
	if cfg.Clock != nil {
		clock = cfg.Clock
	}

	return &AuthService{
		db:        db,
		sessions:  sessions,
		mailer:    mailer,
		activity:  activity,
		policy:    policy,
		verify:    cfg.VerificationRequired,
		threshold: threshold,
		resetTTL:  resetTTL,
		baseURL:   strings.TrimRight(cfg.VerifyBaseURL, "/"),
		now:       clock,
	}, nil
}

// Register provisions a new user together with its linked account-name
// registration. Both inserts run in one transaction; a failure on either
// side leaves no orphaned row.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*models.SanitizedUser, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	name := strings.TrimSpace(input.Name)

	if email == "" || input.Password == "" || name == "" {
		return nil, apperrors.NewBadRequest("email, password, and name are required")
	}
	if !emailPattern.MatchString(email) {
		return nil, apperrors.NewBadRequest("invalid email format")
	}
	if err := s.policy.Validate(input.Password); err != nil {
		return nil, err
	}

	var existing int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("LOWER(email) = ?", email).
		Count(&existing).Error; err != nil {
		return nil, fmt.Errorf("auth service: check existing email: %w", err)
	}
	if existing > 0 {
		return nil, apperrors.NewConflict("user with this email already exists")
	}

	hashed, err := crypto.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("auth service: hash password: %w", err)
	}

	user := &models.User{
		Email:        email,
		PasswordHash: hashed,
		Name:         name,
		Phone:        strings.TrimSpace(input.Phone),
		Role:         models.RoleClient,
		State:        models.UserStateActive,
		IsVerified:   true,
	}

	if s.verify {
		token, tokenErr := crypto.GenerateToken(verificationTokenBytes)
		if tokenErr != nil {
			return nil, fmt.Errorf("auth service: generate verification token: %w", tokenErr)
		}
		user.State = models.UserStatePending
		user.IsVerified = false
		user.VerificationToken = token
	}

	mt5Name := strings.TrimSpace(input.MT5Name)
	if mt5Name == "" {
		mt5Name = name
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return err
		}

		registration := &models.AccountName{
			MT5Name:   mt5Name,
			OwnerName: name,
			Email:     email,
			State:     models.NameStateActive,
			UserID:    &user.ID,
		}
		return tx.Create(registration).Error
	})
	if err != nil {
		if database.IsUniqueConstraintError(err) {
			return nil, apperrors.NewConflict("email or account name already registered")
		}
		return nil, fmt.Errorf("auth service: register: %w", err)
	}

	if s.verify {
		s.sendVerificationMail(ctx, user)
	}

	s.record(ctx, &user.ID, "auth.register", map[string]any{"email": user.Email})

	sanitized := user.Sanitized()
	return &sanitized, nil
}

// Login authenticates the credentials and mints a session. Each gate is
// terminal: unknown email, locked account, inactive account, bad password.
// The failed-attempt counter locks the account permanently once it reaches
// the threshold; only a password reset or support action unlocks it.
func (s *AuthService) Login(ctx context.Context, email, password string, meta SessionMetadata) (*LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, apperrors.NewBadRequest("email and password are required")
	}

	var user models.User
	err := s.db.WithContext(ctx).Where("LOWER(email) = ?", email).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		return nil, apperrors.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("auth service: query user: %w", err)
	}

	if user.IsLocked {
		metrics.AuthAttempts.WithLabelValues("locked").Inc()
		return nil, apperrors.ErrAccountLocked
	}

	if (s.verify && !user.IsVerified) || user.State != models.UserStateActive {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		return nil, apperrors.ErrAccountNotActive
	}

	if !crypto.VerifyPassword(user.PasswordHash, password) {
		return nil, s.handleFailedAttempt(ctx, &user, meta)
	}

	now := s.now()
	if err := s.db.WithContext(ctx).Model(&user).Updates(map[string]any{
		"failed_login_attempts": 0,
		"last_login_at":         now,
	}).Error; err != nil {
		return nil, fmt.Errorf("auth service: update login state: %w", err)
	}
	user.FailedLoginAttempts = 0
	user.LastLoginAt = &now

	session, err := s.sessions.Create(ctx, user.ID, meta)
	if err != nil {
		return nil, err
	}

	metrics.AuthAttempts.WithLabelValues("success").Inc()
	s.record(ctx, &user.ID, "auth.login", map[string]any{"ip": meta.IPAddress})

	return &LoginResult{
		User:      user.Sanitized(),
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
	}, nil
}

func (s *AuthService) handleFailedAttempt(ctx context.Context, user *models.User, meta SessionMetadata) error {
	user.FailedLoginAttempts++

	updates := map[string]any{
		"failed_login_attempts": user.FailedLoginAttempts,
	}
	if user.FailedLoginAttempts >= s.threshold {
		user.IsLocked = true
		updates["is_locked"] = true
	}

	if err := s.db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
		return fmt.Errorf("auth service: update failed attempts: %w", err)
	}

	s.record(ctx, &user.ID, "auth.login_failed", map[string]any{
		"attempts": user.FailedLoginAttempts,
		"locked":   user.IsLocked,
		"ip":       meta.IPAddress,
	})

	if user.IsLocked {
		metrics.AuthAttempts.WithLabelValues("locked").Inc()
		return apperrors.ErrAccountLocked
	}

	metrics.AuthAttempts.WithLabelValues("failure").Inc()
	return apperrors.ErrInvalidCredentials
}

// VerifyEmail consumes a verification token, activating the pending user.
func (s *AuthService) VerifyEmail(ctx context.Context, token string) (*models.SanitizedUser, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, apperrors.NewBadRequest("verification token is required")
	}

	var user models.User
	err := s.db.WithContext(ctx).Where("verification_token = ?", token).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewNotFound("invalid verification token")
	}
	if err != nil {
		return nil, fmt.Errorf("auth service: find verification token: %w", err)
	}

	if user.IsVerified {
		return nil, ErrAlreadyVerified
	}

	if err := s.db.WithContext(ctx).Model(&user).Updates(map[string]any{
		"is_verified":        true,
		"verification_token": "",
		"state":              models.UserStateActive,
	}).Error; err != nil {
		return nil, fmt.Errorf("auth service: mark verified: %w", err)
	}

	user.IsVerified = true
	user.VerificationToken = ""
	user.State = models.UserStateActive

	s.record(ctx, &user.ID, "auth.email_verified", nil)

	sanitized := user.Sanitized()
	return &sanitized, nil
}

// RequestPasswordReset stamps a fresh reset token for the account. The
// response shape is identical whether or not the email exists so callers
// cannot enumerate users.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil
	}

	var user models.User
	err := s.db.WithContext(ctx).Where("LOWER(email) = ?", email).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("auth service: query user for reset: %w", err)
	}

	token, err := crypto.GenerateToken(resetTokenBytes)
	if err != nil {
		return fmt.Errorf("auth service: generate reset token: %w", err)
	}

	expiresAt := s.now().Add(s.resetTTL)
	if err := s.db.WithContext(ctx).Model(&user).Updates(map[string]any{
		"reset_token":            token,
		"reset_token_expires_at": expiresAt,
	}).Error; err != nil {
		return fmt.Errorf("auth service: store reset token: %w", err)
	}

	s.sendResetMail(ctx, &user, token)
	s.record(ctx, &user.ID, "auth.reset_requested", nil)

	return nil
}

// ResetPassword consumes an unexpired reset token, replaces the credential,
// and clears any lockout state.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return apperrors.NewBadRequest("reset token is required")
	}

	var user models.User
	err := s.db.WithContext(ctx).Where("reset_token = ?", token).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.NewNotFound("invalid or expired reset token")
	}
	if err != nil {
		return fmt.Errorf("auth service: find reset token: %w", err)
	}

	if user.ResetTokenExpiresAt == nil || user.ResetTokenExpiresAt.Before(s.now()) {
		return apperrors.NewNotFound("invalid or expired reset token")
	}

	if err := s.policy.Validate(newPassword); err != nil {
		return err
	}

	hashed, err := crypto.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("auth service: hash new password: %w", err)
	}

	if err := s.db.WithContext(ctx).Model(&user).Updates(map[string]any{
		"password_hash":          hashed,
		"reset_token":            "",
		"reset_token_expires_at": nil,
		"is_locked":              false,
		"failed_login_attempts":  0,
	}).Error; err != nil {
		return fmt.Errorf("auth service: reset password: %w", err)
	}

	s.record(ctx, &user.ID, "auth.password_reset", nil)

	return nil
}

func (s *AuthService) sendVerificationMail(ctx context.Context, user *models.User) {
	if s.mailer == nil {
		return
	}

	link := user.VerificationToken
	if s.baseURL != "" {
		link = fmt.Sprintf("%s/verify-email?token=%s", s.baseURL, user.VerificationToken)
	}

	msg := mail.Message{
		To:      []string{user.Email},
		Subject: "Confirm your trading dashboard account",
		Body:    fmt.Sprintf("Welcome!\n\nPlease confirm your email address:\n%s\n\nIf you did not create an account, ignore this message.\n", link),
	}
	// Delivery failures must not fail registration; the token stays valid.
	_ = s.mailer.Send(ctx, msg)
}

func (s *AuthService) sendResetMail(ctx context.Context, user *models.User, token string) {
	if s.mailer == nil {
		return
	}

	link := token
	if s.baseURL != "" {
		link = fmt.Sprintf("%s/reset-password?token=%s", s.baseURL, token)
	}

	msg := mail.Message{
		To:      []string{user.Email},
		Subject: "Password reset request",
		Body:    fmt.Sprintf("A password reset was requested for your account.\n\nReset link (valid for %s):\n%s\n\nIf you did not request this, ignore this message.\n", s.resetTTL, link),
	}
	_ = s.mailer.Send(ctx, msg)
}

func (s *AuthService) record(ctx context.Context, userID *string, action string, details map[string]any) {
	if s.activity == nil {
		return
	}
	_ = s.activity.Record(ctx, services.ActivityEntry{
		UserID:  userID,
		Action:  action,
		Details: details,
	})
}
