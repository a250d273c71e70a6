package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"aitookmyjob/internal/idgen"
	"aitookmyjob/internal/models"
	"aitookmyjob/internal/store"
	"aitookmyjob/internal/validation"
)

const (
	passwordHashCost = 12
	otpHashCost      = 10

	otpTTL          = 10 * time.Minute
	otpMaxAttempts  = 5
	telegramCodeTTL = 15 * time.Minute
)

// AuthService handles registration, login, the phone OTP state machine,
// Telegram account linking and account deletion.
type AuthService struct {
	store       store.Store
	auditor     *Auditor
	logger      *slog.Logger
	allowDevOTP bool
}

// NewAuthService returns a new AuthService. allowDevOTP exposes the
// generated OTP in responses and must be off in production.
func NewAuthService(s store.Store, auditor *Auditor, logger *slog.Logger, allowDevOTP bool) *AuthService {
	return &AuthService{store: s, auditor: auditor, logger: logger, allowDevOTP: allowDevOTP}
}

// RegisterInput carries the registration fields.
type RegisterInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
}

// Register creates a user account with role "user".
func (s *AuthService) Register(ctx context.Context, in RegisterInput, ip string) (*models.User, error) {
	email := validation.NormalizeEmail(in.Email)
	var fields []models.FieldError
	if err := validation.ValidateEmail(email); err != nil {
		fields = append(fields, models.FieldError{Field: "email", Message: err.Error()})
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		fields = append(fields, models.FieldError{Field: "password", Message: err.Error()})
	}
	var phone *string
	if in.Phone != "" {
		normalized := validation.NormalizePhone(in.Phone)
		if err := validation.ValidatePhone(normalized); err != nil {
			fields = append(fields, models.FieldError{Field: "phone", Message: err.Error()})
		} else {
			phone = &normalized
		}
	}
	if len(fields) > 0 {
		return nil, models.NewFieldValidationError(fields)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), passwordHashCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	user := &models.User{
		ID:           idgen.EntityID(),
		Email:        email,
		Phone:        phone,
		Role:         "user",
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.store.InsertUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, models.NewConflictError("An account with this email already exists")
		}
		return nil, models.NewInternalError(err)
	}
	identity := &models.AuthIdentity{
		UserID:        user.ID,
		EmailVerified: true,
		UpdatedAt:     time.Now().UTC(),
	}
	if err := s.store.UpsertIdentity(ctx, identity); err != nil {
		s.logger.Warn("identity create failed", "user_id", user.ID, "error", err)
	}
	s.auditor.Record(ctx, ActionAuthRegister, &user.ID, "user", user.ID, ip, nil)
	return user, nil
}

// Login verifies credentials. The failure message is identical for unknown
// email and wrong password so accounts cannot be enumerated.
func (s *AuthService) Login(ctx context.Context, email, password, ip string) (*models.User, error) {
	user, err := s.store.GetUserByEmail(ctx, validation.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, models.NewUnauthorizedError("Invalid credentials")
		}
		return nil, models.NewInternalError(err)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, models.NewUnauthorizedError("Invalid credentials")
	}
	if user.IsBanned(time.Now().UTC()) {
		return nil, models.NewForbiddenError("Account banned")
	}
	s.auditor.Record(ctx, ActionAuthLogin, &user.ID, "user", user.ID, ip, nil)
	return user, nil
}

// Profile is the authenticated self-view.
type Profile struct {
	User           *models.User `json:"user"`
	PhoneVerified  bool         `json:"phoneVerified"`
	TelegramLinked bool         `json:"telegramLinked"`
}

// Me loads the requester's profile.
func (s *AuthService) Me(ctx context.Context, userID string) (*Profile, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, models.NewUnauthorizedError("Account no longer exists")
		}
		return nil, models.NewInternalError(err)
	}
	profile := &Profile{User: user}
	if identity, err := s.store.GetIdentity(ctx, userID); err == nil {
		profile.PhoneVerified = identity.PhoneVerified
	}
	if _, err := s.store.GetTelegramLinkByUser(ctx, userID); err == nil {
		profile.TelegramLinked = true
	}
	return profile, nil
}

// OTPChallenge is the response to a phone verification request.
type OTPChallenge struct {
	OK        bool      `json:"ok"`
	ExpiresAt time.Time `json:"expiresAt"`
	DevCode   string    `json:"devCode,omitempty"`
}

// StartPhoneOTP issues a fresh 6-digit challenge for the given phone.
// Reissuing replaces any previous challenge and resets the attempt counter.
func (s *AuthService) StartPhoneOTP(ctx context.Context, userID, phone, ip string) (*OTPChallenge, error) {
	normalized := validation.NormalizePhone(phone)
	if err := validation.ValidatePhone(normalized); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if existing, err := s.store.GetUserByPhone(ctx, normalized); err == nil && existing.ID != userID {
		return nil, models.NewConflictError("Phone number already in use")
	}

	code := idgen.OTP()
	hash, err := bcrypt.GenerateFromPassword([]byte(code), otpHashCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	identity, err := s.loadOrInitIdentity(ctx, userID)
	if err != nil {
		return nil, err
	}
	hashStr := string(hash)
	expiresAt := time.Now().UTC().Add(otpTTL)
	identity.PendingPhone = &normalized
	identity.PhoneOTPHash = &hashStr
	identity.PhoneOTPExpiresAt = &expiresAt
	identity.PhoneOTPAttempts = 0
	identity.UpdatedAt = time.Now().UTC()
	if err := s.store.UpsertIdentity(ctx, identity); err != nil {
		return nil, models.NewInternalError(err)
	}
	s.auditor.Record(ctx, ActionPhoneStart, &userID, "user", userID, ip, nil)

	challenge := &OTPChallenge{OK: true, ExpiresAt: expiresAt}
	if s.allowDevOTP {
		challenge.DevCode = code
	}
	return challenge, nil
}

// VerifyPhoneOTP walks the challenge state machine: attempt cap 429, expiry
// 410, phone mismatch 400, wrong code 401 (and the attempt is counted).
func (s *AuthService) VerifyPhoneOTP(ctx context.Context, userID, phone, code, ip string) error {
	if err := validation.ValidateOTPCode(code); err != nil {
		return models.NewValidationError(err.Error())
	}
	identity, err := s.store.GetIdentity(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.NewValidationError("No verification in progress")
		}
		return models.NewInternalError(err)
	}
	if identity.PendingPhone == nil || identity.PhoneOTPHash == nil || identity.PhoneOTPExpiresAt == nil {
		return models.NewValidationError("No verification in progress")
	}
	if identity.PhoneOTPAttempts >= otpMaxAttempts {
		return models.NewRateLimitedError("Too many attempts, request a new code")
	}
	if time.Now().UTC().After(*identity.PhoneOTPExpiresAt) {
		return models.NewGoneError("Code expired, request a new one")
	}
	if validation.NormalizePhone(phone) != *identity.PendingPhone {
		return models.NewValidationError("Phone does not match the pending verification")
	}
	if bcrypt.CompareHashAndPassword([]byte(*identity.PhoneOTPHash), []byte(code)) != nil {
		identity.PhoneOTPAttempts++
		identity.UpdatedAt = time.Now().UTC()
		if err := s.store.UpsertIdentity(ctx, identity); err != nil {
			return models.NewInternalError(err)
		}
		return models.NewUnauthorizedError("Incorrect code")
	}

	verified := *identity.PendingPhone
	identity.Phone = &verified
	identity.PhoneVerified = true
	identity.PendingPhone = nil
	identity.PhoneOTPHash = nil
	identity.PhoneOTPExpiresAt = nil
	identity.PhoneOTPAttempts = 0
	identity.UpdatedAt = time.Now().UTC()
	if err := s.store.UpsertIdentity(ctx, identity); err != nil {
		return models.NewInternalError(err)
	}
	if user, err := s.store.GetUser(ctx, userID); err == nil {
		user.Phone = &verified
		if err := s.store.UpdateUser(ctx, user); err != nil {
			s.logger.Warn("user phone update failed", "user_id", userID, "error", err)
		}
	}
	s.auditor.Record(ctx, ActionPhoneVerified, &userID, "user", userID, ip, nil)
	return nil
}

// TelegramChallenge is the response to a link request: the user sends
// "/link CODE" to the bot before the code expires.
type TelegramChallenge struct {
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// StartTelegramLink issues a link code for the requester.
func (s *AuthService) StartTelegramLink(ctx context.Context, userID, ip string) (*TelegramChallenge, error) {
	identity, err := s.loadOrInitIdentity(ctx, userID)
	if err != nil {
		return nil, err
	}
	code := idgen.LinkCode()
	expiresAt := time.Now().UTC().Add(telegramCodeTTL)
	identity.TelegramLinkCode = &code
	identity.TelegramCodeExpiresAt = &expiresAt
	identity.UpdatedAt = time.Now().UTC()
	if err := s.store.UpsertIdentity(ctx, identity); err != nil {
		return nil, models.NewInternalError(err)
	}
	s.auditor.Record(ctx, ActionTelegramStart, &userID, "user", userID, ip, nil)
	return &TelegramChallenge{Code: code, ExpiresAt: expiresAt}, nil
}

// CompleteTelegramLink resolves a link code delivered through the bot
// webhook. Unknown and expired codes both fail without detail.
func (s *AuthService) CompleteTelegramLink(ctx context.Context, code, telegramUserID string, telegramUsername *string) error {
	identity, err := s.store.GetIdentityByLinkCode(ctx, code)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.NewNotFoundError("Link code", code)
		}
		return models.NewInternalError(err)
	}
	if identity.TelegramCodeExpiresAt == nil || time.Now().UTC().After(*identity.TelegramCodeExpiresAt) {
		return models.NewGoneError("Link code expired")
	}
	link := &models.TelegramLink{
		ID:               idgen.EntityID(),
		UserID:           identity.UserID,
		TelegramUserID:   telegramUserID,
		TelegramUsername: telegramUsername,
		Status:           "linked",
		LinkedAt:         time.Now().UTC(),
	}
	if err := s.store.UpsertTelegramLink(ctx, link); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return models.NewConflictError("Telegram account already linked elsewhere")
		}
		return models.NewInternalError(err)
	}
	identity.TelegramLinkCode = nil
	identity.TelegramCodeExpiresAt = nil
	identity.UpdatedAt = time.Now().UTC()
	if err := s.store.UpsertIdentity(ctx, identity); err != nil {
		s.logger.Warn("link code clear failed", "user_id", identity.UserID, "error", err)
	}
	s.auditor.Record(ctx, ActionTelegramComplete, &identity.UserID, "user", identity.UserID, "", map[string]any{
		"telegramUserId": telegramUserID,
	})
	return nil
}

// DeleteAccount removes the account after explicit confirmation, cascading
// the user's stories, identity and telegram link.
func (s *AuthService) DeleteAccount(ctx context.Context, userID, confirm, ip string) error {
	if confirm != "DELETE" {
		return models.NewValidationError(`Confirmation required: send {"confirm":"DELETE"}`)
	}
	if err := s.store.DeleteStoriesBySubmitter(ctx, userID); err != nil {
		return models.NewInternalError(err)
	}
	if err := s.store.DeleteUser(ctx, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.NewNotFoundError("User", userID)
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (s *AuthService) loadOrInitIdentity(ctx context.Context, userID string) (*models.AuthIdentity, error) {
	identity, err := s.store.GetIdentity(ctx, userID)
	if err == nil {
		return identity, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, models.NewInternalError(err)
	}
	return &models.AuthIdentity{UserID: userID, EmailVerified: true}, nil
}
