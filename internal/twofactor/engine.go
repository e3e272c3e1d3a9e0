// Package twofactor implements TOTP enrollment and verification plus the
// backup-code lifecycle.
package twofactor

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	accountdomain "asset-console/backend/internal/account/domain"
	"asset-console/backend/internal/security"
	"asset-console/backend/internal/twofactor/domain"
)

// Sentinel errors for the two-factor engine; handlers map them to HTTP statuses.
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidCode        = errors.New("invalid two-factor code")
	ErrNotEnabled         = errors.New("two-factor authentication is not enabled")
	ErrAlreadyEnabled     = errors.New("two-factor authentication is already enabled")
	ErrSetupRequired      = errors.New("two-factor setup has not been started")
)

// skewSteps is the accepted TOTP clock-skew tolerance in 30s steps on either side.
const skewSteps = 2

// AccountRepo is the minimal account repository needed by the engine.
type AccountRepo interface {
	GetByID(ctx context.Context, id string) (*accountdomain.Account, error)
	SetTwoFactorSecret(ctx context.Context, id, secret string) error
	EnableTwoFactor(ctx context.Context, id string) error
	DisableTwoFactor(ctx context.Context, id string) error
}

// CodeRepo is the backup-code repository needed by the engine.
type CodeRepo interface {
	CreateBatch(ctx context.Context, codes []*domain.BackupCode) error
	ListUnused(ctx context.Context, userID string) ([]*domain.BackupCode, error)
	MarkUsed(ctx context.Context, id string, at time.Time) (bool, error)
	DeleteAllForUser(ctx context.Context, userID string) error
}

// Enrollment is returned by Setup for the client to render as a QR code.
type Enrollment struct {
	Secret    string
	QRPayload string // otpauth:// URI
}

// Engine implements TOTP setup, confirmation, verification, and the
// backup-code lifecycle.
type Engine struct {
	accounts AccountRepo
	codes    CodeRepo
	hasher   *security.Hasher
	issuer   string
	nowF     func() time.Time
}

// NewEngine returns an Engine. issuer names this service in the otpauth URI
// (what authenticator apps display).
func NewEngine(accounts AccountRepo, codes CodeRepo, hasher *security.Hasher, issuer string) *Engine {
	return &Engine{
		accounts: accounts,
		codes:    codes,
		hasher:   hasher,
		issuer:   issuer,
		nowF:     func() time.Time { return time.Now().UTC() },
	}
}

// Setup generates a fresh secret and stores it unconfirmed
// (two_factor_enabled stays false). Calling Setup again before Confirm
// replaces the pending secret. Returns the enrollment payload exactly once.
func (e *Engine) Setup(ctx context.Context, userID string) (*Enrollment, error) {
	acct, err := e.accounts.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if acct == nil {
		return nil, ErrUserNotFound
	}
	if acct.TwoFactorEnabled {
		return nil, ErrAlreadyEnabled
	}
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      e.issuer,
		AccountName: acct.Email,
	})
	if err != nil {
		return nil, err
	}
	if err := e.accounts.SetTwoFactorSecret(ctx, userID, key.Secret()); err != nil {
		return nil, err
	}
	return &Enrollment{Secret: key.Secret(), QRPayload: key.URL()}, nil
}

// Confirm verifies code against the pending secret and, on success, enables
// two-factor and issues a fresh batch of backup codes. The plaintext codes
// are returned exactly once; they are not retrievable again in full.
func (e *Engine) Confirm(ctx context.Context, userID, code string) ([]string, error) {
	acct, err := e.accounts.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if acct == nil {
		return nil, ErrUserNotFound
	}
	if acct.TwoFactorEnabled {
		return nil, ErrAlreadyEnabled
	}
	if acct.TwoFactorSecret == "" {
		return nil, ErrSetupRequired
	}
	if !e.validateTOTP(code, acct.TwoFactorSecret) {
		return nil, ErrInvalidCode
	}
	if err := e.accounts.EnableTwoFactor(ctx, userID); err != nil {
		return nil, err
	}
	return e.issueBackupCodes(ctx, userID)
}

// Verify checks a login-time code. With isBackupCode, the first unused
// matching code is consumed (single use); otherwise the code is verified as
// TOTP with the same skew tolerance as Confirm. Returns ErrInvalidCode when
// nothing matches.
func (e *Engine) Verify(ctx context.Context, userID, code string, isBackupCode bool) error {
	acct, err := e.accounts.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if acct == nil {
		return ErrUserNotFound
	}
	if !acct.TwoFactorEnabled || acct.TwoFactorSecret == "" {
		return ErrNotEnabled
	}
	if !isBackupCode {
		if !e.validateTOTP(code, acct.TwoFactorSecret) {
			return ErrInvalidCode
		}
		return nil
	}
	unused, err := e.codes.ListUnused(ctx, userID)
	if err != nil {
		return err
	}
	trimmed := strings.TrimSpace(code)
	for _, c := range unused {
		if strings.EqualFold(c.Code, trimmed) {
			ok, err := e.codes.MarkUsed(ctx, c.ID, e.nowF())
			if err != nil {
				return err
			}
			if !ok {
				// Lost a concurrent consumption race; the code is spent.
				return ErrInvalidCode
			}
			return nil
		}
	}
	return ErrInvalidCode
}

// Regenerate replaces all backup codes after a password step-up check.
// Previously issued codes stop working immediately.
func (e *Engine) Regenerate(ctx context.Context, userID, password string) ([]string, error) {
	acct, err := e.stepUp(ctx, userID, password)
	if err != nil {
		return nil, err
	}
	if !acct.TwoFactorEnabled {
		return nil, ErrNotEnabled
	}
	return e.issueBackupCodes(ctx, userID)
}

// Disable turns two-factor off after a password step-up check: clears the
// secret, the enabled flag, and every backup code.
func (e *Engine) Disable(ctx context.Context, userID, password string) error {
	acct, err := e.stepUp(ctx, userID, password)
	if err != nil {
		return err
	}
	if !acct.TwoFactorEnabled {
		return ErrNotEnabled
	}
	if err := e.accounts.DisableTwoFactor(ctx, userID); err != nil {
		return err
	}
	return e.codes.DeleteAllForUser(ctx, userID)
}

// stepUp re-checks the account password. Any failure leaves state untouched.
func (e *Engine) stepUp(ctx context.Context, userID, password string) (*accountdomain.Account, error) {
	acct, err := e.accounts.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if acct == nil {
		return nil, ErrUserNotFound
	}
	if err := e.hasher.Compare(acct.PasswordHash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return acct, nil
}

func (e *Engine) validateTOTP(code, secret string) bool {
	ok, err := totp.ValidateCustom(strings.TrimSpace(code), secret, e.nowF(), totp.ValidateOpts{
		Period:    30,
		Skew:      skewSteps,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && ok
}

func (e *Engine) issueBackupCodes(ctx context.Context, userID string) ([]string, error) {
	if err := e.codes.DeleteAllForUser(ctx, userID); err != nil {
		return nil, err
	}
	now := e.nowF()
	batch := make([]*domain.BackupCode, 0, domain.BatchSize)
	plain := make([]string, 0, domain.BatchSize)
	for i := 0; i < domain.BatchSize; i++ {
		code, err := generateCode()
		if err != nil {
			return nil, err
		}
		batch = append(batch, &domain.BackupCode{
			ID:        uuid.New().String(),
			UserID:    userID,
			Code:      code,
			CreatedAt: now,
		})
		plain = append(plain, code)
	}
	if err := e.codes.CreateBatch(ctx, batch); err != nil {
		return nil, err
	}
	return plain, nil
}

// generateCode returns a fixed-length uppercase hex code.
func generateCode() (string, error) {
	b := make([]byte, domain.CodeLength/2)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return strings.ToUpper(hex.EncodeToString(b)), nil
}
