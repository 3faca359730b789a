// Package override validates one-time codes that bypass a blocking guard.
// Validation is TOTP (RFC 6238): 30-second step, one step of skew either
// side, six digits. Fail-closed throughout: any uncertainty (missing
// secret, lax permissions, malformed code) denies the override. There is
// no secondary authentication path and no hardcoded fallback code.
//
// Codes are deliberately not single-use inside their 90-second window; the
// compensating control is that every accepted override is audited.
package override

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	"github.com/hookgate/hookgate/internal/guard"
	"github.com/hookgate/hookgate/internal/secret"
)

var (
	// ErrNonBypassable rejects override attempts against guards that must
	// never be overridden. Checked before any secret read.
	ErrNonBypassable = errors.New("override: guard is not bypassable")
	// ErrDenied covers every validation failure: wrong code, expired
	// window, missing or corrupt secret. Callers get no detail beyond the
	// wrapped cause; the decision is BLOCK either way.
	ErrDenied = errors.New("override: denied")
)

// Period and Skew define the validity window: 30 s step, ±1 step (90 s total).
const (
	Period = 30
	Skew   = 1
)

var codeShape = regexp.MustCompile(`^[0-9]{6}$`)

// Authorizer validates override codes against the secret store.
type Authorizer struct {
	secrets *secret.Store
	now     func() time.Time
}

// NewAuthorizer returns an Authorizer reading from the given store.
func NewAuthorizer(store *secret.Store) *Authorizer {
	return &Authorizer{secrets: store, now: time.Now}
}

// Authorize checks a submitted code against the stored secret for the
// given guard. Returns nil only when the guard is bypassable AND the code
// matches the current or adjacent TOTP step.
func (a *Authorizer) Authorize(code string, g guard.Guard) error {
	if !g.Bypassable {
		return fmt.Errorf("%w: %s", ErrNonBypassable, g.Name)
	}

	if !codeShape.MatchString(code) {
		return fmt.Errorf("%w: code must be 6 digits", ErrDenied)
	}

	sec, err := a.secrets.Read()
	if err != nil {
		// Missing or corrupt secret is a hard failure, never treated as
		// "no secret configured, so allow".
		return fmt.Errorf("%w: %v", ErrDenied, err)
	}

	// ValidateCustom computes the current and ±Skew step values and
	// compares with constant-time comparison internally.
	ok, err := totp.ValidateCustom(code, sec, a.now().UTC(), totp.ValidateOpts{
		Period:    Period,
		Skew:      Skew,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDenied, err)
	}
	if !ok {
		return fmt.Errorf("%w: code did not match current window", ErrDenied)
	}
	return nil
}

// CurrentCode returns the TOTP code for the current step. Operator-side
// convenience for `hookgate secret code`; it requires the same live secret
// read as validation.
func (a *Authorizer) CurrentCode() (string, error) {
	sec, err := a.secrets.Read()
	if err != nil {
		return "", err
	}
	return totp.GenerateCodeCustom(sec, a.now().UTC(), totp.ValidateOpts{
		Period:    Period,
		Skew:      Skew,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
}
