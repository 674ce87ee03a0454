package errors

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Error kinds surfaced by the pricing core. Every rejection carries exactly one
// of these as its marked sentinel.
var (
	ErrInvalidOption                = new(ErrCodeInvalidOption, "invalid option")
	ErrInvalidCurrency              = new(ErrCodeInvalidCurrency, "invalid currency")
	ErrInvalidSubscriptionCurrency  = new(ErrCodeInvalidSubscriptionCurrency, "no common currency across subscriptions")
	ErrMissingPlan                  = new(ErrCodeMissingPlan, "a plan must be set first")
	ErrInvalidAddon                 = new(ErrCodeInvalidAddon, "add-on not found on plan")
	ErrInvalidCouponForSubscription = new(ErrCodeInvalidCouponForSubscription, "coupon does not apply")
	ErrNotFound                     = new(ErrCodeNotFound, "resource not found")
	ErrGiftCardCurrencyMismatch     = new(ErrCodeGiftCardCurrencyMismatch, "gift card currency mismatch")
	ErrInvalidItem                  = new(ErrCodeInvalidItem, "invalid item")
	ErrUnremovableItem              = new(ErrCodeUnremovableItem, "item cannot be removed")
	ErrAPI                          = new(ErrCodeAPIError, "api error")
	ErrAPITimeout                   = new(ErrCodeAPITimeout, "api timeout")
	ErrSystem                       = new(ErrCodeSystemError, "system error")

	sentinels = []*InternalError{
		ErrInvalidOption,
		ErrInvalidCurrency,
		ErrInvalidSubscriptionCurrency,
		ErrMissingPlan,
		ErrInvalidAddon,
		ErrInvalidCouponForSubscription,
		ErrNotFound,
		ErrGiftCardCurrencyMismatch,
		ErrInvalidItem,
		ErrUnremovableItem,
		ErrAPITimeout,
		ErrAPI,
		ErrSystem,
	}
)

const (
	ErrCodeInvalidOption                = "invalid-option"
	ErrCodeInvalidCurrency              = "invalid-currency"
	ErrCodeInvalidSubscriptionCurrency  = "invalid-subscription-currency"
	ErrCodeMissingPlan                  = "missing-plan"
	ErrCodeInvalidAddon                 = "invalid-addon"
	ErrCodeInvalidCouponForSubscription = "invalid-coupon-for-subscription"
	ErrCodeNotFound                     = "not-found"
	ErrCodeGiftCardCurrencyMismatch     = "gift-card-currency-mismatch"
	ErrCodeInvalidItem                  = "invalid-item"
	ErrCodeUnremovableItem              = "unremovable-item"
	ErrCodeAPIError                     = "api-error"
	ErrCodeAPITimeout                   = "api-timeout"
	ErrCodeSystemError                  = "system-error"
)

// InternalError represents a domain error
type InternalError struct {
	Code    string // Machine-readable error code
	Message string // Human-readable error message
	Op      string // Logical operation name
	Err     error  // Underlying error
}

func (e *InternalError) Error() string {
	if e.Err == nil {
		return e.DisplayError()
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Err.Error())
}

func (e *InternalError) DisplayError() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *InternalError) Unwrap() error {
	return e.Err
}

// Is implements error matching for wrapped errors
func (e *InternalError) Is(target error) bool {
	if target == nil {
		return false
	}

	t, ok := target.(*InternalError)
	if !ok {
		return errors.Is(e.Err, target)
	}

	return e.Code == t.Code
}

// New creates a new InternalError
func New(code string, message string) *InternalError {
	return new(code, message)
}

func new(code string, message string) *InternalError {
	return &InternalError{
		Code:    code,
		Message: message,
	}
}

func As(err error, target any) bool {
	return errors.As(err, target)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// Code returns the kind code of the first sentinel err is marked with, or
// an empty string when err carries none.
func Code(err error) string {
	if err == nil {
		return ""
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Code
		}
	}
	return ""
}

// GetHint returns the first user facing hint attached to err.
func GetHint(err error) string {
	hints := errors.GetAllHints(err)
	if len(hints) == 0 {
		return ""
	}
	return hints[0]
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsInvalidOption checks if an error is an invalid option error
func IsInvalidOption(err error) bool {
	return errors.Is(err, ErrInvalidOption)
}

// IsInvalidCurrency checks if an error is an invalid currency error
func IsInvalidCurrency(err error) bool {
	return errors.Is(err, ErrInvalidCurrency)
}

// IsInvalidSubscriptionCurrency checks if an error reports a currency conflict
// between subscriptions
func IsInvalidSubscriptionCurrency(err error) bool {
	return errors.Is(err, ErrInvalidSubscriptionCurrency)
}

// IsMissingPlan checks if an error is a missing plan error
func IsMissingPlan(err error) bool {
	return errors.Is(err, ErrMissingPlan)
}

// IsInvalidAddon checks if an error is an invalid add-on error
func IsInvalidAddon(err error) bool {
	return errors.Is(err, ErrInvalidAddon)
}

// IsInvalidCouponForSubscription checks if an error is a coupon applicability error
func IsInvalidCouponForSubscription(err error) bool {
	return errors.Is(err, ErrInvalidCouponForSubscription)
}

// IsGiftCardCurrencyMismatch checks if an error is a gift card currency error
func IsGiftCardCurrencyMismatch(err error) bool {
	return errors.Is(err, ErrGiftCardCurrencyMismatch)
}

// IsInvalidItem checks if an error is an invalid item error
func IsInvalidItem(err error) bool {
	return errors.Is(err, ErrInvalidItem)
}

// IsUnremovableItem checks if an error is an unremovable item error
func IsUnremovableItem(err error) bool {
	return errors.Is(err, ErrUnremovableItem)
}

// IsAPI checks if an error is a remote api error
func IsAPI(err error) bool {
	return errors.Is(err, ErrAPI)
}

// IsAPITimeout checks if an error is a remote api timeout
func IsAPITimeout(err error) bool {
	return errors.Is(err, ErrAPITimeout)
}
