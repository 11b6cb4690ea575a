package service

import (
	"errors"
	"fmt"

	"storefront/store"
	"storefront/wallet"
)

var (
	ErrWalletNotConnected = errors.New("wallet not connected")
	ErrEmptyCart          = errors.New("cart is empty")
	// ErrCheckoutInProgress rejects a second checkout, and cart edits, while one is running.
	ErrCheckoutInProgress = errors.New("checkout already in progress")
)

// ValidationError reports a missing or out-of-range input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ExternalError wraps a failure of the wallet capability.
type ExternalError struct {
	Op  string
	Err error
}

func (e *ExternalError) Error() string {
	return fmt.Sprintf("wallet %s: %v", e.Op, e.Err)
}

func (e *ExternalError) Unwrap() error { return e.Err }

type Kind int

const (
	KindNone Kind = iota
	KindInternal
	KindValidation
	KindPrecondition
	KindStock
	KindConflict
	KindNotFound
	KindExternal
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindValidation:
		return "validation_error"
	case KindPrecondition:
		return "precondition_failed"
	case KindStock:
		return "insufficient_stock"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindExternal:
		return "wallet_error"
	default:
		return "internal_error"
	}
}

// KindOf classifies err for the presentation layer.
func KindOf(err error) Kind {
	var ve *ValidationError
	var ee *ExternalError
	switch {
	case err == nil:
		return KindNone
	case errors.As(err, &ee):
		return KindExternal
	case errors.As(err, &ve), errors.Is(err, ErrEmptyCart):
		return KindValidation
	case errors.Is(err, ErrWalletNotConnected):
		return KindPrecondition
	case errors.Is(err, store.ErrInsufficientStock):
		return KindStock
	case errors.Is(err, ErrCheckoutInProgress), errors.Is(err, store.ErrCartChanged):
		return KindConflict
	case errors.Is(err, store.ErrProductNotFound),
		errors.Is(err, store.ErrCartLineNotFound),
		errors.Is(err, store.ErrProfileNotFound):
		return KindNotFound
	case errors.Is(err, wallet.ErrExtensionNotFound),
		errors.Is(err, wallet.ErrUserRejected),
		errors.Is(err, wallet.ErrSubmission):
		return KindExternal
	default:
		return KindInternal
	}
}
