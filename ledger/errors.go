package ledger

import "errors"

// Transition errors. Every rejection carries exactly one of these sentinels;
// a failed call has no partial effect. Retrying is the caller's concern.
var (
	// ErrInvalidWindow is returned when a sale is created with end <= start
	// or with end not strictly in the future.
	ErrInvalidWindow = errors.New("invalid sale window")

	// ErrNotAuthorized is returned when the caller is not the sale owner.
	ErrNotAuthorized = errors.New("not authorized")

	// ErrSaleNotActive is returned when a contribution is attempted outside
	// the active window, or against a missing or paused sale.
	ErrSaleNotActive = errors.New("sale not active")

	// ErrAlreadyFinalized is returned when finalizing a finalized sale.
	ErrAlreadyFinalized = errors.New("sale already finalized")

	// ErrNotEnded is returned when finalizing before the window closes.
	ErrNotEnded = errors.New("sale not ended")

	// ErrNotFinalized is returned when claiming from a non-finalized sale.
	ErrNotFinalized = errors.New("sale not finalized")

	// ErrNoContribution is returned when claiming without a position.
	ErrNoContribution = errors.New("no contribution")

	// ErrAlreadyClaimed is returned when claiming a claimed position.
	ErrAlreadyClaimed = errors.New("allocation already claimed")

	// ErrZeroIdentity is returned when transferring ownership to the null
	// principal.
	ErrZeroIdentity = errors.New("zero identity")

	// ErrSaleNotFound is returned by read-only queries for unknown sales.
	ErrSaleNotFound = errors.New("sale not found")
)
