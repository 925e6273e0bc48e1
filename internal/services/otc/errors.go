package otc

import "errors"

var (
	// ErrUnknownSymbol is returned for symbols that were never initialized.
	ErrUnknownSymbol = errors.New("otc: unknown symbol")
	// ErrAlreadyInitialized is returned by InitializeSymbol when state exists; use ResetSymbol to replace it.
	ErrAlreadyInitialized = errors.New("otc: symbol already initialized")
	// ErrInvalidConfig is returned for structurally invalid symbol configs.
	ErrInvalidConfig = errors.New("otc: invalid symbol config")
	// ErrInvalidPrice is returned for non-positive or non-finite prices.
	ErrInvalidPrice = errors.New("otc: invalid price")
)
