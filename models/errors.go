package models

import "github.com/pkg/errors"

// ErrorKind groups market errors by what the caller has to change.
type ErrorKind string

const (
	KindValidation    ErrorKind = "validation"
	KindAuthorization ErrorKind = "authorization"
	KindTemporal      ErrorKind = "temporal"
	KindState         ErrorKind = "state"
	KindEconomic      ErrorKind = "economic"
	KindArithmetic    ErrorKind = "arithmetic"
	KindIdentity      ErrorKind = "identity"
	KindNotFound      ErrorKind = "not_found"
)

// AmmError is a classified failure of a market operation. Values are
// sentinels; compare them with errors.Is.
type AmmError struct {
	Code    string    `json:"code"`
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

func (e *AmmError) Error() string {
	return e.Message
}

func newAmmError(code string, kind ErrorKind, msg string) *AmmError {
	return &AmmError{Code: code, Kind: kind, Message: msg}
}

var (
	// validation
	ErrInvalidB       = newAmmError("InvalidB", KindValidation, "invalid b parameter")
	ErrInvalidFee     = newAmmError("InvalidFee", KindValidation, "invalid fee")
	ErrInvalidUpdate  = newAmmError("InvalidUpdate", KindValidation, "invalid update")
	ErrInvalidOutcome = newAmmError("InvalidOutcome", KindValidation, "invalid outcome")
	ErrInvalidSide    = newAmmError("InvalidSide", KindValidation, "invalid side")
	ErrInvalidParams  = newAmmError("InvalidParams", KindValidation, "invalid market parameters")

	// authorization
	ErrUnauthorized = newAmmError("Unauthorized", KindAuthorization, "unauthorized")

	// temporal
	ErrAfterDeadline          = newAmmError("AfterDeadline", KindTemporal, "after deadline")
	ErrBeforeSettlementWindow = newAmmError("BeforeSettlementWindow", KindTemporal, "before settlement window")

	// state
	ErrPaused         = newAmmError("Paused", KindState, "market is paused")
	ErrAlreadySettled = newAmmError("AlreadySettled", KindState, "already settled")
	ErrUnsettled      = newAmmError("Unsettled", KindState, "market not yet settled")
	ErrMarketExists   = newAmmError("MarketExists", KindState, "market already exists")

	// economic
	ErrTradeTooLarge       = newAmmError("TradeTooLarge", KindEconomic, "trade exceeds max_trade_usdc_fp")
	ErrPositionTooLarge    = newAmmError("PositionTooLarge", KindEconomic, "position exceeds max_position_shares_fp")
	ErrInsufficientBalance = newAmmError("InsufficientBalance", KindEconomic, "insufficient balance")
	ErrInsufficientPayment = newAmmError("InsufficientPayment", KindEconomic, "insufficient payment collected")
	ErrSlippage            = newAmmError("Slippage", KindEconomic, "slippage / constraint not met")
	ErrInvalidAmount       = newAmmError("InvalidAmount", KindEconomic, "invalid amount")
	ErrInsufficientFunds   = newAmmError("InsufficientFunds", KindEconomic, "insufficient funds in source account")

	// arithmetic
	ErrMathOverflow = newAmmError("MathOverflow", KindArithmetic, "math overflow")

	// identity / account mismatch
	ErrWrongVault      = newAmmError("WrongVault", KindIdentity, "wrong vault account")
	ErrWrongCollateral = newAmmError("WrongCollateral", KindIdentity, "wrong collateral asset")
	ErrInvalidOwner    = newAmmError("InvalidOwner", KindIdentity, "invalid owner")
	ErrWrongMarket     = newAmmError("WrongMarket", KindIdentity, "wrong market for position")
	ErrWrongTreasury   = newAmmError("WrongTreasury", KindIdentity, "wrong treasury account")

	// lookups
	ErrMarketNotFound   = newAmmError("MarketNotFound", KindNotFound, "market not found")
	ErrPositionNotFound = newAmmError("PositionNotFound", KindNotFound, "position not found")
	ErrAccountNotFound  = newAmmError("AccountNotFound", KindNotFound, "account not found")
)

// KindOf returns the kind of the first AmmError in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var ae *AmmError
	if errors.As(err, &ae) {
		return ae.Kind, true
	}
	return "", false
}

// CodeOf returns the code of the first AmmError in err's chain.
func CodeOf(err error) string {
	var ae *AmmError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ""
}
