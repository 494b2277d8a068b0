package models

import "github.com/shopspring/decimal"

// ExecutionStatus is the terminal outcome of an execute() attempt.
type ExecutionStatus string

const (
	StatusFilled       ExecutionStatus = "filled"
	StatusSkipped      ExecutionStatus = "skipped"
	StatusUnwound      ExecutionStatus = "unwound"
	StatusPartialStuck ExecutionStatus = "partial_stuck"
	StatusError        ExecutionStatus = "error"
)

// SkipReason is a typed value for every expected rejection path through the
// executor's state machine, replacing exception-driven control flow
// for ordinary skips.
type SkipReason string

const (
	ReasonNone                 SkipReason = ""
	ReasonMarketCapReached     SkipReason = "market_cap_reached"
	ReasonBBalanceCheckFailed  SkipReason = "b_balance_check_failed"
	ReasonBInsufficientBalance SkipReason = "b_insufficient_balance"
	ReasonInsufficientUnits    SkipReason = "insufficient_units"
	ReasonAConflict            SkipReason = "a_conflict"
	ReasonALegFailed           SkipReason = "a_leg_failed"
	ReasonANoOrderID           SkipReason = "a_no_order_id"
	ReasonANoFill              SkipReason = "a_no_fill"
	ReasonBZeroFill            SkipReason = "b_zero_fill"
	ReasonOnCooldown           SkipReason = "on_cooldown"
	ReasonUnprofitableSizing   SkipReason = "unprofitable_after_sizing"
)

// ExecutionResult is the outcome of an attempted trade.
type ExecutionResult struct {
	Status ExecutionStatus
	Reason SkipReason

	Units int64

	VenueAOrderID string
	VenueBOrderID string

	VenueACostUSD      decimal.Decimal
	VenueBCostUSD      decimal.Decimal
	TotalCostUSD       decimal.Decimal
	GrossProfitUSD     decimal.Decimal
	NetProfitUSD       decimal.Decimal
	UnwindRecoveredUSD decimal.Decimal

	VenueAFeeUSD decimal.Decimal

	VenueABalanceBefore decimal.Decimal
	VenueABalanceAfter  decimal.Decimal
	VenueBBalanceBefore decimal.Decimal
	VenueBBalanceAfter  decimal.Decimal
}

// Skipped builds a zero-unit Skipped result for reason.
func Skipped(reason SkipReason) ExecutionResult {
	return ExecutionResult{Status: StatusSkipped, Reason: reason}
}

// ErrorResult builds a zero-unit Error result for reason.
func ErrorResult(reason SkipReason) ExecutionResult {
	return ExecutionResult{Status: StatusError, Reason: reason}
}
