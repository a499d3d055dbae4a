// Package staking implements the name-reservation bond ("DUC") lifecycle.
//
// A reservation locks a bond in escrow and creates a placeholder module.
// The placeholder resolves one of two ways:
//
//	NO_STAKE -> WAITING_FOR_REGULAR_DAPPLET   reserve (bond moved to escrow)
//	WAITING_FOR_REGULAR_DAPPLET -> NO_STAKE   first real version (refund to staker)
//	WAITING_FOR_REGULAR_DAPPLET -> READY_TO_BURN   clock passes endsAt
//	READY_TO_BURN -> NO_STAKE                 burn by anyone (payout to burner)
//
// Status is never stored; StatusAt derives it from the record, the module's
// placeholder flag and the clock. All guards live in Engine so the state
// machine can be tested without a registry.
//
// Components:
//   - Engine: Parameters, records and transitions
//   - Ledger: Token movements (MemoryLedger for tests and single-node use)
//   - Clock: Time source (SystemClock, ManualClock)
package staking
