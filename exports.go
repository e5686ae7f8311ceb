package tally

import (
	"github.com/xraph/tally/account"
	"github.com/xraph/tally/transaction"
	"github.com/xraph/tally/types"
)

// Re-export common types for convenience so users don't have to import the
// account, transaction and types packages for everyday use.

// Entity is re-exported from types package.
type Entity = types.Entity

// Account is re-exported from account package.
type Account = account.Account

// ClientID is re-exported from account package.
type ClientID = account.ClientID

// TxID is re-exported from transaction package.
type TxID = transaction.TxID

// Order is re-exported from transaction package.
type Order = transaction.Order

// Transaction is re-exported from transaction package.
type Transaction = transaction.Transaction

// Kind is re-exported from transaction package.
type Kind = transaction.Kind

// Re-export order constructors
var (
	NewOrder   = transaction.NewOrder
	Deposit    = transaction.Deposit
	Withdrawal = transaction.Withdrawal
	Dispute    = transaction.Dispute
	Resolve    = transaction.Resolve
	Chargeback = transaction.Chargeback
)

// Re-export amount helpers
var (
	ParseAmount  = types.ParseAmount
	FormatAmount = types.FormatAmount
	Sum          = types.Sum
)

// Re-export Entity constructor
var NewEntity = types.NewEntity
