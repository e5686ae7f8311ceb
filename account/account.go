// Package account defines the per-client balance entity and its state machine.
//
// An Account tracks three amounts: Available funds that can be withdrawn,
// Held funds frozen by an open dispute, and Total, which is always
// Available + Held. Every mutating method either applies fully or returns
// an error without touching any field.
package account

import (
	"github.com/shopspring/decimal"

	"github.com/xraph/tally/types"
)

// ClientID identifies a client. Each client owns exactly one Account.
type ClientID uint16

// Account is the balance state of a single client.
type Account struct {
	types.Entity

	ClientID  ClientID        `json:"client"`
	Available decimal.Decimal `json:"available"`
	Held      decimal.Decimal `json:"held"`
	Total     decimal.Decimal `json:"total"`
	Locked    bool            `json:"locked"`
}

// New returns an empty, unlocked account for the client.
func New(clientID ClientID) *Account {
	return &Account{
		Entity:    types.NewEntity(),
		ClientID:  clientID,
		Available: decimal.Zero,
		Held:      decimal.Zero,
		Total:     decimal.Zero,
	}
}

// Deposit credits available funds. Locked accounts reject deposits.
func (a *Account) Deposit(amount decimal.Decimal) error {
	if a.Locked {
		return ErrAccountLocked
	}
	a.Available = a.Available.Add(amount)
	a.recompute()
	return nil
}

// Withdraw debits available funds.
func (a *Account) Withdraw(amount decimal.Decimal) error {
	if a.Locked {
		return ErrAccountLocked
	}
	if a.Available.LessThan(amount) {
		return &InsufficientAvailableFundsError{Available: a.Available, Requested: amount}
	}
	a.Available = a.Available.Sub(amount)
	a.recompute()
	return nil
}

// Dispute moves amount from available to held. It is allowed on locked
// accounts and may leave Available negative when the disputed funds were
// already withdrawn.
func (a *Account) Dispute(amount decimal.Decimal) error {
	a.Available = a.Available.Sub(amount)
	a.Held = a.Held.Add(amount)
	a.recompute()
	return nil
}

// Resolve releases amount from held back to available.
func (a *Account) Resolve(amount decimal.Decimal) error {
	if amount.GreaterThan(a.Held) {
		return &InsufficientHeldFundsError{Held: a.Held, Requested: amount}
	}
	a.Available = a.Available.Add(amount)
	a.Held = a.Held.Sub(amount)
	a.recompute()
	return nil
}

// Chargeback removes amount from held and locks the account. The lock is
// permanent: no operation clears it.
func (a *Account) Chargeback(amount decimal.Decimal) error {
	if amount.GreaterThan(a.Held) {
		return &InsufficientHeldFundsError{Held: a.Held, Requested: amount}
	}
	a.Held = a.Held.Sub(amount)
	a.Locked = true
	a.recompute()
	return nil
}

// Valid reports whether Total equals Available + Held.
func (a *Account) Valid() bool {
	return a.Total.Equal(a.Available.Add(a.Held))
}

// Clone returns an independent copy of the account.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	cp := *a
	return &cp
}

func (a *Account) recompute() {
	a.Total = a.Available.Add(a.Held)
	a.Touch()
}
