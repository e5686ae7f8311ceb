// Package transaction defines transaction orders and accepted transactions.
//
// An Order is a request that has not been checked against history yet.
// A Transaction is an order that the account manager accepted.
package transaction

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xraph/tally/account"
)

// TxID identifies a transaction. IDs are unique across all clients.
type TxID uint32

// Order is an unvalidated request to apply a kind to a client's account.
type Order struct {
	TxID     TxID
	ClientID account.ClientID
	Kind     Kind
}

// NewOrder builds an order from loosely typed input. The amount is required
// and must be positive for deposits and withdrawals; it is ignored for the
// other kinds, which reference tx as the related transaction.
func NewOrder(kind string, client account.ClientID, tx TxID, amount decimal.NullDecimal) (Order, error) {
	typ, err := ParseKindType(kind)
	if err != nil {
		return Order{}, err
	}
	if typ.CarriesAmount() && !amount.Valid {
		return Order{}, fmt.Errorf("%w: %s tx %d", ErrMissingAmount, typ, tx)
	}

	k, err := NewKind(typ, amount.Decimal, tx)
	if err != nil {
		return Order{}, err
	}
	return Order{TxID: tx, ClientID: client, Kind: k}, nil
}

func (o Order) String() string {
	return fmt.Sprintf("tx %d client %d %s", o.TxID, o.ClientID, o.Kind)
}

// Transaction is an accepted order. It is immutable once created.
type Transaction struct {
	TxID       TxID
	ClientID   account.ClientID
	Kind       Kind
	RecordedAt time.Time
}

// New accepts an order as a transaction recorded now.
func New(o Order) *Transaction {
	return &Transaction{
		TxID:       o.TxID,
		ClientID:   o.ClientID,
		Kind:       o.Kind,
		RecordedAt: time.Now().UTC(),
	}
}

// Order returns the order the transaction was accepted from.
func (t *Transaction) Order() Order {
	return Order{TxID: t.TxID, ClientID: t.ClientID, Kind: t.Kind}
}

// Clone returns a copy of the transaction.
func (t *Transaction) Clone() *Transaction {
	if t == nil {
		return nil
	}
	cp := *t
	return &cp
}
