package transaction

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Sentinel errors for kind construction.
var (
	ErrNonPositiveAmount = errors.New("transaction: amount must be positive")
	ErrUnknownKind       = errors.New("transaction: unknown kind")
	ErrMissingAmount     = errors.New("transaction: missing amount")
)

// KindType names one of the supported transaction kinds.
type KindType string

const (
	KindDeposit    KindType = "deposit"
	KindWithdrawal KindType = "withdrawal"
	KindDispute    KindType = "dispute"
	KindResolve    KindType = "resolve"
	KindChargeback KindType = "chargeback"
)

// ParseKindType parses a kind name. Matching ignores case and surrounding
// whitespace.
func ParseKindType(s string) (KindType, error) {
	switch k := KindType(strings.ToLower(strings.TrimSpace(s))); k {
	case KindDeposit, KindWithdrawal, KindDispute, KindResolve, KindChargeback:
		return k, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

// CarriesAmount reports whether kinds of this type hold an amount rather
// than a reference to another transaction.
func (k KindType) CarriesAmount() bool {
	return k == KindDeposit || k == KindWithdrawal
}

// Kind is what a transaction does. Deposits and withdrawals carry a strictly
// positive amount; disputes, resolves and chargebacks reference the
// transaction they act on. The zero Kind is invalid.
type Kind struct {
	typ     KindType
	amount  decimal.Decimal
	related TxID
}

// Deposit returns a deposit kind for a strictly positive amount.
func Deposit(amount decimal.Decimal) (Kind, error) {
	if amount.Sign() <= 0 {
		return Kind{}, fmt.Errorf("%w: %s", ErrNonPositiveAmount, amount)
	}
	return Kind{typ: KindDeposit, amount: amount}, nil
}

// Withdrawal returns a withdrawal kind for a strictly positive amount.
func Withdrawal(amount decimal.Decimal) (Kind, error) {
	if amount.Sign() <= 0 {
		return Kind{}, fmt.Errorf("%w: %s", ErrNonPositiveAmount, amount)
	}
	return Kind{typ: KindWithdrawal, amount: amount}, nil
}

// Dispute returns a kind that disputes the related transaction.
func Dispute(related TxID) Kind { return Kind{typ: KindDispute, related: related} }

// Resolve returns a kind that resolves a dispute on the related transaction.
func Resolve(related TxID) Kind { return Kind{typ: KindResolve, related: related} }

// Chargeback returns a kind that charges back the related transaction.
func Chargeback(related TxID) Kind { return Kind{typ: KindChargeback, related: related} }

// NewKind builds a kind from its parts. Amount is used for deposits and
// withdrawals, related for the other kinds.
func NewKind(typ KindType, amount decimal.Decimal, related TxID) (Kind, error) {
	switch typ {
	case KindDeposit:
		return Deposit(amount)
	case KindWithdrawal:
		return Withdrawal(amount)
	case KindDispute:
		return Dispute(related), nil
	case KindResolve:
		return Resolve(related), nil
	case KindChargeback:
		return Chargeback(related), nil
	default:
		return Kind{}, fmt.Errorf("%w: %q", ErrUnknownKind, typ)
	}
}

// Type returns the kind type. It is empty for the zero Kind.
func (k Kind) Type() KindType { return k.typ }

// IsValid reports whether k was built by one of the constructors.
func (k Kind) IsValid() bool { return k.typ != "" }

// Amount returns the amount of a deposit or withdrawal.
func (k Kind) Amount() (decimal.Decimal, bool) {
	if !k.typ.CarriesAmount() {
		return decimal.Zero, false
	}
	return k.amount, true
}

// RelatedTx returns the transaction referenced by a dispute, resolve or
// chargeback.
func (k Kind) RelatedTx() (TxID, bool) {
	switch k.typ {
	case KindDispute, KindResolve, KindChargeback:
		return k.related, true
	default:
		return 0, false
	}
}

func (k Kind) String() string {
	switch {
	case !k.IsValid():
		return "invalid"
	case k.typ.CarriesAmount():
		return fmt.Sprintf("%s(%s)", k.typ, k.amount)
	default:
		return fmt.Sprintf("%s(%d)", k.typ, k.related)
	}
}
