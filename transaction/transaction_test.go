package transaction

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func amt(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

func TestParseKindType(t *testing.T) {
	tests := []struct {
		input string
		want  KindType
		ok    bool
	}{
		{"deposit", KindDeposit, true},
		{"DEPOSIT", KindDeposit, true},
		{" Withdrawal ", KindWithdrawal, true},
		{"dispute", KindDispute, true},
		{"ReSoLvE", KindResolve, true},
		{"chargeback", KindChargeback, true},
		{"refund", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseKindType(tt.input)
			if !tt.ok {
				assert.ErrorIs(t, err, ErrUnknownKind)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAmountKindsRejectNonPositive(t *testing.T) {
	for _, ctor := range []func(decimal.Decimal) (Kind, error){Deposit, Withdrawal} {
		_, err := ctor(decimal.Zero)
		assert.ErrorIs(t, err, ErrNonPositiveAmount)

		_, err = ctor(decimal.RequireFromString("-0.01"))
		assert.ErrorIs(t, err, ErrNonPositiveAmount)

		k, err := ctor(decimal.RequireFromString("0.0001"))
		require.NoError(t, err)
		assert.True(t, k.IsValid())
	}
}

func TestKindAccessors(t *testing.T) {
	dep, err := Deposit(decimal.RequireFromString("12.5"))
	require.NoError(t, err)

	a, ok := dep.Amount()
	assert.True(t, ok)
	assert.Equal(t, "12.5", a.String())
	_, ok = dep.RelatedTx()
	assert.False(t, ok)
	assert.Equal(t, "deposit(12.5)", dep.String())

	dis := Dispute(9)
	rel, ok := dis.RelatedTx()
	assert.True(t, ok)
	assert.Equal(t, TxID(9), rel)
	_, ok = dis.Amount()
	assert.False(t, ok)
	assert.Equal(t, "dispute(9)", dis.String())

	var zero Kind
	assert.False(t, zero.IsValid())
	assert.Equal(t, "invalid", zero.String())
}

func TestNewKindUnknown(t *testing.T) {
	_, err := NewKind("bogus", decimal.Zero, 0)
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestNewOrder(t *testing.T) {
	t.Run("deposit", func(t *testing.T) {
		o, err := NewOrder("Deposit", 1, 10, amt("1.5"))
		require.NoError(t, err)
		assert.Equal(t, TxID(10), o.TxID)
		assert.Equal(t, KindDeposit, o.Kind.Type())
	})

	t.Run("missing amount", func(t *testing.T) {
		_, err := NewOrder("withdrawal", 1, 10, decimal.NullDecimal{})
		assert.ErrorIs(t, err, ErrMissingAmount)
	})

	t.Run("zero amount", func(t *testing.T) {
		_, err := NewOrder("deposit", 1, 10, amt("0"))
		assert.ErrorIs(t, err, ErrNonPositiveAmount)
	})

	t.Run("dispute ignores amount", func(t *testing.T) {
		o, err := NewOrder("dispute", 2, 3, amt("-5"))
		require.NoError(t, err)
		rel, ok := o.Kind.RelatedTx()
		require.True(t, ok)
		assert.Equal(t, TxID(3), rel)
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := NewOrder("transfer", 1, 1, amt("1"))
		assert.ErrorIs(t, err, ErrUnknownKind)
	})
}

func TestTransactionFromOrder(t *testing.T) {
	k, err := Withdrawal(decimal.RequireFromString("3"))
	require.NoError(t, err)
	o := Order{TxID: 4, ClientID: 2, Kind: k}

	tx := New(o)
	assert.Equal(t, o, tx.Order())
	assert.False(t, tx.RecordedAt.IsZero())

	cp := tx.Clone()
	cp.TxID = 99
	assert.Equal(t, TxID(4), tx.TxID)
}
