package repo

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseCategory(t *testing.T) {
	for _, c := range Categories {
		got, ok := ParseCategory(string(c))
		require.True(t, ok)
		require.Equal(t, c, got)
	}

	for _, bad := range []string{"", "xa", "XK", "X", "XAB"} {
		_, ok := ParseCategory(bad)
		require.False(t, ok, "%q não deveria ser categoria válida", bad)
	}
}

func TestResultOutcome(t *testing.T) {
	r := &Result{}
	r.SetOutcome(CategoryXA, 5)
	r.SetOutcome(CategoryXJ, 0)

	n, ok := r.Outcome(CategoryXA)
	require.True(t, ok)
	require.EqualValues(t, 5, n)

	// dígito zero publicado é um resultado válido
	n, ok = r.Outcome(CategoryXJ)
	require.True(t, ok)
	require.EqualValues(t, 0, n)

	// categoria não publicada: fail closed
	_, ok = r.Outcome(CategoryXB)
	require.False(t, ok)
}

func TestTransactionSignedAmount(t *testing.T) {
	cases := []struct {
		txType string
		amount int64
		want   int64
	}{
		{TxTypeAddMoney, 100, 100},
		{TxTypeWin, 90, 90},
		{TxTypeAdminAdd, 50, 50},
		{TxTypeBet, 10, -10},
		{TxTypeAdminDeduct, 25, -25},
	}
	for _, c := range cases {
		tx := Transaction{Type: c.txType, Amount: c.amount}
		require.EqualValues(t, c.want, tx.SignedAmount(), c.txType)
	}
}

func TestBetResolved(t *testing.T) {
	b := &Bet{}
	require.False(t, b.Resolved())

	resultID := "res-1"
	b.ResultID = &resultID
	require.True(t, b.Resolved())
}
