package wallet

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestToSmallestUnit(t *testing.T) {
	cases := []struct {
		total string
		want  int64
	}{
		{"0", 0},
		{"20.00", 2_000_000_000},
		{"99.99", 9_999_000_000},
		{"1210000", 121_000_000_000_000},
		{"0.000000015", 2}, // half rounds up
		{"0.000000014", 1},
		{"0.000000025", 3}, // not banker's rounding
	}
	for _, c := range cases {
		got, err := ToSmallestUnit(decimal.RequireFromString(c.total))
		require.NoError(t, err, c.total)
		require.Equal(t, c.want, got, c.total)
	}
}

func TestToSmallestUnit_Rejects(t *testing.T) {
	_, err := ToSmallestUnit(decimal.RequireFromString("-1"))
	require.Error(t, err)
	_, err = ToSmallestUnit(decimal.RequireFromString("1e30"))
	require.Error(t, err)
}

// Summing float64 prices drifts; the decimal path must not.
func TestToSmallestUnit_NoFloatDrift(t *testing.T) {
	total := decimal.Zero
	for i := 0; i < 10; i++ {
		total = total.Add(decimal.RequireFromString("0.1"))
	}
	got, err := ToSmallestUnit(total)
	require.NoError(t, err)
	require.Equal(t, int64(100_000_000), got)
}

func TestTransferPayload(t *testing.T) {
	p := TransferPayload("0xowner", 42)
	require.Equal(t, TransferFunction, p.Function)
	require.Empty(t, p.TypeArguments)
	require.NotNil(t, p.TypeArguments)
	require.Equal(t, []any{"0xowner", int64(42)}, p.Arguments)
}

func TestSession_ConnectDisconnect(t *testing.T) {
	ctx := context.Background()
	var s Session
	require.False(t, s.Snapshot().Connected)

	w := NewSimulated("0xc0ffee")
	acct, err := s.Connect(ctx, w)
	require.NoError(t, err)
	require.Equal(t, "0xc0ffee", acct.Address)
	require.NotEmpty(t, acct.PublicKey)

	snap := s.Snapshot()
	require.True(t, snap.Connected)
	require.Equal(t, "0xc0ffee", snap.Address)

	require.NoError(t, s.Disconnect(ctx, w))
	require.False(t, s.Snapshot().Connected)
	require.Empty(t, s.Snapshot().Address)
}

func TestSession_NoExtension(t *testing.T) {
	var s Session
	_, err := s.Connect(context.Background(), nil)
	require.ErrorIs(t, err, ErrExtensionNotFound)
	require.False(t, s.Snapshot().Connected)
}

func TestSession_UserRejectsConnect(t *testing.T) {
	var s Session
	w := NewSimulated("0xc0ffee")
	w.RejectConnect(true)
	_, err := s.Connect(context.Background(), w)
	require.ErrorIs(t, err, ErrUserRejected)
	require.False(t, s.Snapshot().Connected)
}

func TestSimulated_Sign(t *testing.T) {
	ctx := context.Background()
	w := NewSimulated("0xc0ffee")

	_, err := w.SignAndSubmitTransaction(ctx, TransferPayload("0xowner", 1))
	require.ErrorIs(t, err, ErrNotConnected)
	require.ErrorIs(t, err, ErrSubmission)

	_, err = w.Connect(ctx)
	require.NoError(t, err)

	tx1, err := w.SignAndSubmitTransaction(ctx, TransferPayload("0xowner", 1))
	require.NoError(t, err)
	tx2, err := w.SignAndSubmitTransaction(ctx, TransferPayload("0xowner", 2))
	require.NoError(t, err)
	require.NotEqual(t, tx1.Hash, tx2.Hash)
	require.Len(t, tx1.Hash, 66)
	require.Len(t, w.Submitted(), 2)

	w.RejectSign(true)
	_, err = w.SignAndSubmitTransaction(ctx, TransferPayload("0xowner", 3))
	require.True(t, errors.Is(err, ErrUserRejected))

	w.RejectSign(false)
	w.FailSubmit(true)
	_, err = w.SignAndSubmitTransaction(ctx, TransferPayload("0xowner", 3))
	require.ErrorIs(t, err, ErrSubmission)
	require.Len(t, w.Submitted(), 2)
}

func TestSimulated_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w := NewSimulated("0xc0ffee")
	_, err := w.Connect(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
