package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luckypool/lottery-engine/pkg/infra"
	"github.com/luckypool/lottery-engine/pkg/kvstore"
)

func newTestLedger(t *testing.T) (*Ledger, infra.KVStore) {
	t.Helper()
	kv, err := kvstore.NewBadgerStore(t.TempDir(), "token", infra.JSON)
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })
	return NewLedger(kv), kv
}

func TestMintAndBalance(t *testing.T) {
	l, _ := newTestLedger(t)

	balance, err := l.BalanceOf("alice")
	require.NoError(t, err)
	assert.Zero(t, balance, "unseen accounts read as zero")

	require.NoError(t, l.Mint("alice", 100))
	require.NoError(t, l.Mint("alice", 50))

	balance, err = l.BalanceOf("alice")
	require.NoError(t, err)
	assert.Equal(t, int64(150), balance)

	assert.ErrorIs(t, l.Mint("alice", 0), ErrInvalidAmount)
	assert.ErrorIs(t, l.Mint("alice", -5), ErrInvalidAmount)
}

func TestTransfer(t *testing.T) {
	l, kv := newTestLedger(t)
	require.NoError(t, l.Mint("alice", 100))

	b := infra.Batch{}
	require.NoError(t, l.Transfer(b, "alice", "bob", 60))

	// Staged only: nothing moves until the batch commits.
	balance, err := l.BalanceOf("bob")
	require.NoError(t, err)
	assert.Zero(t, balance)

	require.NoError(t, kv.SetManyAny(b))

	balance, err = l.BalanceOf("alice")
	require.NoError(t, err)
	assert.Equal(t, int64(40), balance)
	balance, err = l.BalanceOf("bob")
	require.NoError(t, err)
	assert.Equal(t, int64(60), balance)
}

func TestTransfer_Insufficient(t *testing.T) {
	l, _ := newTestLedger(t)
	require.NoError(t, l.Mint("alice", 10))

	b := infra.Batch{}
	err := l.Transfer(b, "alice", "bob", 11)
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	assert.Empty(t, b, "failed transfer stages nothing")

	assert.ErrorIs(t, l.Transfer(b, "alice", "bob", 0), ErrInvalidAmount)
}

func TestTransferFrom(t *testing.T) {
	l, kv := newTestLedger(t)
	require.NoError(t, l.Mint("alice", 100))
	require.NoError(t, l.Approve("alice", "engine", 70))

	b := infra.Batch{}
	require.NoError(t, l.TransferFrom(b, "alice", "engine", 30))
	require.NoError(t, kv.SetManyAny(b))

	balance, err := l.BalanceOf("engine")
	require.NoError(t, err)
	assert.Equal(t, int64(30), balance)

	// Allowance is drawn down by the pull.
	b = infra.Batch{}
	err = l.TransferFrom(b, "alice", "engine", 50)
	assert.ErrorIs(t, err, ErrInsufficientAllowance)

	require.NoError(t, l.TransferFrom(b, "alice", "engine", 40))
	require.NoError(t, kv.SetManyAny(b))

	balance, err = l.BalanceOf("alice")
	require.NoError(t, err)
	assert.Equal(t, int64(30), balance)
}

func TestTransfer_SelfTransferRejected(t *testing.T) {
	l, kv := newTestLedger(t)
	require.NoError(t, l.Mint("engine", 100))

	b := infra.Batch{}
	err := l.Transfer(b, "engine", "engine", 40)
	assert.ErrorIs(t, err, ErrSelfTransfer)
	assert.Empty(t, b)

	require.NoError(t, kv.SetManyAny(b))
	balance, err := l.BalanceOf("engine")
	require.NoError(t, err)
	assert.Equal(t, int64(100), balance, "self-transfer must not change the balance")
}

func TestTransferFrom_SelfTransferRejected(t *testing.T) {
	l, _ := newTestLedger(t)
	require.NoError(t, l.Mint("engine", 100))
	require.NoError(t, l.Approve("engine", "engine", 100))

	b := infra.Batch{}
	err := l.TransferFrom(b, "engine", "engine", 40)
	assert.ErrorIs(t, err, ErrSelfTransfer)
	assert.Empty(t, b)
}

func TestTransferFrom_AllowanceWithoutBalance(t *testing.T) {
	l, _ := newTestLedger(t)
	require.NoError(t, l.Approve("alice", "engine", 100))

	b := infra.Batch{}
	err := l.TransferFrom(b, "alice", "engine", 100)
	assert.ErrorIs(t, err, ErrInsufficientBalance)
}
