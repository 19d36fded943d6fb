package chain

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type vault struct {
	addr  common.Address
	owner common.Address
	count int
}

func (v *vault) Address() common.Address { return v.addr }

var (
	alice = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	bob   = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
	topic = crypto.Keccak256Hash([]byte("Touched()"))
)

func fixedClock(sec int64) func() time.Time {
	return func() time.Time { return time.Unix(sec, 0) }
}

func newFundedBackend(t *testing.T) *Backend {
	t.Helper()
	b := NewBackend(WithClock(fixedClock(1700000000)))
	require.NoError(t, b.Fund(alice, big.NewInt(1000)))
	require.NoError(t, b.Fund(bob, big.NewInt(500)))
	return b
}

func deployVault(t *testing.T, b *Backend, from common.Address) *vault {
	t.Helper()
	var v *vault
	receipt, err := b.Deploy(&TransactOpts{From: from}, func(call *Call) (Contract, error) {
		v = &vault{addr: call.Self(), owner: call.Sender()}
		return v, nil
	})
	require.NoError(t, err)
	assert.Equal(t, v.addr, receipt.ContractAddress)
	return v
}

func TestBackend_DeployAddressFollowsNonce(t *testing.T) {
	b := newFundedBackend(t)

	first := deployVault(t, b, alice)
	second := deployVault(t, b, alice)

	assert.Equal(t, crypto.CreateAddress(alice, 0), first.addr)
	assert.Equal(t, crypto.CreateAddress(alice, 1), second.addr)
	assert.Equal(t, alice, first.owner)
	assert.Equal(t, uint64(2), b.NonceAt(alice))

	got, err := b.ContractAt(first.addr)
	require.NoError(t, err)
	assert.Same(t, first, got)

	_, err = b.ContractAt(bob)
	assert.ErrorIs(t, err, ErrNoContract)
}

func TestBackend_TransactPayableMovesValueAndMines(t *testing.T) {
	b := newFundedBackend(t)
	v := deployVault(t, b, alice)

	receipt, err := b.TransactPayable(&TransactOpts{From: bob, Value: big.NewInt(200)}, v.addr, func(call *Call) error {
		assert.Equal(t, big.NewInt(200), call.Value())
		assert.Equal(t, big.NewInt(200), call.Balance(v.addr))
		call.Emit([]common.Hash{topic}, []byte{1})
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, types.ReceiptStatusSuccessful, receipt.Status)
	assert.Equal(t, big.NewInt(2), receipt.BlockNumber)
	require.Len(t, receipt.Logs, 1)
	assert.Equal(t, v.addr, receipt.Logs[0].Address)
	assert.Equal(t, receipt.TxHash, receipt.Logs[0].TxHash)

	assert.Equal(t, big.NewInt(300), b.BalanceAt(bob))
	assert.Equal(t, big.NewInt(200), b.BalanceAt(v.addr))

	head, err := b.BlockNumber(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(2), head)
}

func TestBackend_FailedCallRevertsEverything(t *testing.T) {
	b := newFundedBackend(t)
	v := deployVault(t, b, alice)
	headBefore, _ := b.BlockNumber(context.Background())

	_, err := b.TransactPayable(&TransactOpts{From: bob, Value: big.NewInt(100)}, v.addr, func(call *Call) error {
		require.NoError(t, call.Transfer(alice, big.NewInt(50)))
		_, err := call.Create(func(sub *Call) (Contract, error) {
			return &vault{addr: sub.Self()}, nil
		})
		require.NoError(t, err)
		call.Emit([]common.Hash{topic}, nil)
		return Revert("nope")
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, Revert("nope")))
	assert.True(t, IsReverted(err))

	assert.Equal(t, big.NewInt(1000), b.BalanceAt(alice))
	assert.Equal(t, big.NewInt(500), b.BalanceAt(bob))
	assert.Equal(t, 0, b.BalanceAt(v.addr).Sign())
	assert.Equal(t, uint64(0), b.NonceAt(bob))
	assert.Equal(t, uint64(1), b.NonceAt(v.addr))

	_, err = b.ContractAt(crypto.CreateAddress(v.addr, 1))
	assert.ErrorIs(t, err, ErrNoContract)

	headAfter, _ := b.BlockNumber(context.Background())
	assert.Equal(t, headBefore, headAfter)
}

func TestBackend_ValueChecks(t *testing.T) {
	b := newFundedBackend(t)
	v := deployVault(t, b, alice)
	noop := func(*Call) error { return nil }

	_, err := b.Transact(&TransactOpts{From: bob, Value: big.NewInt(1)}, v.addr, noop)
	assert.ErrorIs(t, err, ErrNonPayable)

	_, err = b.TransactPayable(&TransactOpts{From: bob, Value: big.NewInt(501)}, v.addr, noop)
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	_, err = b.TransactPayable(&TransactOpts{From: bob, Value: big.NewInt(-1)}, v.addr, noop)
	assert.ErrorIs(t, err, ErrUint256)

	_, err = b.Transact(nil, v.addr, noop)
	assert.Error(t, err)
}

func TestBackend_CreateFromContract(t *testing.T) {
	b := newFundedBackend(t)
	v := deployVault(t, b, alice)

	var child common.Address
	_, err := b.Transact(&TransactOpts{From: bob}, v.addr, func(call *Call) error {
		addr, err := call.Create(func(sub *Call) (Contract, error) {
			assert.Equal(t, v.addr, sub.Sender())
			sub.Emit([]common.Hash{topic}, nil)
			return &vault{addr: sub.Self(), owner: sub.Sender()}, nil
		})
		child = addr
		return err
	})
	require.NoError(t, err)

	// 合约账户 nonce 从 1 开始
	assert.Equal(t, crypto.CreateAddress(v.addr, 1), child)
	assert.Equal(t, uint64(2), b.NonceAt(v.addr))
	assert.Equal(t, uint64(1), b.NonceAt(child))

	logs, err := b.FilterLogs(context.Background(), ethereum.FilterQuery{Addresses: []common.Address{child}})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, uint64(2), logs[0].BlockNumber)
}

func TestBackend_FilterLogs(t *testing.T) {
	b := newFundedBackend(t)
	v := deployVault(t, b, alice)
	other := crypto.Keccak256Hash([]byte("Other()"))

	emit := func(topics ...common.Hash) {
		_, err := b.Transact(&TransactOpts{From: alice}, v.addr, func(call *Call) error {
			call.Emit(topics, nil)
			return nil
		})
		require.NoError(t, err)
	}
	emit(topic, common.BytesToHash(bob.Bytes()))
	emit(other)
	emit(topic, common.BytesToHash(alice.Bytes()))

	ctx := context.Background()

	all, err := b.FilterLogs(ctx, ethereum.FilterQuery{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	byTopic, err := b.FilterLogs(ctx, ethereum.FilterQuery{Topics: [][]common.Hash{{topic}}})
	require.NoError(t, err)
	assert.Len(t, byTopic, 2)

	byHolder, err := b.FilterLogs(ctx, ethereum.FilterQuery{
		Topics: [][]common.Hash{nil, {common.BytesToHash(alice.Bytes())}},
	})
	require.NoError(t, err)
	require.Len(t, byHolder, 1)
	assert.Equal(t, uint64(4), byHolder[0].BlockNumber)

	ranged, err := b.FilterLogs(ctx, ethereum.FilterQuery{FromBlock: big.NewInt(3), ToBlock: big.NewInt(3)})
	require.NoError(t, err)
	require.Len(t, ranged, 1)
	assert.Equal(t, other, ranged[0].Topics[0])

	future, err := b.FilterLogs(ctx, ethereum.FilterQuery{FromBlock: big.NewInt(10)})
	require.NoError(t, err)
	assert.Empty(t, future)

	header, err := b.HeaderByNumber(ctx, big.NewInt(3))
	require.NoError(t, err)
	byHash, err := b.FilterLogs(ctx, ethereum.FilterQuery{BlockHash: &header.Hash})
	require.NoError(t, err)
	assert.Len(t, byHash, 1)

	ranged[0].Topics[0] = common.Hash{}
	again, _ := b.FilterLogs(ctx, ethereum.FilterQuery{FromBlock: big.NewInt(3), ToBlock: big.NewInt(3)})
	assert.Equal(t, other, again[0].Topics[0])
}

func TestBackend_BlockTimeNeverDecreases(t *testing.T) {
	now := int64(2000)
	b := NewBackend(WithClock(func() time.Time { return time.Unix(now, 0) }))
	require.NoError(t, b.Fund(alice, big.NewInt(10)))
	v := deployVault(t, b, alice)

	now = 1000
	var seen uint64
	_, err := b.Transact(&TransactOpts{From: alice}, v.addr, func(call *Call) error {
		seen = call.BlockTime()
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(2000), seen)

	header, err := b.HeaderByNumber(context.Background(), nil)
	require.NoError(t, err)
	genesis, err := b.HeaderByNumber(context.Background(), big.NewInt(0))
	require.NoError(t, err)
	assert.Equal(t, uint64(2), header.Number)
	assert.NotEqual(t, genesis.Hash, header.Hash)

	_, err = b.HeaderByNumber(context.Background(), big.NewInt(99))
	assert.Error(t, err)
}

func TestCheckedArithmetic(t *testing.T) {
	_, err := SafeMul(MaxUint256, big.NewInt(2))
	assert.ErrorIs(t, err, ErrOverflow)

	_, err = SafeAdd(MaxUint256, big.NewInt(1))
	assert.ErrorIs(t, err, ErrOverflow)

	r, err := SafeMul(big.NewInt(10), big.NewInt(7))
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(70), r)

	assert.ErrorIs(t, CheckUint256(new(big.Int).Add(MaxUint256, big.NewInt(1))), ErrUint256)
	assert.ErrorIs(t, CheckUint256(nil), ErrUint256)
	assert.NoError(t, CheckUint256(big.NewInt(0), MaxUint256))
}

func TestCustomError(t *testing.T) {
	err := NewCustomError("NotOwner", alice)
	assert.Contains(t, err.Error(), "custom error NotOwner(")
	assert.True(t, errors.Is(err, &CustomError{Name: "NotOwner"}))
	assert.False(t, errors.Is(err, &CustomError{Name: "Other"}))
	assert.Equal(t, "execution reverted: custom error Empty()", NewCustomError("Empty").Error())
}

func TestDevAccounts(t *testing.T) {
	first, err := DevAccounts(3)
	require.NoError(t, err)
	second, err := DevAccounts(3)
	require.NoError(t, err)

	require.Len(t, first, 3)
	for i := range first {
		assert.Equal(t, first[i].Address, second[i].Address)
		assert.Equal(t, crypto.PubkeyToAddress(first[i].Key.PublicKey), first[i].Address)
	}
	assert.NotEqual(t, first[0].Address, first[1].Address)
}
