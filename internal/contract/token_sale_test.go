package contract

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohitroy-github/ico-init/internal/chain"
)

// 0.000001 ether
var testTokenPrice = big.NewInt(1000000000000)

func newTestTokenSale(t *testing.T) (*chain.Backend, *TokenSale) {
	t.Helper()
	backend := newTestBackend(t)
	sale, receipt, err := DeployTokenSale(backend, from(superOwner), "testToken", "TTK",
		big.NewInt(100), accountA, big.NewInt(0), testTokenPrice)
	require.NoError(t, err)
	require.Len(t, receipt.Logs, 2)
	return backend, sale
}

func cost(amount int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(amount), testTokenPrice)
}

func sumBalances(sale *TokenSale, holders ...common.Address) *big.Int {
	sum := new(big.Int)
	for _, holder := range holders {
		sum.Add(sum, sale.BalanceOf(holder))
	}
	return sum
}

func TestTokenSale_Construction(t *testing.T) {
	_, sale := newTestTokenSale(t)

	assert.Equal(t, "testToken", sale.Name())
	assert.Equal(t, "TTK", sale.Symbol())
	assert.Equal(t, uint8(18), sale.Decimals())
	assertBig(t, big.NewInt(100), sale.TotalSupply())
	assertBig(t, big.NewInt(100), sale.BalanceOf(accountA))
	assert.Equal(t, 0, sale.BalanceOf(accountB).Sign())
	assert.Equal(t, accountA, sale.InitialOwner())
	assertBig(t, testTokenPrice, sale.TokenPrice())
	assert.Empty(t, sale.GetAllTransactions())
	assert.Equal(t, 0, sale.GetContractBalance().Sign())
}

func TestTokenSale_ConstructionRejectsZeroOwner(t *testing.T) {
	backend := newTestBackend(t)

	_, _, err := DeployTokenSale(backend, from(superOwner), "t", "T", big.NewInt(1), common.Address{}, big.NewInt(0), big.NewInt(1))
	assert.ErrorIs(t, err, &chain.CustomError{Name: ERC20InvalidReceiver})
	assert.Equal(t, uint64(0), backend.NonceAt(superOwner))
}

func TestTokenSale_BuyTokens(t *testing.T) {
	backend, sale := newTestTokenSale(t)
	ownerBefore := backend.BalanceAt(accountA)
	buyerBefore := backend.BalanceAt(accountB)

	receipt, err := sale.BuyTokens(pay(accountB, cost(10)), big.NewInt(10))
	require.NoError(t, err)

	assertBig(t, big.NewInt(90), sale.BalanceOf(accountA))
	assertBig(t, big.NewInt(10), sale.BalanceOf(accountB))

	ledger := sale.GetAllTransactions()
	require.Len(t, ledger, 1)
	assert.Equal(t, accountB, ledger[0].To)
	assertBig(t, big.NewInt(10), ledger[0].Amount)
	assert.Equal(t, uint64(blockTime), ledger[0].Timestamp)

	assertBig(t, new(big.Int).Add(ownerBefore, cost(10)), backend.BalanceAt(accountA))
	assertBig(t, new(big.Int).Sub(buyerBefore, cost(10)), backend.BalanceAt(accountB))
	assert.Equal(t, 0, sale.GetContractBalance().Sign())

	parser := NewParser()
	require.Len(t, receipt.Logs, 2)
	transfer, err := parser.ParseEvent(*receipt.Logs[0])
	require.NoError(t, err)
	assert.Equal(t, "Transfer", transfer["eventType"])
	assert.Equal(t, accountA, transfer["from"])
	assert.Equal(t, accountB, transfer["to"])

	purchased, err := parser.ParseEvent(*receipt.Logs[1])
	require.NoError(t, err)
	assert.Equal(t, "TokensPurchased", purchased["eventType"])
	assert.Equal(t, TokenSaleName, purchased["contract"])
	assert.Equal(t, accountB, purchased["buyer"])
	assertBig(t, big.NewInt(10), purchased["amount"].(*big.Int))
	assertBig(t, cost(10), purchased["cost"].(*big.Int))
	assertBig(t, big.NewInt(blockTime), purchased["timestamp"].(*big.Int))
}

func TestTokenSale_BuyTokensRequiresExactPayment(t *testing.T) {
	backend, sale := newTestTokenSale(t)
	buyerBefore := backend.BalanceAt(accountB)

	for _, paid := range []*big.Int{cost(9), new(big.Int).Add(cost(10), big.NewInt(1)), nil} {
		_, err := sale.BuyTokens(pay(accountB, paid), big.NewInt(10))
		assert.ErrorIs(t, err, ErrIncorrectPayment)
	}

	assertBig(t, big.NewInt(100), sale.BalanceOf(accountA))
	assert.Equal(t, 0, sale.BalanceOf(accountB).Sign())
	assert.Empty(t, sale.GetAllTransactions())
	assertBig(t, buyerBefore, backend.BalanceAt(accountB))
}

func TestTokenSale_BuyTokensLimits(t *testing.T) {
	_, sale := newTestTokenSale(t)

	_, err := sale.BuyTokens(from(accountB), big.NewInt(0))
	assert.ErrorIs(t, err, ErrZeroAmount)

	_, err = sale.BuyTokens(pay(accountB, cost(101)), big.NewInt(101))
	assert.ErrorIs(t, err, ErrNotEnoughTokens)

	_, err = sale.BuyTokens(pay(accountB, cost(100)), big.NewInt(100))
	require.NoError(t, err)

	_, err = sale.BuyTokens(pay(accountC, cost(1)), big.NewInt(1))
	assert.ErrorIs(t, err, ErrNotEnoughTokens)

	_, err = sale.BuyTokens(from(accountB), new(big.Int).Add(chain.MaxUint256, big.NewInt(1)))
	assert.ErrorIs(t, err, chain.ErrUint256)
}

func TestTokenSale_SupplyIsConserved(t *testing.T) {
	_, sale := newTestTokenSale(t)
	holders := []common.Address{accountA, accountB, accountC, superOwner}

	steps := []struct {
		name string
		run  func() error
		want error
	}{
		{"buy 10", func() error { _, err := sale.BuyTokens(pay(accountB, cost(10)), big.NewInt(10)); return err }, nil},
		{"buy 25", func() error { _, err := sale.BuyTokens(pay(accountC, cost(25)), big.NewInt(25)); return err }, nil},
		{"transfer 5", func() error { _, err := sale.Transfer(from(accountC), accountB, big.NewInt(5)); return err }, nil},
		{"overpaid buy", func() error { _, err := sale.BuyTokens(pay(accountC, cost(3)), big.NewInt(2)); return err }, ErrIncorrectPayment},
		{"overdrawn transfer", func() error { _, err := sale.Transfer(from(accountB), superOwner, big.NewInt(1000)); return err },
			&chain.CustomError{Name: ERC20InsufficientBalance}},
		{"buy remaining", func() error { _, err := sale.BuyTokens(pay(superOwner, cost(65)), big.NewInt(65)); return err }, nil},
	}
	for _, step := range steps {
		err := step.run()
		if step.want == nil {
			require.NoError(t, err, step.name)
		} else {
			require.ErrorIs(t, err, step.want, step.name)
		}
		assertBig(t, big.NewInt(100), sumBalances(sale, holders...))
	}
	assert.Len(t, sale.GetAllTransactions(), 3)
	assert.Equal(t, 0, sale.BalanceOf(accountA).Sign())
}

func TestTokenSale_UpdateTokenPrice(t *testing.T) {
	_, sale := newTestTokenSale(t)

	_, err := sale.UpdateTokenPrice(from(accountB), finney(2))
	assert.ErrorIs(t, err, ErrOnlyInitialOwner)
	assertBig(t, testTokenPrice, sale.TokenPrice())

	receipt, err := sale.UpdateTokenPrice(from(accountA), finney(2))
	require.NoError(t, err)
	assertBig(t, finney(2), sale.TokenPrice())

	event, err := NewParser().ParseEvent(*receipt.Logs[0])
	require.NoError(t, err)
	assert.Equal(t, "TokenPriceUpdated", event["eventType"])
	assertBig(t, finney(2), event["tokenPrice"].(*big.Int))

	_, err = sale.BuyTokens(pay(accountB, cost(1)), big.NewInt(1))
	assert.ErrorIs(t, err, ErrIncorrectPayment)
	_, err = sale.BuyTokens(pay(accountB, finney(2)), big.NewInt(1))
	require.NoError(t, err)
}

func TestTokenSale_ERC20Transfers(t *testing.T) {
	_, sale := newTestTokenSale(t)

	_, err := sale.Transfer(from(accountA), accountB, big.NewInt(30))
	require.NoError(t, err)
	assertBig(t, big.NewInt(30), sale.BalanceOf(accountB))
	assert.Empty(t, sale.GetAllTransactions())

	_, err = sale.Transfer(from(accountB), accountC, big.NewInt(31))
	assert.ErrorIs(t, err, &chain.CustomError{Name: ERC20InsufficientBalance})

	_, err = sale.Transfer(from(accountB), common.Address{}, big.NewInt(1))
	assert.ErrorIs(t, err, &chain.CustomError{Name: ERC20InvalidReceiver})

	_, err = sale.Approve(from(accountA), common.Address{}, big.NewInt(1))
	assert.ErrorIs(t, err, &chain.CustomError{Name: ERC20InvalidSpender})

	_, err = sale.Approve(from(accountA), accountC, big.NewInt(20))
	require.NoError(t, err)
	assertBig(t, big.NewInt(20), sale.Allowance(accountA, accountC))

	_, err = sale.TransferFrom(from(accountC), accountA, accountC, big.NewInt(21))
	assert.ErrorIs(t, err, &chain.CustomError{Name: ERC20InsufficientAllowance})

	_, err = sale.TransferFrom(from(accountC), accountA, accountC, big.NewInt(15))
	require.NoError(t, err)
	assertBig(t, big.NewInt(5), sale.Allowance(accountA, accountC))
	assertBig(t, big.NewInt(15), sale.BalanceOf(accountC))
	assertBig(t, big.NewInt(55), sale.BalanceOf(accountA))

	_, err = sale.Approve(from(accountA), accountB, chain.MaxUint256)
	require.NoError(t, err)
	_, err = sale.TransferFrom(from(accountB), accountA, accountB, big.NewInt(5))
	require.NoError(t, err)
	assertBig(t, chain.MaxUint256, sale.Allowance(accountA, accountB))
}

func TestTokenSale_StandaloneWithoutRegistry(t *testing.T) {
	backend, sale := newTestTokenSale(t)

	bound, err := TokenSaleAt(backend, sale.Address())
	require.NoError(t, err)
	assert.Same(t, sale, bound)
	assertBig(t, big.NewInt(0), bound.ProjectID())
}
