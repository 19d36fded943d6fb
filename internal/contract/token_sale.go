package contract

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/rohitroy-github/ico-init/internal/chain"
)

// TokenDecimals 代币精度, 与 ERC-20 默认值一致
const TokenDecimals uint8 = 18

// Transaction 一级市场购买记录
type Transaction struct {
	To        common.Address `json:"to"`
	Amount    *big.Int       `json:"amount"`
	Timestamp uint64         `json:"timestamp"`
}

// TokenSale 固定总量、固定价格的项目代币销售合约.
// 合约自身状态不进入回滚日志, 所有检查必须在修改状态之前完成
type TokenSale struct {
	backend *chain.Backend
	address common.Address

	name         string
	symbol       string
	totalSupply  *big.Int
	initialOwner common.Address
	projectID    *big.Int
	tokenPrice   *big.Int

	balances     map[common.Address]*big.Int
	allowances   map[common.Address]map[common.Address]*big.Int
	transactions []Transaction
}

// DeployTokenSale 独立部署代币销售合约
func DeployTokenSale(
	backend *chain.Backend,
	opts *chain.TransactOpts,
	name, symbol string,
	totalSupply *big.Int,
	initialOwner common.Address,
	projectID *big.Int,
	tokenPrice *big.Int,
) (*TokenSale, *types.Receipt, error) {
	var sale *TokenSale
	receipt, err := backend.Deploy(opts, func(call *chain.Call) (chain.Contract, error) {
		var err error
		sale, err = newTokenSale(call, name, symbol, totalSupply, initialOwner, projectID, tokenPrice)
		return sale, err
	})
	if err != nil {
		return nil, nil, err
	}
	return sale, receipt, nil
}

// TokenSaleAt 绑定已部署的代币销售合约
func TokenSaleAt(backend *chain.Backend, addr common.Address) (*TokenSale, error) {
	deployed, err := backend.ContractAt(addr)
	if err != nil {
		return nil, err
	}
	sale, ok := deployed.(*TokenSale)
	if !ok {
		return nil, fmt.Errorf("contract at %s is not a token sale", addr.Hex())
	}
	return sale, nil
}

// newTokenSale 构造函数: 全部供应量铸造给 initialOwner
func newTokenSale(
	call *chain.Call,
	name, symbol string,
	totalSupply *big.Int,
	initialOwner common.Address,
	projectID *big.Int,
	tokenPrice *big.Int,
) (*TokenSale, error) {
	if err := chain.CheckUint256(totalSupply, projectID, tokenPrice); err != nil {
		return nil, err
	}
	if initialOwner == (common.Address{}) {
		return nil, chain.NewCustomError(ERC20InvalidReceiver, initialOwner)
	}

	mint, err := encodeEvent(tokenSaleABI, "Transfer", common.Address{}, initialOwner, totalSupply)
	if err != nil {
		return nil, err
	}
	created, err := encodeEvent(tokenSaleABI, "TokenSaleCreated", projectID, initialOwner, name, symbol, totalSupply, tokenPrice)
	if err != nil {
		return nil, err
	}

	sale := &TokenSale{
		backend:      call.Backend(),
		address:      call.Self(),
		name:         name,
		symbol:       symbol,
		totalSupply:  new(big.Int).Set(totalSupply),
		initialOwner: initialOwner,
		projectID:    new(big.Int).Set(projectID),
		tokenPrice:   new(big.Int).Set(tokenPrice),
		balances:     make(map[common.Address]*big.Int),
		allowances:   make(map[common.Address]map[common.Address]*big.Int),
	}
	sale.balances[initialOwner] = new(big.Int).Set(totalSupply)

	mint.emit(call)
	created.emit(call)
	return sale, nil
}

// Address 合约地址
func (t *TokenSale) Address() common.Address {
	return t.address
}

// BuyTokens 以固定价格从 initialOwner 处购买代币, 付款必须恰好等于 amount * tokenPrice
func (t *TokenSale) BuyTokens(opts *chain.TransactOpts, amount *big.Int) (*types.Receipt, error) {
	return t.backend.TransactPayable(opts, t.address, func(call *chain.Call) error {
		return t.buyTokens(call, amount)
	})
}

func (t *TokenSale) buyTokens(call *chain.Call, amount *big.Int) error {
	if err := chain.CheckUint256(amount); err != nil {
		return err
	}
	if amount.Sign() == 0 {
		return ErrZeroAmount
	}
	cost, err := chain.SafeMul(amount, t.tokenPrice)
	if err != nil {
		return err
	}
	if call.Value().Cmp(cost) != 0 {
		return ErrIncorrectPayment
	}

	if t.balanceOf(t.initialOwner).Cmp(amount) < 0 {
		return ErrNotEnoughTokens
	}
	buyer := call.Sender()
	move, transfer, err := t.prepareTransfer(t.initialOwner, buyer, amount)
	if err != nil {
		return err
	}
	// 付款转发给 initialOwner 不能失败
	if _, err := chain.SafeAdd(call.Balance(t.initialOwner), cost); err != nil {
		return err
	}
	purchased, err := encodeEvent(tokenSaleABI, "TokensPurchased", buyer, amount, cost, new(big.Int).SetUint64(call.BlockTime()))
	if err != nil {
		return err
	}

	move()
	t.transactions = append(t.transactions, Transaction{
		To:        buyer,
		Amount:    new(big.Int).Set(amount),
		Timestamp: call.BlockTime(),
	})
	transfer.emit(call)
	purchased.emit(call)

	return call.Transfer(t.initialOwner, cost)
}

// UpdateTokenPrice 仅 initialOwner 可调整单价
func (t *TokenSale) UpdateTokenPrice(opts *chain.TransactOpts, price *big.Int) (*types.Receipt, error) {
	return t.backend.Transact(opts, t.address, func(call *chain.Call) error {
		if call.Sender() != t.initialOwner {
			return ErrOnlyInitialOwner
		}
		if err := chain.CheckUint256(price); err != nil {
			return err
		}
		updated, err := encodeEvent(tokenSaleABI, "TokenPriceUpdated", price)
		if err != nil {
			return err
		}

		t.tokenPrice = new(big.Int).Set(price)
		updated.emit(call)
		return nil
	})
}

// Transfer ERC-20 转账, 不计入购买记录
func (t *TokenSale) Transfer(opts *chain.TransactOpts, to common.Address, value *big.Int) (*types.Receipt, error) {
	return t.backend.Transact(opts, t.address, func(call *chain.Call) error {
		if err := chain.CheckUint256(value); err != nil {
			return err
		}
		move, transfer, err := t.prepareTransfer(call.Sender(), to, value)
		if err != nil {
			return err
		}
		move()
		transfer.emit(call)
		return nil
	})
}

// Approve ERC-20 授权
func (t *TokenSale) Approve(opts *chain.TransactOpts, spender common.Address, value *big.Int) (*types.Receipt, error) {
	return t.backend.Transact(opts, t.address, func(call *chain.Call) error {
		if err := chain.CheckUint256(value); err != nil {
			return err
		}
		if spender == (common.Address{}) {
			return chain.NewCustomError(ERC20InvalidSpender, spender)
		}
		owner := call.Sender()
		approval, err := encodeEvent(tokenSaleABI, "Approval", owner, spender, value)
		if err != nil {
			return err
		}

		t.setAllowance(owner, spender, new(big.Int).Set(value))
		approval.emit(call)
		return nil
	})
}

// TransferFrom ERC-20 代扣转账, 无限授权 (2^256-1) 不递减
func (t *TokenSale) TransferFrom(opts *chain.TransactOpts, from, to common.Address, value *big.Int) (*types.Receipt, error) {
	return t.backend.Transact(opts, t.address, func(call *chain.Call) error {
		if err := chain.CheckUint256(value); err != nil {
			return err
		}
		spender := call.Sender()
		allowance := t.allowance(from, spender)
		if allowance.Cmp(value) < 0 {
			return chain.NewCustomError(ERC20InsufficientAllowance, spender, allowance, value)
		}
		move, transfer, err := t.prepareTransfer(from, to, value)
		if err != nil {
			return err
		}

		if allowance.Cmp(chain.MaxUint256) != 0 {
			t.setAllowance(from, spender, new(big.Int).Sub(allowance, value))
		}
		move()
		transfer.emit(call)
		return nil
	})
}

// prepareTransfer 完成转账的全部检查, 返回待执行的状态修改和已编码的 Transfer 事件
func (t *TokenSale) prepareTransfer(from, to common.Address, value *big.Int) (func(), eventLog, error) {
	if from == (common.Address{}) {
		return nil, eventLog{}, chain.NewCustomError(ERC20InvalidSender, from)
	}
	if to == (common.Address{}) {
		return nil, eventLog{}, chain.NewCustomError(ERC20InvalidReceiver, to)
	}
	fromBalance := t.balanceOf(from)
	if fromBalance.Cmp(value) < 0 {
		return nil, eventLog{}, chain.NewCustomError(ERC20InsufficientBalance, from, fromBalance, value)
	}
	transfer, err := encodeEvent(tokenSaleABI, "Transfer", from, to, value)
	if err != nil {
		return nil, eventLog{}, err
	}

	move := func() {
		t.balances[from] = new(big.Int).Sub(t.balanceOf(from), value)
		t.balances[to] = new(big.Int).Add(t.balanceOf(to), value)
	}
	return move, transfer, nil
}

func (t *TokenSale) balanceOf(addr common.Address) *big.Int {
	if balance, ok := t.balances[addr]; ok {
		return balance
	}
	return new(big.Int)
}

func (t *TokenSale) allowance(owner, spender common.Address) *big.Int {
	if allowed, ok := t.allowances[owner][spender]; ok {
		return allowed
	}
	return new(big.Int)
}

func (t *TokenSale) setAllowance(owner, spender common.Address, value *big.Int) {
	if t.allowances[owner] == nil {
		t.allowances[owner] = make(map[common.Address]*big.Int)
	}
	t.allowances[owner][spender] = value
}

// GetContractBalance 合约持有的原生币, 购买款项即时转发, 稳态下为 0
func (t *TokenSale) GetContractBalance() *big.Int {
	return t.backend.BalanceAt(t.address)
}

// GetAllTransactions 按写入顺序返回全部购买记录
func (t *TokenSale) GetAllTransactions() []Transaction {
	var result []Transaction
	t.backend.View(func() {
		result = make([]Transaction, len(t.transactions))
		for i, tx := range t.transactions {
			result[i] = Transaction{To: tx.To, Amount: new(big.Int).Set(tx.Amount), Timestamp: tx.Timestamp}
		}
	})
	return result
}

func (t *TokenSale) Name() string {
	return t.name
}

func (t *TokenSale) Symbol() string {
	return t.symbol
}

func (t *TokenSale) Decimals() uint8 {
	return TokenDecimals
}

func (t *TokenSale) TotalSupply() *big.Int {
	return new(big.Int).Set(t.totalSupply)
}

func (t *TokenSale) InitialOwner() common.Address {
	return t.initialOwner
}

func (t *TokenSale) ProjectID() *big.Int {
	return new(big.Int).Set(t.projectID)
}

// TokenPrice 当前单价 (wei)
func (t *TokenSale) TokenPrice() *big.Int {
	var price *big.Int
	t.backend.View(func() {
		price = new(big.Int).Set(t.tokenPrice)
	})
	return price
}

// BalanceOf 查询持有量
func (t *TokenSale) BalanceOf(account common.Address) *big.Int {
	var balance *big.Int
	t.backend.View(func() {
		balance = new(big.Int).Set(t.balanceOf(account))
	})
	return balance
}

// Allowance 查询授权额度
func (t *TokenSale) Allowance(owner, spender common.Address) *big.Int {
	var allowed *big.Int
	t.backend.View(func() {
		allowed = new(big.Int).Set(t.allowance(owner, spender))
	})
	return allowed
}
