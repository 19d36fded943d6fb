package chain

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// txState 一笔交易内所有调用共享的状态: 回滚日志与事件
type txState struct {
	undo []func()
	logs []*types.Log
}

func (t *txState) journal(fn func()) {
	t.undo = append(t.undo, fn)
}

// revert 逆序撤销本交易内的全部副作用
func (t *txState) revert() {
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
	t.logs = nil
}

// Call 合约执行上下文, 仅在交易执行期间有效
type Call struct {
	backend *Backend
	tx      *txState
	from    common.Address
	self    common.Address
	value   *big.Int
	number  uint64
	time    uint64
}

// Backend 当前调用所在的账本
func (c *Call) Backend() *Backend {
	return c.backend
}

// Sender 直接调用方 (msg.sender)
func (c *Call) Sender() common.Address {
	return c.from
}

// Self 当前执行的合约地址
func (c *Call) Self() common.Address {
	return c.self
}

// Value 本次调用附带的 wei
func (c *Call) Value() *big.Int {
	return new(big.Int).Set(c.value)
}

// BlockNumber 正在打包的区块号
func (c *Call) BlockNumber() uint64 {
	return c.number
}

// BlockTime 正在打包的区块时间戳 (秒)
func (c *Call) BlockTime() uint64 {
	return c.time
}

// Balance 查询任意地址的原生币余额
func (c *Call) Balance(addr common.Address) *big.Int {
	return new(big.Int).Set(c.backend.balanceOf(addr))
}

// Transfer 从当前合约向 to 转出原生币
func (c *Call) Transfer(to common.Address, amount *big.Int) error {
	if err := CheckUint256(amount); err != nil {
		return err
	}
	return c.move(c.self, to, amount)
}

// Emit 记录一条由当前合约发出的事件日志
func (c *Call) Emit(topics []common.Hash, data []byte) {
	c.tx.logs = append(c.tx.logs, &types.Log{
		Address: c.self,
		Topics:  append([]common.Hash(nil), topics...),
		Data:    append([]byte(nil), data...),
	})
}

// Create 由当前合约部署子合约, 子合约的调用方为当前合约
func (c *Call) Create(build func(*Call) (Contract, error)) (common.Address, error) {
	b := c.backend
	nonce := b.nonces[c.self]
	addr := crypto.CreateAddress(c.self, nonce)

	b.nonces[c.self] = nonce + 1
	c.tx.journal(func() { b.nonces[c.self] = nonce })

	sub := &Call{
		backend: b,
		tx:      c.tx,
		from:    c.self,
		self:    addr,
		value:   new(big.Int),
		number:  c.number,
		time:    c.time,
	}
	contract, err := build(sub)
	if err != nil {
		return common.Address{}, err
	}
	if err := sub.register(addr, contract); err != nil {
		return common.Address{}, err
	}
	return addr, nil
}

// move 在两个账户间转移原生币并记录回滚
func (c *Call) move(from, to common.Address, amount *big.Int) error {
	if amount.Sign() == 0 || from == to {
		if c.backend.balanceOf(from).Cmp(amount) < 0 {
			return ErrInsufficientFunds
		}
		return nil
	}

	b := c.backend
	fromBalance := b.balanceOf(from)
	if fromBalance.Cmp(amount) < 0 {
		return fmt.Errorf("%w: have %s want %s", ErrInsufficientFunds, fromBalance, amount)
	}
	toBalance := b.balanceOf(to)
	newTo, err := SafeAdd(toBalance, amount)
	if err != nil {
		return err
	}

	prevFrom, hadFrom := b.balances[from]
	prevTo, hadTo := b.balances[to]
	c.tx.journal(func() {
		restore(b.balances, from, prevFrom, hadFrom)
		restore(b.balances, to, prevTo, hadTo)
	})

	b.balances[from] = new(big.Int).Sub(fromBalance, amount)
	b.balances[to] = newTo
	return nil
}

// register 将合约实例登记到地址上, 合约账户的 nonce 从 1 开始 (EIP-161)
func (c *Call) register(addr common.Address, contract Contract) error {
	b := c.backend
	if _, exists := b.contracts[addr]; exists {
		return fmt.Errorf("contract address collision at %s", addr.Hex())
	}
	prevNonce, hadNonce := b.nonces[addr]
	b.contracts[addr] = contract
	b.nonces[addr] = 1
	c.tx.journal(func() {
		delete(b.contracts, addr)
		if hadNonce {
			b.nonces[addr] = prevNonce
		} else {
			delete(b.nonces, addr)
		}
	})
	return nil
}

func restore(balances map[common.Address]*big.Int, addr common.Address, prev *big.Int, had bool) {
	if had {
		balances[addr] = prev
		return
	}
	delete(balances, addr)
}
