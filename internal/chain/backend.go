package chain

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// Contract 部署在链上的合约实例
type Contract interface {
	Address() common.Address
}

// TransactOpts 交易参数: 调用方身份与附带的原生币数量 (wei)
type TransactOpts struct {
	From  common.Address
	Value *big.Int
}

// Option 后端配置项
type Option func(*Backend)

// WithClock 替换出块时钟
func WithClock(clock func() time.Time) Option {
	return func(b *Backend) {
		b.clock = clock
	}
}

// WithChainID 设置链ID
func WithChainID(id int64) Option {
	return func(b *Backend) {
		b.chainID = big.NewInt(id)
	}
}

// Backend 进程内账本. 每笔交易持有写锁直到执行结束, 失败时回滚全部副作用
type Backend struct {
	mu        sync.RWMutex
	chainID   *big.Int
	clock     func() time.Time
	balances  map[common.Address]*big.Int
	nonces    map[common.Address]uint64
	contracts map[common.Address]Contract
	blocks    []*Block
}

// NewBackend 创建账本并生成创世区块
func NewBackend(opts ...Option) *Backend {
	b := &Backend{
		chainID:   big.NewInt(31337),
		clock:     time.Now,
		balances:  make(map[common.Address]*big.Int),
		nonces:    make(map[common.Address]uint64),
		contracts: make(map[common.Address]Contract),
	}
	for _, opt := range opts {
		opt(b)
	}

	genesis := &Block{
		Number: 0,
		Time:   uint64(b.clock().Unix()),
	}
	genesis.Hash = crypto.Keccak256Hash([]byte("genesis"), b.chainID.Bytes(), uint64Bytes(genesis.Time))
	b.blocks = append(b.blocks, genesis)

	return b
}

// ChainID 获取链ID
func (b *Backend) ChainID() *big.Int {
	return new(big.Int).Set(b.chainID)
}

// Fund 创世分配, 不经过交易直接增加余额
func (b *Backend) Fund(addr common.Address, amount *big.Int) error {
	if err := CheckUint256(amount); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	balance, err := SafeAdd(b.balanceOf(addr), amount)
	if err != nil {
		return err
	}
	b.balances[addr] = balance
	return nil
}

// Transact 执行不可支付的合约调用
func (b *Backend) Transact(opts *TransactOpts, to common.Address, fn func(*Call) error) (*types.Receipt, error) {
	return b.run(opts, &to, false, fn)
}

// TransactPayable 执行可支付的合约调用, opts.Value 在执行前转入被调合约
func (b *Backend) TransactPayable(opts *TransactOpts, to common.Address, fn func(*Call) error) (*types.Receipt, error) {
	return b.run(opts, &to, true, fn)
}

// Deploy 部署合约, 地址由部署者地址和 nonce 决定
func (b *Backend) Deploy(opts *TransactOpts, build func(*Call) (Contract, error)) (*types.Receipt, error) {
	receipt, err := b.run(opts, nil, false, func(call *Call) error {
		contract, err := build(call)
		if err != nil {
			return err
		}
		return call.register(call.self, contract)
	})
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

// run 在写锁内执行一笔交易. to 为 nil 表示合约创建
func (b *Backend) run(opts *TransactOpts, to *common.Address, payable bool, body func(*Call) error) (*types.Receipt, error) {
	if opts == nil {
		return nil, errors.New("missing transact options")
	}
	value := opts.Value
	if value == nil {
		value = new(big.Int)
	}
	if err := CheckUint256(value); err != nil {
		return nil, err
	}
	if value.Sign() > 0 && !payable {
		return nil, ErrNonPayable
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	nonce := b.nonces[opts.From]
	var target common.Address
	if to != nil {
		target = *to
	} else {
		target = crypto.CreateAddress(opts.From, nonce)
	}

	parent := b.head()
	call := &Call{
		backend: b,
		tx:      &txState{},
		from:    opts.From,
		self:    target,
		value:   new(big.Int).Set(value),
		number:  parent.Number + 1,
		time:    b.nextTime(parent),
	}

	err := call.move(opts.From, target, value)
	if err == nil {
		err = body(call)
	}
	if err != nil {
		call.tx.revert()
		return nil, err
	}

	b.nonces[opts.From] = nonce + 1
	txHash := crypto.Keccak256Hash(b.chainID.Bytes(), opts.From.Bytes(), target.Bytes(), uint64Bytes(nonce))

	block := b.mine(parent, call, txHash)
	receipt := &types.Receipt{
		Status:      types.ReceiptStatusSuccessful,
		TxHash:      txHash,
		BlockHash:   block.Hash,
		BlockNumber: new(big.Int).SetUint64(block.Number),
		Logs:        block.Logs,
	}
	if to == nil {
		receipt.ContractAddress = target
	}
	return receipt, nil
}

func (b *Backend) nextTime(parent *Block) uint64 {
	now := b.clock().Unix()
	if now < 0 || uint64(now) < parent.Time {
		return parent.Time
	}
	return uint64(now)
}

// mine 将成功的交易打包进新区块
func (b *Backend) mine(parent *Block, call *Call, txHash common.Hash) *Block {
	block := &Block{
		Number:     call.number,
		ParentHash: parent.Hash,
		Time:       call.time,
		TxHash:     txHash,
	}
	block.Hash = crypto.Keccak256Hash(parent.Hash.Bytes(), uint64Bytes(block.Number), uint64Bytes(block.Time), txHash.Bytes())

	for i, l := range call.tx.logs {
		l.BlockNumber = block.Number
		l.BlockHash = block.Hash
		l.TxHash = txHash
		l.TxIndex = 0
		l.Index = uint(i)
	}
	block.Logs = call.tx.logs

	b.blocks = append(b.blocks, block)
	return block
}

func (b *Backend) head() *Block {
	return b.blocks[len(b.blocks)-1]
}

func (b *Backend) balanceOf(addr common.Address) *big.Int {
	if balance, ok := b.balances[addr]; ok {
		return balance
	}
	return new(big.Int)
}

// BalanceAt 查询原生币余额
func (b *Backend) BalanceAt(addr common.Address) *big.Int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return new(big.Int).Set(b.balanceOf(addr))
}

// NonceAt 查询账户 nonce
func (b *Backend) NonceAt(addr common.Address) uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.nonces[addr]
}

// ContractAt 获取指定地址上的合约
func (b *Backend) ContractAt(addr common.Address) (Contract, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	contract, ok := b.contracts[addr]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoContract, addr.Hex())
	}
	return contract, nil
}

// View 在读锁内执行只读访问
func (b *Backend) View(fn func()) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	fn()
}

// BlockNumber 获取当前最新区块号
func (b *Backend) BlockNumber(ctx context.Context) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.head().Number, nil
}

// HeaderByNumber 根据区块号获取区块头, number 为 nil 时返回最新区块
func (b *Backend) HeaderByNumber(ctx context.Context, number *big.Int) (*Block, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()

	block := b.head()
	if number != nil && number.Sign() >= 0 {
		if !number.IsUint64() || number.Uint64() > block.Number {
			return nil, fmt.Errorf("block %s not found", number)
		}
		block = b.blocks[number.Uint64()]
	}
	header := *block
	header.Logs = nil
	return &header, nil
}

func uint64Bytes(v uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, v)
	return buf
}
