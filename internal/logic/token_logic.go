package logic

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/rohitroy-github/ico-init/internal/chain"
	"github.com/rohitroy-github/ico-init/internal/contract"
	"github.com/rohitroy-github/ico-init/internal/model"
	"gorm.io/gorm"
)

// TokenLogic 代币销售合约业务逻辑
type TokenLogic struct {
	db      *gorm.DB
	backend *chain.Backend
}

// NewTokenLogic 创建代币业务逻辑
func NewTokenLogic(db *gorm.DB, backend *chain.Backend) *TokenLogic {
	return &TokenLogic{db: db, backend: backend}
}

// TokenInfo 代币合约的链上状态
type TokenInfo struct {
	Address         common.Address
	Name            string
	Symbol          string
	Decimals        uint8
	TotalSupply     *big.Int
	InitialOwner    common.Address
	ProjectID       *big.Int
	TokenPrice      *big.Int
	OwnerBalance    *big.Int
	ContractBalance *big.Int
}

// sale 按地址绑定代币销售合约
func (t *TokenLogic) sale(address string) (*contract.TokenSale, error) {
	addr, err := ParseAddress(address)
	if err != nil {
		return nil, err
	}
	sale, err := contract.TokenSaleAt(t.backend, addr)
	if err != nil {
		return nil, fmt.Errorf("%w: no token sale at %s", ErrNotFound, addr.Hex())
	}
	return sale, nil
}

// GetToken 读取代币链上状态
func (t *TokenLogic) GetToken(address string) (*TokenInfo, error) {
	sale, err := t.sale(address)
	if err != nil {
		return nil, err
	}
	owner := sale.InitialOwner()
	return &TokenInfo{
		Address:         sale.Address(),
		Name:            sale.Name(),
		Symbol:          sale.Symbol(),
		Decimals:        sale.Decimals(),
		TotalSupply:     sale.TotalSupply(),
		InitialOwner:    owner,
		ProjectID:       sale.ProjectID(),
		TokenPrice:      sale.TokenPrice(),
		OwnerBalance:    sale.BalanceOf(owner),
		ContractBalance: sale.GetContractBalance(),
	}, nil
}

// BalanceOf 查询持有量
func (t *TokenLogic) BalanceOf(address, holder string) (*big.Int, error) {
	sale, err := t.sale(address)
	if err != nil {
		return nil, err
	}
	addr, err := ParseAddress(holder)
	if err != nil {
		return nil, err
	}
	return sale.BalanceOf(addr), nil
}

// BuyTokens 按当前价格购买代币, 付款必须精确等于 amount * price
func (t *TokenLogic) BuyTokens(opts *chain.TransactOpts, address string, amount *big.Int) (*types.Receipt, error) {
	sale, err := t.sale(address)
	if err != nil {
		return nil, err
	}
	receipt, err := sale.BuyTokens(opts, amount)
	return receipt, observe("buyTokens", err)
}

// UpdateTokenPrice 初始所有者调价
func (t *TokenLogic) UpdateTokenPrice(opts *chain.TransactOpts, address string, price *big.Int) (*types.Receipt, error) {
	sale, err := t.sale(address)
	if err != nil {
		return nil, err
	}
	receipt, err := sale.UpdateTokenPrice(opts, price)
	return receipt, observe("updateTokenPrice", err)
}

// Transfer 代币转账
func (t *TokenLogic) Transfer(opts *chain.TransactOpts, address, to string, value *big.Int) (*types.Receipt, error) {
	sale, err := t.sale(address)
	if err != nil {
		return nil, err
	}
	recipient, err := ParseAddress(to)
	if err != nil {
		return nil, err
	}
	receipt, err := sale.Transfer(opts, recipient, value)
	return receipt, observe("transfer", err)
}

// Approve 授权额度
func (t *TokenLogic) Approve(opts *chain.TransactOpts, address, spender string, value *big.Int) (*types.Receipt, error) {
	sale, err := t.sale(address)
	if err != nil {
		return nil, err
	}
	addr, err := ParseAddress(spender)
	if err != nil {
		return nil, err
	}
	receipt, err := sale.Approve(opts, addr, value)
	return receipt, observe("approve", err)
}

// GetTransactions 合约内记录的全部购买流水
func (t *TokenLogic) GetTransactions(address string) ([]contract.Transaction, error) {
	sale, err := t.sale(address)
	if err != nil {
		return nil, err
	}
	return sale.GetAllTransactions(), nil
}

// GetIndexedToken 读取代币投影
func (t *TokenLogic) GetIndexedToken(address string) (*model.TokenModel, error) {
	addr, err := ParseAddress(address)
	if err != nil {
		return nil, err
	}
	var token model.TokenModel
	if err := t.db.Where("address = ?", addr.Hex()).First(&token).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: token %s not indexed", ErrNotFound, addr.Hex())
		}
		return nil, fmt.Errorf("获取代币失败: %w", err)
	}
	return &token, nil
}

// GetIndexedTokens 全部已索引代币
func (t *TokenLogic) GetIndexedTokens() ([]model.TokenModel, error) {
	var tokens []model.TokenModel
	if err := t.db.Order("project_id ASC").Find(&tokens).Error; err != nil {
		return nil, fmt.Errorf("获取代币列表失败: %w", err)
	}
	return tokens, nil
}
