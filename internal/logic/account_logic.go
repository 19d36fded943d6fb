package logic

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rohitroy-github/ico-init/internal/chain"
)

// AccountLogic 开发链账户查询
type AccountLogic struct {
	backend  *chain.Backend
	accounts []chain.Account
}

// NewAccountLogic 创建账户业务逻辑
func NewAccountLogic(backend *chain.Backend, accounts []chain.Account) *AccountLogic {
	return &AccountLogic{backend: backend, accounts: accounts}
}

// AccountInfo 账户余额与 nonce
type AccountInfo struct {
	Address common.Address
	Balance *big.Int
	Nonce   uint64
}

// GetAccounts 获取全部预置账户
func (a *AccountLogic) GetAccounts() []AccountInfo {
	infos := make([]AccountInfo, 0, len(a.accounts))
	for _, account := range a.accounts {
		infos = append(infos, a.GetAccount(account.Address))
	}
	return infos
}

// GetAccount 获取任意地址的余额与 nonce
func (a *AccountLogic) GetAccount(addr common.Address) AccountInfo {
	return AccountInfo{
		Address: addr,
		Balance: a.backend.BalanceAt(addr),
		Nonce:   a.backend.NonceAt(addr),
	}
}
