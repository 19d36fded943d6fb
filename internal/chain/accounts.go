package chain

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/rohitroy-github/ico-init/internal/config"
	"github.com/rohitroy-github/ico-init/internal/logger"
)

// Account 开发链上的预置账户
type Account struct {
	Address common.Address
	Key     *ecdsa.PrivateKey
}

// DevAccounts 派生 n 个确定性的开发账户, 每次启动地址一致
func DevAccounts(n int) ([]Account, error) {
	accounts := make([]Account, 0, n)
	for i := 0; i < n; i++ {
		seed := crypto.Keccak256([]byte(fmt.Sprintf("ico-init dev account %d", i)))
		key, err := crypto.ToECDSA(seed)
		if err != nil {
			return nil, fmt.Errorf("failed to derive dev account %d: %w", i, err)
		}
		accounts = append(accounts, Account{
			Address: crypto.PubkeyToAddress(key.PublicKey),
			Key:     key,
		})
	}
	return accounts, nil
}

// NewDevBackend 创建开发链并为预置账户注资
func NewDevBackend(cfg config.ChainConfig, opts ...Option) (*Backend, []Account, error) {
	if cfg.DevAccounts <= 0 {
		return nil, nil, fmt.Errorf("chain.dev_accounts must be positive, got %d", cfg.DevAccounts)
	}
	balance, err := cfg.InitialBalanceWei()
	if err != nil {
		return nil, nil, err
	}

	accounts, err := DevAccounts(cfg.DevAccounts)
	if err != nil {
		return nil, nil, err
	}

	if cfg.ChainId != 0 {
		opts = append([]Option{WithChainID(cfg.ChainId)}, opts...)
	}
	backend := NewBackend(opts...)
	for _, account := range accounts {
		if err := backend.Fund(account.Address, balance); err != nil {
			return nil, nil, fmt.Errorf("failed to fund %s: %w", account.Address.Hex(), err)
		}
	}

	logger.Info("Dev chain %s initialized with %d funded accounts", backend.ChainID(), len(accounts))
	return backend, accounts, nil
}
