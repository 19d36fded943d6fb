package logic

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rohitroy-github/ico-init/internal/chain"
	"github.com/rohitroy-github/ico-init/internal/contract"
	"github.com/rohitroy-github/ico-init/internal/logger"
	"github.com/rohitroy-github/ico-init/internal/metrics"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

var (
	ErrNotFound        = errors.New("record not found")
	ErrInvalidArgument = errors.New("invalid argument")
)

// 错误类别, 同时作为 reverted_calls 指标的 kind 标签
const (
	KindAuthorization = "authorization"
	KindRevert        = "revert"
	KindInvalid       = "invalid"
)

// Classify 将链上调用错误归类, 非调用方原因的错误返回空串
func Classify(err error) string {
	switch {
	case err == nil:
		return ""
	case contract.IsAuthorizationError(err):
		return KindAuthorization
	case chain.IsReverted(err):
		return KindRevert
	case errors.Is(err, chain.ErrInsufficientFunds),
		errors.Is(err, chain.ErrUint256),
		errors.Is(err, chain.ErrNoContract),
		errors.Is(err, ErrInvalidArgument):
		return KindInvalid
	default:
		return ""
	}
}

// observe 记录失败的链上调用
func observe(method string, err error) error {
	if kind := Classify(err); kind != "" {
		metrics.RevertedCalls.WithLabelValues(method, kind).Inc()
		logger.Warn("Call %s reverted: %v", method, err)
	}
	return err
}

// ParseAddress 解析十六进制地址
func ParseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("%w: bad address %q", ErrInvalidArgument, s)
	}
	return common.HexToAddress(s), nil
}

// ParseUint256 解析十进制 uint256, 空串视为 0
func ParseUint256(s string) (*big.Int, error) {
	if s == "" {
		return new(big.Int), nil
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("%w: bad number %q", ErrInvalidArgument, s)
	}
	if err := chain.CheckUint256(v); err != nil {
		return nil, fmt.Errorf("%w: %s out of uint256 range", ErrInvalidArgument, s)
	}
	return v, nil
}

// normalizePage 修正分页参数
func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}
