package chain

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds for transfer")
	ErrNonPayable        = errors.New("execution reverted: non-payable function called with value")
	ErrUint256           = errors.New("value out of uint256 range")
	ErrOverflow          = errors.New("execution reverted: arithmetic overflow")
	ErrNoContract        = errors.New("no contract code at given address")
)

// MaxUint256 2^256 - 1
var MaxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// RevertError require 风格的失败, 携带原因字符串
type RevertError struct {
	Reason string
}

// Revert 创建带原因的回滚错误
func Revert(reason string) error {
	return &RevertError{Reason: reason}
}

func (e *RevertError) Error() string {
	return "execution reverted: " + e.Reason
}

// Is 原因相同即视为同一错误
func (e *RevertError) Is(target error) bool {
	t, ok := target.(*RevertError)
	return ok && t.Reason == e.Reason
}

// CustomError 具名错误, 对应合约中的 custom error
type CustomError struct {
	Name string
	Args []interface{}
}

// NewCustomError 创建带参数的具名错误
func NewCustomError(name string, args ...interface{}) error {
	return &CustomError{Name: name, Args: args}
}

func (e *CustomError) Error() string {
	if len(e.Args) == 0 {
		return fmt.Sprintf("execution reverted: custom error %s()", e.Name)
	}
	parts := make([]string, len(e.Args))
	for i, arg := range e.Args {
		parts[i] = fmt.Sprint(arg)
	}
	return fmt.Sprintf("execution reverted: custom error %s(%s)", e.Name, strings.Join(parts, ", "))
}

// Is 名称相同即视为同一错误, 忽略参数
func (e *CustomError) Is(target error) bool {
	t, ok := target.(*CustomError)
	return ok && t.Name == e.Name
}

// IsReverted 判断错误是否为合约执行回滚
func IsReverted(err error) bool {
	var revertErr *RevertError
	var customErr *CustomError
	return errors.As(err, &revertErr) || errors.As(err, &customErr) ||
		errors.Is(err, ErrNonPayable) || errors.Is(err, ErrOverflow)
}

// CheckUint256 校验数值在 uint256 范围内
func CheckUint256(values ...*big.Int) error {
	for _, v := range values {
		if v == nil || v.Sign() < 0 || v.Cmp(MaxUint256) > 0 {
			return ErrUint256
		}
	}
	return nil
}

// SafeMul 带溢出检查的 uint256 乘法
func SafeMul(a, b *big.Int) (*big.Int, error) {
	r := new(big.Int).Mul(a, b)
	if r.Cmp(MaxUint256) > 0 {
		return nil, ErrOverflow
	}
	return r, nil
}

// SafeAdd 带溢出检查的 uint256 加法
func SafeAdd(a, b *big.Int) (*big.Int, error) {
	r := new(big.Int).Add(a, b)
	if r.Cmp(MaxUint256) > 0 {
		return nil, ErrOverflow
	}
	return r, nil
}
