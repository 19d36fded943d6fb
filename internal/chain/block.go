package chain

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Block 已打包的区块, 每个区块恰好包含一笔成功交易 (创世区块除外)
type Block struct {
	Number     uint64
	Hash       common.Hash
	ParentHash common.Hash
	Time       uint64
	TxHash     common.Hash
	Logs       []*types.Log
}

// FilterLogs 按区块范围、合约地址和主题过滤事件日志, 语义与 eth_getLogs 一致
func (b *Backend) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	head := b.head().Number
	var from, to uint64
	if q.BlockHash != nil {
		if q.FromBlock != nil || q.ToBlock != nil {
			return nil, errors.New("cannot specify both BlockHash and FromBlock/ToBlock")
		}
		found := false
		for _, block := range b.blocks {
			if block.Hash == *q.BlockHash {
				from, to, found = block.Number, block.Number, true
				break
			}
		}
		if !found {
			return nil, errors.New("unknown block")
		}
	} else {
		from = resolveBlock(q.FromBlock, 0, head)
		to = resolveBlock(q.ToBlock, head, head)
	}

	var result []types.Log
	if from > to || from > head {
		return result, nil
	}
	if to > head {
		to = head
	}

	for n := from; n <= to; n++ {
		for _, l := range b.blocks[n].Logs {
			if matchLog(l, q.Addresses, q.Topics) {
				result = append(result, copyLog(l))
			}
		}
	}
	return result, nil
}

// resolveBlock nil 取默认值, 负数 (latest/pending 等标签) 视为最新区块
func resolveBlock(n *big.Int, def, head uint64) uint64 {
	if n == nil {
		return def
	}
	if n.Sign() < 0 {
		return head
	}
	if !n.IsUint64() {
		return head + 1
	}
	return n.Uint64()
}

// matchLog 地址为 OR 关系; 主题按位置匹配, 同一位置内为 OR, 空位置匹配任意值
func matchLog(l *types.Log, addresses []common.Address, topics [][]common.Hash) bool {
	if len(addresses) > 0 {
		ok := false
		for _, addr := range addresses {
			if addr == l.Address {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}

	if len(topics) > len(l.Topics) {
		return false
	}
	for i, alternatives := range topics {
		if len(alternatives) == 0 {
			continue
		}
		ok := false
		for _, topic := range alternatives {
			if topic == l.Topics[i] {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}

func copyLog(l *types.Log) types.Log {
	c := *l
	c.Topics = append([]common.Hash(nil), l.Topics...)
	c.Data = append([]byte(nil), l.Data...)
	return c
}
