package contract

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/rohitroy-github/ico-init/internal/logger"
)

// UnknownEvent 无法识别签名的事件类型
const UnknownEvent = "Unknown"

type boundABI struct {
	name string
	abi  abi.ABI
}

// Parser 将合约日志解析为事件数据
type Parser struct {
	abis []boundABI
}

// NewParser 创建解析器, 识别注册合约和代币销售合约的全部事件
func NewParser() *Parser {
	return &Parser{
		abis: []boundABI{
			{name: ProjectRegistryName, abi: registryABI},
			{name: TokenSaleName, abi: tokenSaleABI},
		},
	}
}

// ParseEvent 解析事件日志
func (p *Parser) ParseEvent(log types.Log) (map[string]interface{}, error) {
	var eventSignature string
	if len(log.Topics) > 0 {
		eventSignature = log.Topics[0].Hex()

		for _, bound := range p.abis {
			for eventName, event := range bound.abi.Events {
				if event.ID == log.Topics[0] {
					return p.parseEvent(bound, eventName, log, event)
				}
			}
		}
	}

	// 未知事件
	logger.Warn("Unknown event signature: %s at %s", eventSignature, log.Address.Hex())
	return map[string]interface{}{
		"eventType":   UnknownEvent,
		"signature":   eventSignature,
		"contract":    "",
		"address":     log.Address.Hex(),
		"txHash":      log.TxHash.Hex(),
		"blockNumber": log.BlockNumber,
		"logIndex":    log.Index,
	}, nil
}

// parseEvent 解析事件
func (p *Parser) parseEvent(bound boundABI, eventName string, log types.Log, event abi.Event) (map[string]interface{}, error) {
	result := make(map[string]interface{})
	result["eventType"] = eventName
	result["contract"] = bound.name
	result["address"] = log.Address.Hex()
	result["txHash"] = log.TxHash.Hex()
	result["blockNumber"] = log.BlockNumber
	result["logIndex"] = log.Index

	// 解析索引参数
	topicIndex := 1
	for _, input := range event.Inputs {
		if !input.Indexed {
			continue
		}
		if topicIndex >= len(log.Topics) {
			logger.Warn("Missing topic for indexed parameter %s of %s", input.Name, eventName)
			break
		}
		result[input.Name] = parseTopicValue(log.Topics[topicIndex], input.Type)
		topicIndex++
	}

	// 解析非索引参数
	nonIndexedInputs := event.Inputs.NonIndexed()
	if len(nonIndexedInputs) > 0 {
		values, err := bound.abi.Unpack(eventName, log.Data)
		if err != nil {
			logger.Warn("Failed to unpack non-indexed parameters of %s: %v", eventName, err)
		} else {
			for i, input := range nonIndexedInputs {
				if i < len(values) {
					result[input.Name] = values[i]
				}
			}
		}
	}

	return result, nil
}

// parseTopicValue 解析主题值
func parseTopicValue(topic common.Hash, t abi.Type) interface{} {
	switch t.T {
	case abi.UintTy, abi.IntTy:
		return new(big.Int).SetBytes(topic.Bytes())
	case abi.AddressTy:
		return common.BytesToAddress(topic.Bytes())
	case abi.BoolTy:
		return new(big.Int).SetBytes(topic.Bytes()).Sign() > 0
	case abi.FixedBytesTy, abi.BytesTy:
		return topic.Bytes()
	default:
		return topic.Hex()
	}
}
