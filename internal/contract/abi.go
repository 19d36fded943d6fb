package contract

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/rohitroy-github/ico-init/internal/chain"
)

// 合约名称, 同时用作事件记录中的 contract 字段
const (
	ProjectRegistryName = "ProjectRegistry"
	TokenSaleName       = "TokenSale"
)

// ProjectRegistryABI 项目注册合约的事件 ABI
const ProjectRegistryABI = `[
	{"type":"event","name":"ProjectListed","inputs":[
		{"name":"projectID","type":"uint256","indexed":true},
		{"name":"projectName","type":"string","indexed":false},
		{"name":"projectOwner","type":"address","indexed":true}]},
	{"type":"event","name":"ProjectClosedByOwner","inputs":[
		{"name":"projectID","type":"uint256","indexed":true}]},
	{"type":"event","name":"TokenListed","inputs":[
		{"name":"projectID","type":"uint256","indexed":true},
		{"name":"tokenSymbol","type":"string","indexed":false},
		{"name":"tokenOwner","type":"address","indexed":true}]},
	{"type":"event","name":"ListingFeeUpdated","inputs":[
		{"name":"listingFee","type":"uint256","indexed":false}]},
	{"type":"event","name":"ContractBalanceWithdrawn","inputs":[
		{"name":"to","type":"address","indexed":true},
		{"name":"amount","type":"uint256","indexed":false}]}
]`

// TokenSaleABI 代币销售合约的事件 ABI
const TokenSaleABI = `[
	{"type":"event","name":"Transfer","inputs":[
		{"name":"from","type":"address","indexed":true},
		{"name":"to","type":"address","indexed":true},
		{"name":"value","type":"uint256","indexed":false}]},
	{"type":"event","name":"Approval","inputs":[
		{"name":"owner","type":"address","indexed":true},
		{"name":"spender","type":"address","indexed":true},
		{"name":"value","type":"uint256","indexed":false}]},
	{"type":"event","name":"TokenSaleCreated","inputs":[
		{"name":"projectID","type":"uint256","indexed":true},
		{"name":"initialOwner","type":"address","indexed":true},
		{"name":"name","type":"string","indexed":false},
		{"name":"symbol","type":"string","indexed":false},
		{"name":"totalSupply","type":"uint256","indexed":false},
		{"name":"tokenPrice","type":"uint256","indexed":false}]},
	{"type":"event","name":"TokensPurchased","inputs":[
		{"name":"buyer","type":"address","indexed":true},
		{"name":"amount","type":"uint256","indexed":false},
		{"name":"cost","type":"uint256","indexed":false},
		{"name":"timestamp","type":"uint256","indexed":false}]},
	{"type":"event","name":"TokenPriceUpdated","inputs":[
		{"name":"tokenPrice","type":"uint256","indexed":false}]}
]`

var (
	registryABI  = mustParseABI(ProjectRegistryABI)
	tokenSaleABI = mustParseABI(TokenSaleABI)
)

func mustParseABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(fmt.Sprintf("invalid contract ABI: %v", err))
	}
	return parsed
}

// EventID 事件签名哈希 (topic0)
func EventID(contractName, eventName string) (common.Hash, error) {
	var parsed abi.ABI
	switch contractName {
	case ProjectRegistryName:
		parsed = registryABI
	case TokenSaleName:
		parsed = tokenSaleABI
	default:
		return common.Hash{}, fmt.Errorf("unknown contract %s", contractName)
	}
	event, ok := parsed.Events[eventName]
	if !ok {
		return common.Hash{}, fmt.Errorf("event %s not found in %s", eventName, contractName)
	}
	return event.ID, nil
}

// eventLog 已编码但尚未发出的事件
type eventLog struct {
	topics []common.Hash
	data   []byte
}

func (e eventLog) emit(call *chain.Call) {
	call.Emit(e.topics, e.data)
}

// encodeEvent 按 ABI 编码事件: indexed 参数进 topics, 其余参数打包进 data
func encodeEvent(parsed abi.ABI, name string, args ...interface{}) (eventLog, error) {
	event, ok := parsed.Events[name]
	if !ok {
		return eventLog{}, fmt.Errorf("event %s not found in ABI", name)
	}
	if len(args) != len(event.Inputs) {
		return eventLog{}, fmt.Errorf("event %s expects %d arguments, got %d", name, len(event.Inputs), len(args))
	}

	topics := []common.Hash{event.ID}
	values := make([]interface{}, 0, len(args))
	for i, input := range event.Inputs {
		if !input.Indexed {
			values = append(values, args[i])
			continue
		}
		indexed, err := abi.MakeTopics([]interface{}{args[i]})
		if err != nil {
			return eventLog{}, fmt.Errorf("failed to encode topic %s of %s: %w", input.Name, name, err)
		}
		topics = append(topics, indexed[0][0])
	}

	data, err := event.Inputs.NonIndexed().Pack(values...)
	if err != nil {
		return eventLog{}, fmt.Errorf("failed to pack %s data: %w", name, err)
	}
	return eventLog{topics: topics, data: data}, nil
}
