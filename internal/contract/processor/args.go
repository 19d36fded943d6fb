package processor

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

func bigArg(eventData map[string]interface{}, key string) (*big.Int, error) {
	v, ok := eventData[key].(*big.Int)
	if !ok || v == nil {
		return nil, fmt.Errorf("event argument %s missing or not a uint256", key)
	}
	return v, nil
}

func addressArg(eventData map[string]interface{}, key string) (common.Address, error) {
	v, ok := eventData[key].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("event argument %s missing or not an address", key)
	}
	return v, nil
}

func stringArg(eventData map[string]interface{}, key string) (string, error) {
	v, ok := eventData[key].(string)
	if !ok {
		return "", fmt.Errorf("event argument %s missing or not a string", key)
	}
	return v, nil
}

// projectIDArg 项目ID在投影中以 int64 保存
func projectIDArg(eventData map[string]interface{}) (int64, error) {
	id, err := bigArg(eventData, "projectID")
	if err != nil {
		return 0, err
	}
	if !id.IsInt64() {
		return 0, fmt.Errorf("projectID %s out of range", id)
	}
	return id.Int64(), nil
}
