package contract

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParser_UnknownEvent(t *testing.T) {
	log := types.Log{
		Address:     accountA,
		Topics:      []common.Hash{crypto.Keccak256Hash([]byte("Mystery(uint256)"))},
		BlockNumber: 12,
		Index:       3,
	}

	event, err := NewParser().ParseEvent(log)
	require.NoError(t, err)
	assert.Equal(t, UnknownEvent, event["eventType"])
	assert.Equal(t, uint64(12), event["blockNumber"])
	assert.Equal(t, uint(3), event["logIndex"])

	event, err = NewParser().ParseEvent(types.Log{})
	require.NoError(t, err)
	assert.Equal(t, UnknownEvent, event["eventType"])
}

func TestParser_TokenSaleCreated(t *testing.T) {
	encoded, err := encodeEvent(tokenSaleABI, "TokenSaleCreated", big.NewInt(4), accountB, "Name", "SYM", big.NewInt(1000), big.NewInt(7))
	require.NoError(t, err)
	require.Len(t, encoded.topics, 3)

	event, err := NewParser().ParseEvent(types.Log{Address: accountC, Topics: encoded.topics, Data: encoded.data})
	require.NoError(t, err)
	assert.Equal(t, "TokenSaleCreated", event["eventType"])
	assert.Equal(t, TokenSaleName, event["contract"])
	assert.Equal(t, accountC.Hex(), event["address"])
	assertBig(t, big.NewInt(4), event["projectID"].(*big.Int))
	assert.Equal(t, accountB, event["initialOwner"])
	assert.Equal(t, "Name", event["name"])
	assert.Equal(t, "SYM", event["symbol"])
	assertBig(t, big.NewInt(1000), event["totalSupply"].(*big.Int))
	assertBig(t, big.NewInt(7), event["tokenPrice"].(*big.Int))
}

func TestEncodeEvent_ArgumentMismatch(t *testing.T) {
	_, err := encodeEvent(registryABI, "ProjectClosedByOwner")
	assert.Error(t, err)

	_, err = encodeEvent(registryABI, "NoSuchEvent")
	assert.Error(t, err)
}

func TestEventID(t *testing.T) {
	id, err := EventID(ProjectRegistryName, "ProjectListed")
	require.NoError(t, err)
	assert.Equal(t, crypto.Keccak256Hash([]byte("ProjectListed(uint256,string,address)")), id)

	id, err = EventID(TokenSaleName, "Transfer")
	require.NoError(t, err)
	assert.Equal(t, crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)")), id)

	_, err = EventID("Other", "Transfer")
	assert.Error(t, err)
	_, err = EventID(TokenSaleName, "Missing")
	assert.Error(t, err)
}
