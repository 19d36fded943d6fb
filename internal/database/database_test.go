package database

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohitroy-github/ico-init/internal/config"
	"github.com/rohitroy-github/ico-init/internal/model"
)

func memoryConfig(t *testing.T) config.DatabaseConfig {
	return config.DatabaseConfig{
		Driver: "sqlite",
		Path:   fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_")),
	}
}

func TestInit_MigratesAllModels(t *testing.T) {
	db, err := Init(memoryConfig(t))
	require.NoError(t, err)

	for _, table := range []string{"project", "token", "purchase_record", "event"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}
}

func TestInit_UnsupportedDriver(t *testing.T) {
	_, err := Init(config.DatabaseConfig{Driver: "oracle"})
	assert.ErrorContains(t, err, "unsupported database driver")
}

func TestReset_ClearsProjections(t *testing.T) {
	db, err := Init(memoryConfig(t))
	require.NoError(t, err)

	require.NoError(t, db.Create(&model.ProjectModel{ProjectId: 0, Name: "p", Owner: "0xa", Status: model.ProjectStatusListed}).Error)
	require.NoError(t, db.Create(&model.TokenModel{Address: "0xt", InitialOwner: "0xa", TotalSupply: "100", TokenPrice: "1"}).Error)
	require.NoError(t, db.Create(&model.PurchaseRecordModel{TokenAddress: "0xt", Buyer: "0xb", Amount: "1", Cost: "1", TxHash: "0x1"}).Error)
	require.NoError(t, db.Create(&model.EventModel{ContractAddress: "0xt", ContractName: "TokenSale", EventType: "Transfer", TxHash: "0x1", BlockNum: 1}).Error)

	require.NoError(t, Reset(db))

	for _, m := range Models() {
		var count int64
		require.NoError(t, db.Model(m).Count(&count).Error)
		assert.Zero(t, count)
	}
}

func TestEventModel_UniqueTxLog(t *testing.T) {
	db, err := Init(memoryConfig(t))
	require.NoError(t, err)

	event := model.EventModel{ContractAddress: "0xr", ContractName: "ProjectRegistry", EventType: "ProjectListed", TxHash: "0xabc", LogIndex: 0, BlockNum: 2}
	require.NoError(t, db.Create(&event).Error)

	duplicate := event
	duplicate.Id = 0
	assert.Error(t, db.Create(&duplicate).Error)
}
