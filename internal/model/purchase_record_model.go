package model

import (
	"time"
)

// PurchaseRecordModel 代币购买记录
type PurchaseRecordModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	TokenAddress string `json:"token_address" gorm:"index;not null"`
	ProjectId    int64  `json:"project_id" gorm:"index"`
	Buyer        string `json:"buyer" gorm:"index;not null"`
	Amount       string `json:"amount" gorm:"type:varchar(78);not null"`
	Cost         string `json:"cost" gorm:"type:varchar(78);not null"`
	Timestamp    int64  `json:"timestamp"`

	TxHash   string `json:"tx_hash" gorm:"uniqueIndex:idx_purchase_tx_log;not null"`
	LogIndex int64  `json:"log_index" gorm:"uniqueIndex:idx_purchase_tx_log"`
	BlockNum int64  `json:"block_num"`
}

// TableName 自定义表名
func (PurchaseRecordModel) TableName() string {
	return "purchase_record"
}
