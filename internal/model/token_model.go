package model

import (
	"time"
)

// TokenModel 项目代币销售合约的投影
type TokenModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Address      string `json:"address" gorm:"uniqueIndex;not null"`
	ProjectId    int64  `json:"project_id" gorm:"index"`
	Name         string `json:"name"`
	Symbol       string `json:"symbol"`
	InitialOwner string `json:"initial_owner" gorm:"not null"`

	// uint256 数值以十进制字符串保存
	TotalSupply string `json:"total_supply" gorm:"type:varchar(78);not null"`
	TokenPrice  string `json:"token_price" gorm:"type:varchar(78);not null"`
	Sold        string `json:"sold" gorm:"type:varchar(78);default:'0'"`

	PurchaseCount int64  `json:"purchase_count" gorm:"default:0"`
	TxHash        string `json:"tx_hash"`
	BlockNum      int64  `json:"block_num"`
}

// TableName 自定义表名
func (TokenModel) TableName() string {
	return "token"
}
