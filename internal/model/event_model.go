package model

import (
	"time"
)

// ContractKind 发出事件的合约类型
type ContractKind string

const (
	ContractKindRegistry  ContractKind = "ProjectRegistry"
	ContractKindTokenSale ContractKind = "TokenSale"
	ContractKindUnknown   ContractKind = "unknown"
)

// ContractKindOf 由解析器给出的合约名得到合约类型, 无法识别时为 unknown
func ContractKindOf(name string) ContractKind {
	switch kind := ContractKind(name); kind {
	case ContractKindRegistry, ContractKindTokenSale:
		return kind
	default:
		return ContractKindUnknown
	}
}

// EventModel 已索引的链上日志.
// (tx_hash, log_index) 唯一确定一条日志, 索引器按此去重; Data 为解析后的事件参数 (JSON);
// Processed 为 false 的记录在下次扫描时重新分发给处理器
type EventModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ContractAddress string       `json:"contract_address" gorm:"index;not null"`
	ContractName    ContractKind `json:"contract_name" gorm:"type:varchar(32);index;not null"`
	EventType       string       `json:"event_type" gorm:"index;not null"`
	TxHash          string       `json:"tx_hash" gorm:"uniqueIndex:idx_event_tx_log;not null"`
	LogIndex        int64        `json:"log_index" gorm:"uniqueIndex:idx_event_tx_log"`
	BlockNum        int64        `json:"block_num" gorm:"index;not null"`
	Data            string       `json:"data" gorm:"type:text"`
	Processed       bool         `json:"processed" gorm:"index;default:false"`
}

// TableName 自定义表名
func (EventModel) TableName() string {
	return "event"
}
