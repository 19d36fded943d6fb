package model

import (
	"time"
)

// ProjectModel 链上项目的投影
type ProjectModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// 链上项目ID, 从 0 开始连续分配
	ProjectId int64 `json:"project_id" gorm:"uniqueIndex;not null"`

	// 基本信息
	Name        string `json:"name" gorm:"not null"`
	Description string `json:"description" gorm:"type:text"`
	Owner       string `json:"owner" gorm:"index;not null"`

	// 时间信息 (秒, uint256 十进制字符串)
	OpeningDate string `json:"opening_date" gorm:"type:varchar(78)"`
	ClosingDate string `json:"closing_date" gorm:"type:varchar(78)"`

	// 状态
	Status ProjectStatus `json:"status" gorm:"index;default:'listed'"`

	// 区块链信息
	TokenContract string `json:"token_contract"`
	TxHash        string `json:"tx_hash"`
	BlockNum      int64  `json:"block_num"`
}

// ProjectStatus 项目状态
type ProjectStatus string

const (
	ProjectStatusListed      ProjectStatus = "listed"       // 已上架
	ProjectStatusClosed      ProjectStatus = "closed"       // 已关闭
	ProjectStatusTokenMinted ProjectStatus = "token_minted" // 已发行代币
)

// ProjectStatuses 全部项目状态
var ProjectStatuses = []ProjectStatus{ProjectStatusListed, ProjectStatusClosed, ProjectStatusTokenMinted}

// IsValid 校验状态取值
func (s ProjectStatus) IsValid() bool {
	for _, status := range ProjectStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// TableName 自定义表名
func (ProjectModel) TableName() string {
	return "project"
}
