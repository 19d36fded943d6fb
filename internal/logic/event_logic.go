package logic

import (
	"errors"
	"fmt"

	"github.com/rohitroy-github/ico-init/internal/model"
	"gorm.io/gorm"
)

// EventLogic 事件业务逻辑
type EventLogic struct {
	db *gorm.DB
}

// NewEventLogic 创建事件业务逻辑
func NewEventLogic(db *gorm.DB) *EventLogic {
	return &EventLogic{db: db}
}

// EventFilter 事件查询条件, 零值字段不参与过滤
type EventFilter struct {
	ContractAddress string
	ContractName    string
	EventType       string
	TxHash          string
}

// GetEvents 获取事件列表, 按链上顺序倒序
func (e *EventLogic) GetEvents(filter EventFilter, page, pageSize int) ([]model.EventModel, int64, error) {
	var events []model.EventModel
	var total int64

	page, pageSize = normalizePage(page, pageSize)

	// 构建查询条件
	query := e.db.Model(&model.EventModel{})
	if filter.ContractAddress != "" {
		addr, err := ParseAddress(filter.ContractAddress)
		if err != nil {
			return nil, 0, err
		}
		query = query.Where("contract_address = ?", addr.Hex())
	}
	if filter.ContractName != "" {
		query = query.Where("contract_name = ?", filter.ContractName)
	}
	if filter.EventType != "" {
		query = query.Where("event_type = ?", filter.EventType)
	}
	if filter.TxHash != "" {
		query = query.Where("tx_hash = ?", filter.TxHash)
	}

	// 获取总数
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("获取事件总数失败: %w", err)
	}

	// 分页查询
	offset := (page - 1) * pageSize
	if err := query.Offset(offset).Limit(pageSize).Order("block_num DESC, log_index DESC").Find(&events).Error; err != nil {
		return nil, 0, fmt.Errorf("获取事件列表失败: %w", err)
	}

	return events, total, nil
}

// GetEvent 获取单个事件
func (e *EventLogic) GetEvent(id int64) (*model.EventModel, error) {
	var event model.EventModel
	if err := e.db.First(&event, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: event %d", ErrNotFound, id)
		}
		return nil, fmt.Errorf("获取事件失败: %w", err)
	}

	return &event, nil
}

// EventStatistics 索引进度统计
type EventStatistics struct {
	TotalEvents     int64 `json:"total_events"`
	ProcessedEvents int64 `json:"processed_events"`
	PendingEvents   int64 `json:"pending_events"`
	LastBlock       int64 `json:"last_block"`
}

// GetEventStatistics 获取事件统计信息
func (e *EventLogic) GetEventStatistics() (*EventStatistics, error) {
	var stats EventStatistics

	// 总事件数
	if err := e.db.Model(&model.EventModel{}).Count(&stats.TotalEvents).Error; err != nil {
		return nil, fmt.Errorf("获取总事件数失败: %w", err)
	}

	// 已处理事件数
	if err := e.db.Model(&model.EventModel{}).Where("processed = ?", true).Count(&stats.ProcessedEvents).Error; err != nil {
		return nil, fmt.Errorf("获取已处理事件数失败: %w", err)
	}
	stats.PendingEvents = stats.TotalEvents - stats.ProcessedEvents

	// 最后索引的区块
	var lastEvent model.EventModel
	err := e.db.Order("block_num DESC").First(&lastEvent).Error
	switch {
	case err == nil:
		stats.LastBlock = lastEvent.BlockNum
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, fmt.Errorf("获取最后处理区块号失败: %w", err)
	}

	return &stats, nil
}
