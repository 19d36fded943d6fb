package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/rohitroy-github/ico-init/internal/chain"
	"github.com/rohitroy-github/ico-init/internal/contract"
	"github.com/rohitroy-github/ico-init/internal/contract/processor"
	"github.com/rohitroy-github/ico-init/internal/logger"
	"github.com/rohitroy-github/ico-init/internal/metrics"
	"github.com/rohitroy-github/ico-init/internal/model"
	"gorm.io/gorm"
)

// EventMonitor 链上事件索引器: 按区块顺序拉取日志, 持久化后分发给处理器
type EventMonitor struct {
	backend          *chain.Backend
	db               *gorm.DB
	parser           *contract.Parser
	processorManager *processor.ProcessorManager
	interval         time.Duration

	mu        sync.Mutex // 串行化 ProcessNewBlocks
	nextBlock uint64

	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	started atomic.Bool // 监控循环是否已启动
}

// NewEventMonitor 创建事件监控器
func NewEventMonitor(
	backend *chain.Backend,
	db *gorm.DB,
	registry *contract.ProjectRegistry,
	interval time.Duration,
) *EventMonitor {
	ctx, cancel := context.WithCancel(context.Background())
	if interval <= 0 {
		interval = 2 * time.Second
	}

	return &EventMonitor{
		backend:          backend,
		db:               db,
		parser:           contract.NewParser(),
		processorManager: processor.NewProcessorManager(db, registry),
		interval:         interval,
		ctx:              ctx,
		cancel:           cancel,
		done:             make(chan struct{}),
	}
}

// Start 开始监控链上事件
func (m *EventMonitor) Start() error {
	if m.started.Load() {
		return errors.New("monitor already started")
	}
	if err := m.loadLastBlock(); err != nil {
		return fmt.Errorf("failed to load last block: %w", err)
	}

	logger.Info("Starting chain monitor from block %d (interval %s)", m.nextBlock, m.interval)

	m.started.Store(true)
	go m.monitorLoop()
	return nil
}

// Stop 停止监控, 循环已启动时等待其退出. 未启动或启动失败时立即返回
func (m *EventMonitor) Stop() {
	m.cancel()
	if m.started.Load() {
		<-m.done
	}
}

// loadLastBlock 从数据库加载最后处理的区块号. 最后一个区块重新扫描, 已存在的事件会被跳过
func (m *EventMonitor) loadLastBlock() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var lastEvent model.EventModel
	err := m.db.Order("block_num DESC").First(&lastEvent).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			m.nextBlock = 0 // 没有事件记录，从创世区块开始
			logger.Info("No previous events found, starting from block 0")
			return nil
		}
		return err
	}
	m.nextBlock = uint64(lastEvent.BlockNum)
	logger.Info("Loaded last block %d", lastEvent.BlockNum)
	return nil
}

// monitorLoop 监控循环
func (m *EventMonitor) monitorLoop() {
	defer close(m.done)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			logger.Info("Monitor stopped")
			return
		case <-ticker.C:
			if _, err := m.ProcessNewBlocks(m.ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Error processing blocks: %v", err)
			}
		}
	}
}

// ProcessNewBlocks 处理从上次位置到链头的全部区块, 返回新处理的事件数
func (m *EventMonitor) ProcessNewBlocks(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	head, err := m.backend.BlockNumber(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get current block number: %w", err)
	}
	metrics.ChainHead.Set(float64(head))

	if m.nextBlock > head {
		return 0, nil
	}

	logs, err := m.backend.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(m.nextBlock),
		ToBlock:   new(big.Int).SetUint64(head),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to filter logs %d-%d: %w", m.nextBlock, head, err)
	}
	logger.Debug("Found %d logs in blocks %d-%d", len(logs), m.nextBlock, head)

	processed := 0
	for _, l := range logs {
		handled, err := m.processLog(l)
		if err != nil {
			// 失败的区块下次重试
			m.nextBlock = l.BlockNumber
			return processed, fmt.Errorf("block %d log %d: %w", l.BlockNumber, l.Index, err)
		}
		if handled {
			processed++
		}
	}

	m.nextBlock = head + 1
	metrics.IndexedBlock.Set(float64(head))
	return processed, nil
}

// processLog 处理单个日志, 已处理过的事件返回 false
func (m *EventMonitor) processLog(l types.Log) (bool, error) {
	// 检查事件是否已存在
	var existing model.EventModel
	err := m.db.Where("tx_hash = ? AND log_index = ?", l.TxHash.Hex(), int64(l.Index)).First(&existing).Error
	switch {
	case err == nil:
		if existing.Processed {
			return false, nil
		}
		// 之前保存但处理失败的事件重新分发
		eventData, err := m.parser.ParseEvent(l)
		if err != nil {
			return false, fmt.Errorf("failed to parse event: %w", err)
		}
		return true, m.handleEvent(&existing, eventData)
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return false, fmt.Errorf("failed to check if event exists: %w", err)
	}

	// 解析事件数据
	eventData, err := m.parser.ParseEvent(l)
	if err != nil {
		return false, fmt.Errorf("failed to parse event: %w", err)
	}

	// 序列化事件数据
	dataJSON, err := json.Marshal(eventData)
	if err != nil {
		return false, fmt.Errorf("failed to marshal event data: %w", err)
	}

	contractName, _ := eventData["contract"].(string)
	eventType, _ := eventData["eventType"].(string)
	event := model.EventModel{
		ContractAddress: l.Address.Hex(),
		ContractName:    model.ContractKindOf(contractName),
		EventType:       eventType,
		TxHash:          l.TxHash.Hex(),
		BlockNum:        int64(l.BlockNumber),
		LogIndex:        int64(l.Index),
		Data:            string(dataJSON),
		Processed:       false,
	}
	if err := m.db.Create(&event).Error; err != nil {
		return false, fmt.Errorf("failed to save event: %w", err)
	}
	metrics.EventsIndexed.WithLabelValues(event.EventType).Inc()

	logger.Debug("Saved event: %s in block %d", event.EventType, l.BlockNumber)

	if err := m.handleEvent(&event, eventData); err != nil {
		return true, err
	}
	if event.EventType == "TokensPurchased" {
		metrics.TokensPurchased.Inc()
	}
	return true, nil
}

// handleEvent 处理事件
func (m *EventMonitor) handleEvent(event *model.EventModel, eventData map[string]interface{}) error {
	// 使用处理器管理器处理事件
	if err := m.processorManager.ProcessEvent(event, eventData); err != nil {
		logger.Error("Failed to process event %s from contract %s: %v", event.EventType, event.ContractName, err)
		return err
	}

	// 标记事件为已处理
	if err := m.db.Model(&model.EventModel{}).Where("id = ?", event.Id).Update("processed", true).Error; err != nil {
		return fmt.Errorf("failed to mark event as processed: %w", err)
	}
	event.Processed = true

	logger.Debug("Successfully processed event: %s from contract %s", event.EventType, event.ContractName)
	return nil
}

// NextBlock 下一个待处理的区块号
func (m *EventMonitor) NextBlock() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.nextBlock
}

// GetSupportedEventTypes 已注册处理器的事件类型
func (m *EventMonitor) GetSupportedEventTypes() []string {
	return m.processorManager.GetSupportedEventTypes()
}
