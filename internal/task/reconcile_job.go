package task

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/go-co-op/gocron/v2"
	"github.com/panjf2000/ants/v2"
	"github.com/rohitroy-github/ico-init/internal/chain"
	"github.com/rohitroy-github/ico-init/internal/config"
	"github.com/rohitroy-github/ico-init/internal/contract"
	"github.com/rohitroy-github/ico-init/internal/contract/processor"
	"github.com/rohitroy-github/ico-init/internal/logger"
	"github.com/rohitroy-github/ico-init/internal/metrics"
	"github.com/rohitroy-github/ico-init/internal/model"
	"gorm.io/gorm"
)

// ReconcileJob 对比投影与链上状态并修复偏差.
// 代币: 价格, 缺失的购买记录; 项目: 状态与代币地址
type ReconcileJob struct {
	db             *gorm.DB
	backend        *chain.Backend
	registry       *contract.ProjectRegistry
	config         *config.Config
	parser         *contract.Parser
	tokenProcessor *processor.TokenProcessor
}

// NewReconcileJob 创建对账任务
func NewReconcileJob(db *gorm.DB, backend *chain.Backend, registry *contract.ProjectRegistry, cfg *config.Config) *ReconcileJob {
	return &ReconcileJob{
		db:             db,
		backend:        backend,
		registry:       registry,
		config:         cfg,
		parser:         contract.NewParser(),
		tokenProcessor: processor.NewTokenProcessor(db),
	}
}

// GetName 获取任务名称
func (j *ReconcileJob) GetName() string {
	return "projection_reconciler"
}

// GetSchedule 获取调度配置
func (j *ReconcileJob) GetSchedule() gocron.JobDefinition {
	return gocron.DurationJob(time.Duration(j.config.Task.Interval) * time.Second)
}

// Execute 执行任务
func (j *ReconcileJob) Execute() {
	logger.Info("Starting reconcile task")

	repaired, err := j.Run()
	if err != nil {
		logger.Error("Reconcile task failed: %v", err)
		return
	}

	logger.Info("Reconcile task completed. Repaired %d rows", repaired)
}

// Run 对账一次, 返回修复的行数
func (j *ReconcileJob) Run() (int, error) {
	var tokens []model.TokenModel
	if err := j.db.Find(&tokens).Error; err != nil {
		return 0, fmt.Errorf("failed to fetch tokens: %w", err)
	}
	var projects []model.ProjectModel
	if err := j.db.Find(&projects).Error; err != nil {
		return 0, fmt.Errorf("failed to fetch projects: %w", err)
	}
	if len(tokens)+len(projects) == 0 {
		return 0, nil
	}

	workers := j.config.Task.Workers
	if workers <= 0 {
		workers = 1
	}
	pool, err := ants.NewPool(workers)
	if err != nil {
		return 0, fmt.Errorf("failed to create pool with %d workers: %w", workers, err)
	}
	defer pool.Release()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		repaired int
	)
	submit := func(fn func() bool) {
		wg.Add(1)
		err := pool.Submit(func() {
			defer wg.Done()
			if fn() {
				mu.Lock()
				repaired++
				mu.Unlock()
				metrics.ReconcileRepairs.Inc()
			}
		})
		if err != nil {
			wg.Done()
			logger.Error("Failed to submit task to pool: %v", err)
		}
	}

	for i := range tokens {
		token := tokens[i]
		submit(func() bool { return j.reconcileToken(&token) })
	}
	for i := range projects {
		project := projects[i]
		submit(func() bool { return j.reconcileProject(&project) })
	}

	wg.Wait()
	return repaired, nil
}

// reconcileToken 以合约为准修正代币投影. 价格直接覆盖; 销量与购买次数只从购买记录重算,
// 缺失的购买记录按链上 TokensPurchased 日志补齐, 与索引器写入的记录同键去重
func (j *ReconcileJob) reconcileToken(token *model.TokenModel) bool {
	address := common.HexToAddress(token.Address)
	sale, err := contract.TokenSaleAt(j.backend, address)
	if err != nil {
		logger.Warn("Token %s has no contract on chain: %v", token.Address, err)
		return false
	}

	repaired := false
	if price := sale.TokenPrice().String(); price != token.TokenPrice {
		if err := j.db.Model(&model.TokenModel{}).Where("id = ?", token.Id).Update("token_price", price).Error; err != nil {
			logger.Error("Failed to repair token %s price: %v", token.Address, err)
			return false
		}
		logger.Warn("Repaired token %s price: %s -> %s", token.Address, token.TokenPrice, price)
		repaired = true
	}

	var recorded int64
	if err := j.db.Model(&model.PurchaseRecordModel{}).Where("token_address = ?", token.Address).Count(&recorded).Error; err != nil {
		logger.Error("Failed to count purchases of token %s: %v", token.Address, err)
		return repaired
	}
	if onChain := int64(len(sale.GetAllTransactions())); recorded < onChain {
		backfilled, err := j.backfillPurchases(address)
		if err != nil {
			logger.Error("Failed to backfill purchases of token %s: %v", token.Address, err)
			return repaired
		}
		logger.Warn("Backfilled %d of %d missing purchases for token %s", backfilled, onChain-recorded, token.Address)
	}

	sold, count, err := processor.RefreshTokenSales(j.db, token.Address)
	if err != nil {
		logger.Error("Failed to refresh token %s sales: %v", token.Address, err)
		return repaired
	}
	if sold.String() != token.Sold || count != token.PurchaseCount {
		logger.Warn("Repaired token %s sales: sold %s -> %s, purchases %d -> %d",
			token.Address, token.Sold, sold, token.PurchaseCount, count)
		repaired = true
	}
	return repaired
}

// backfillPurchases 按链上日志写入缺失的购买记录, 返回新写入的条数
func (j *ReconcileJob) backfillPurchases(address common.Address) (int, error) {
	purchased, err := contract.EventID(contract.TokenSaleName, "TokensPurchased")
	if err != nil {
		return 0, err
	}
	logs, err := j.backend.FilterLogs(context.Background(), ethereum.FilterQuery{
		Addresses: []common.Address{address},
		Topics:    [][]common.Hash{{purchased}},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to filter purchase logs: %w", err)
	}

	backfilled := 0
	for _, l := range logs {
		var existing int64
		if err := j.db.Model(&model.PurchaseRecordModel{}).
			Where("tx_hash = ? AND log_index = ?", l.TxHash.Hex(), int64(l.Index)).
			Count(&existing).Error; err != nil {
			return backfilled, err
		}
		if existing > 0 {
			continue
		}

		eventData, err := j.parser.ParseEvent(l)
		if err != nil {
			return backfilled, fmt.Errorf("failed to parse purchase log: %w", err)
		}
		event := &model.EventModel{
			ContractAddress: l.Address.Hex(),
			ContractName:    model.ContractKindTokenSale,
			EventType:       "TokensPurchased",
			TxHash:          l.TxHash.Hex(),
			BlockNum:        int64(l.BlockNumber),
			LogIndex:        int64(l.Index),
		}
		if err := j.tokenProcessor.Process(event, eventData); err != nil {
			return backfilled, err
		}
		backfilled++
	}
	return backfilled, nil
}

// reconcileProject 以注册合约为准修正项目状态
func (j *ReconcileJob) reconcileProject(project *model.ProjectModel) bool {
	onChain, err := j.registry.Projects(big.NewInt(project.ProjectId))
	if err != nil {
		logger.Warn("Project %d not found on chain: %v", project.ProjectId, err)
		return false
	}

	updates := map[string]interface{}{}
	if status := statusFromChain(onChain.Status); status != project.Status {
		updates["status"] = status
	}
	tokenContract := ""
	if onChain.TokenContract != (common.Address{}) {
		tokenContract = onChain.TokenContract.Hex()
	}
	if tokenContract != project.TokenContract {
		updates["token_contract"] = tokenContract
	}
	if len(updates) == 0 {
		return false
	}

	if err := j.db.Model(&model.ProjectModel{}).Where("id = ?", project.Id).Updates(updates).Error; err != nil {
		logger.Error("Failed to repair project %d: %v", project.ProjectId, err)
		return false
	}
	logger.Warn("Repaired project %d projection: %v", project.ProjectId, updates)
	return true
}

func statusFromChain(status contract.ProjectStatus) model.ProjectStatus {
	switch status {
	case contract.StatusClosed:
		return model.ProjectStatusClosed
	case contract.StatusTokenMinted:
		return model.ProjectStatusTokenMinted
	default:
		return model.ProjectStatusListed
	}
}
