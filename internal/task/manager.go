package task

import (
	"fmt"

	"github.com/go-co-op/gocron/v2"
	"github.com/rohitroy-github/ico-init/internal/chain"
	"github.com/rohitroy-github/ico-init/internal/config"
	"github.com/rohitroy-github/ico-init/internal/contract"
	"github.com/rohitroy-github/ico-init/internal/logger"
	"gorm.io/gorm"
)

// Job 定时任务
type Job interface {
	GetName() string
	GetSchedule() gocron.JobDefinition
	Execute()
}

// Manager 任务管理器
type Manager struct {
	scheduler gocron.Scheduler
	db        *gorm.DB
	backend   *chain.Backend
	registry  *contract.ProjectRegistry
	config    *config.Config
}

// NewManager 创建新的任务管理器
func NewManager(db *gorm.DB, backend *chain.Backend, registry *contract.ProjectRegistry, cfg *config.Config) (*Manager, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	return &Manager{
		scheduler: s,
		db:        db,
		backend:   backend,
		registry:  registry,
		config:    cfg,
	}, nil
}

// Start 注册所有任务并启动调度器
func (m *Manager) Start() error {
	if err := m.RegisterJobs(); err != nil {
		return err
	}

	m.scheduler.Start()

	logger.Info("Task manager started with %d jobs", len(m.scheduler.Jobs()))
	return nil
}

// RegisterJobs 注册所有任务
func (m *Manager) RegisterJobs() error {
	// 投影与链上状态对账
	if err := m.RegisterJob(NewReconcileJob(m.db, m.backend, m.registry, m.config)); err != nil {
		return err
	}
	// 项目状态指标
	return m.RegisterJob(NewStatsJob(m.db, m.config))
}

// RegisterJob 以单例模式注册任务, 上一次未结束时顺延
func (m *Manager) RegisterJob(job Job) error {
	_, err := m.scheduler.NewJob(
		job.GetSchedule(),
		gocron.NewTask(job.Execute),
		gocron.WithName(job.GetName()),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to register job %s: %w", job.GetName(), err)
	}
	logger.Info("Registered job %s", job.GetName())
	return nil
}

// Stop 停止任务管理器
func (m *Manager) Stop() {
	if err := m.scheduler.Shutdown(); err != nil {
		logger.Error("Failed to shutdown scheduler: %v", err)
	}
	logger.Info("Task manager stopped")
}
