package task

import (
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rohitroy-github/ico-init/internal/config"
	"github.com/rohitroy-github/ico-init/internal/logger"
	"github.com/rohitroy-github/ico-init/internal/metrics"
	"github.com/rohitroy-github/ico-init/internal/model"
	"gorm.io/gorm"
)

// StatsJob 刷新项目状态指标
type StatsJob struct {
	db     *gorm.DB
	config *config.Config
}

// NewStatsJob 创建统计任务
func NewStatsJob(db *gorm.DB, cfg *config.Config) *StatsJob {
	return &StatsJob{
		db:     db,
		config: cfg,
	}
}

// GetName 获取任务名称
func (j *StatsJob) GetName() string {
	return "project_stats_updater"
}

// GetSchedule 获取调度配置
func (j *StatsJob) GetSchedule() gocron.JobDefinition {
	return gocron.DurationJob(time.Duration(j.config.Task.Interval) * time.Second)
}

// Execute 执行任务
func (j *StatsJob) Execute() {
	counts, err := j.Run()
	if err != nil {
		logger.Error("Stats task failed: %v", err)
		return
	}
	logger.Debug("Project stats refreshed: %v", counts)
}

// Run 统计各状态项目数量并写入指标
func (j *StatsJob) Run() (map[model.ProjectStatus]int64, error) {
	counts := make(map[model.ProjectStatus]int64, len(model.ProjectStatuses))
	for _, status := range model.ProjectStatuses {
		var count int64
		if err := j.db.Model(&model.ProjectModel{}).Where("status = ?", status).Count(&count).Error; err != nil {
			return nil, fmt.Errorf("failed to count %s projects: %w", status, err)
		}
		counts[status] = count
		metrics.ProjectsByStatus.WithLabelValues(string(status)).Set(float64(count))
	}
	return counts, nil
}
