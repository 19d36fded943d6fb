package processor

import (
	"fmt"
	"math/big"

	"github.com/rohitroy-github/ico-init/internal/contract"
	"github.com/rohitroy-github/ico-init/internal/logger"
	"github.com/rohitroy-github/ico-init/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProjectProcessor 注册合约事件处理器
type ProjectProcessor struct {
	db       *gorm.DB
	registry *contract.ProjectRegistry
}

// NewProjectProcessor 创建项目事件处理器, registry 用于补全事件中没有的字段
func NewProjectProcessor(db *gorm.DB, registry *contract.ProjectRegistry) *ProjectProcessor {
	return &ProjectProcessor{
		db:       db,
		registry: registry,
	}
}

// Process 处理所有事件类型
func (p *ProjectProcessor) Process(event *model.EventModel, eventData map[string]interface{}) error {
	// 根据事件类型处理不同的事件
	switch event.EventType {
	case "ProjectListed":
		return p.processProjectListed(event, eventData)
	case "ProjectClosedByOwner":
		return p.processProjectClosed(event, eventData)
	case "TokenListed":
		return p.processTokenListed(event, eventData)
	default:
		logger.Warn("Unknown event type: %s", event.EventType)
		return nil
	}
}

// processProjectListed 处理项目上架事件
func (p *ProjectProcessor) processProjectListed(event *model.EventModel, eventData map[string]interface{}) error {
	projectId, err := projectIDArg(eventData)
	if err != nil {
		return err
	}
	name, err := stringArg(eventData, "projectName")
	if err != nil {
		return err
	}
	owner, err := addressArg(eventData, "projectOwner")
	if err != nil {
		return err
	}

	project := model.ProjectModel{
		ProjectId: projectId,
		Name:      name,
		Owner:     owner.Hex(),
		Status:    model.ProjectStatusListed,
		TxHash:    event.TxHash,
		BlockNum:  event.BlockNum,
	}

	// 描述和起止时间不在事件中, 从合约读取
	if p.registry != nil {
		onChain, err := p.registry.Projects(big.NewInt(projectId))
		if err != nil {
			logger.Warn("Failed to read project %d from registry: %v", projectId, err)
		} else {
			project.Description = onChain.Description
			project.OpeningDate = onChain.OpeningDate.String()
			project.ClosingDate = onChain.ClosingDate.String()
		}
	}

	err = p.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "project_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "description", "owner", "opening_date", "closing_date", "tx_hash", "block_num", "updated_at"}),
	}).Create(&project).Error
	if err != nil {
		logger.Error("Failed to save project %d: %v", projectId, err)
		return err
	}

	logger.Info("Indexed project %d (%s) listed by %s", projectId, name, project.Owner)
	return nil
}

// processProjectClosed 处理项目关闭事件
func (p *ProjectProcessor) processProjectClosed(event *model.EventModel, eventData map[string]interface{}) error {
	projectId, err := projectIDArg(eventData)
	if err != nil {
		return err
	}

	return p.updateProject(projectId, map[string]interface{}{
		"status": model.ProjectStatusClosed,
	})
}

// processTokenListed 处理代币发行事件
func (p *ProjectProcessor) processTokenListed(event *model.EventModel, eventData map[string]interface{}) error {
	projectId, err := projectIDArg(eventData)
	if err != nil {
		return err
	}

	updates := map[string]interface{}{
		"status": model.ProjectStatusTokenMinted,
	}

	// TokenListed 不携带合约地址, 优先读合约, 其次用同一交易中的 TokenSaleCreated 投影
	if p.registry != nil {
		if onChain, err := p.registry.Projects(big.NewInt(projectId)); err == nil {
			updates["token_contract"] = onChain.TokenContract.Hex()
		} else {
			logger.Warn("Failed to read project %d from registry: %v", projectId, err)
		}
	}
	if _, ok := updates["token_contract"]; !ok {
		var token model.TokenModel
		if err := p.db.Where("project_id = ? AND tx_hash = ?", projectId, event.TxHash).First(&token).Error; err == nil {
			updates["token_contract"] = token.Address
		}
	}

	return p.updateProject(projectId, updates)
}

func (p *ProjectProcessor) updateProject(projectId int64, updates map[string]interface{}) error {
	result := p.db.Model(&model.ProjectModel{}).Where("project_id = ?", projectId).Updates(updates)
	if result.Error != nil {
		logger.Error("Failed to update project %d: %v", projectId, result.Error)
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("project %d not indexed", projectId)
	}

	logger.Info("Updated project %d: %v", projectId, updates)
	return nil
}

// GetEventTypes 获取支持的事件类型
func (p *ProjectProcessor) GetEventTypes() []string {
	return []string{"ProjectListed", "ProjectClosedByOwner", "TokenListed"}
}
