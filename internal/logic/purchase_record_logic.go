package logic

import (
	"fmt"
	"math/big"

	"github.com/rohitroy-github/ico-init/internal/model"
	"gorm.io/gorm"
)

// PurchaseRecordLogic 购买记录业务逻辑
type PurchaseRecordLogic struct {
	db *gorm.DB
}

// NewPurchaseRecordLogic 创建购买记录业务逻辑
func NewPurchaseRecordLogic(db *gorm.DB) *PurchaseRecordLogic {
	return &PurchaseRecordLogic{db: db}
}

// GetProjectPurchaseRecords 获取项目购买记录
func (c *PurchaseRecordLogic) GetProjectPurchaseRecords(projectId int64, page, pageSize int) ([]model.PurchaseRecordModel, int64, error) {
	return c.page(c.db.Where("project_id = ?", projectId), page, pageSize)
}

// GetBuyerPurchaseRecords 获取买家购买记录
func (c *PurchaseRecordLogic) GetBuyerPurchaseRecords(buyer string, page, pageSize int) ([]model.PurchaseRecordModel, int64, error) {
	addr, err := ParseAddress(buyer)
	if err != nil {
		return nil, 0, err
	}
	return c.page(c.db.Where("buyer = ?", addr.Hex()), page, pageSize)
}

func (c *PurchaseRecordLogic) page(query *gorm.DB, page, pageSize int) ([]model.PurchaseRecordModel, int64, error) {
	var records []model.PurchaseRecordModel
	var total int64

	page, pageSize = normalizePage(page, pageSize)

	// 获取总数
	if err := query.Model(&model.PurchaseRecordModel{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("获取购买记录总数失败: %w", err)
	}

	// 获取数据
	offset := (page - 1) * pageSize
	if err := query.Offset(offset).
		Limit(pageSize).
		Order("block_num DESC, log_index DESC").
		Find(&records).Error; err != nil {
		return nil, 0, fmt.Errorf("获取购买记录失败: %w", err)
	}

	return records, total, nil
}

// PurchaseStats 项目销售统计
type PurchaseStats struct {
	ProjectId     int64  `json:"project_id"`
	PurchaseCount int64  `json:"purchase_count"`
	BuyerCount    int64  `json:"buyer_count"`
	TokensSold    string `json:"tokens_sold"`
	TotalRaised   string `json:"total_raised"`
}

// GetProjectPurchaseStats 统计项目销售情况, 数额在内存中以大整数累加
func (c *PurchaseRecordLogic) GetProjectPurchaseStats(projectId int64) (*PurchaseStats, error) {
	var records []model.PurchaseRecordModel
	if err := c.db.Select("buyer", "amount", "cost").
		Where("project_id = ?", projectId).
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("获取购买记录失败: %w", err)
	}

	sold := new(big.Int)
	raised := new(big.Int)
	buyers := make(map[string]struct{})
	for _, record := range records {
		if v, ok := new(big.Int).SetString(record.Amount, 10); ok {
			sold.Add(sold, v)
		}
		if v, ok := new(big.Int).SetString(record.Cost, 10); ok {
			raised.Add(raised, v)
		}
		buyers[record.Buyer] = struct{}{}
	}

	return &PurchaseStats{
		ProjectId:     projectId,
		PurchaseCount: int64(len(records)),
		BuyerCount:    int64(len(buyers)),
		TokensSold:    sold.String(),
		TotalRaised:   raised.String(),
	}, nil
}
