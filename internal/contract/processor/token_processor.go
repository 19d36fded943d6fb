package processor

import (
	"fmt"
	"math/big"

	"github.com/rohitroy-github/ico-init/internal/logger"
	"github.com/rohitroy-github/ico-init/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TokenProcessor 代币销售合约事件处理器
type TokenProcessor struct {
	db *gorm.DB
}

// NewTokenProcessor 创建代币事件处理器
func NewTokenProcessor(db *gorm.DB) *TokenProcessor {
	return &TokenProcessor{
		db: db,
	}
}

// Process 处理所有事件类型
func (p *TokenProcessor) Process(event *model.EventModel, eventData map[string]interface{}) error {
	switch event.EventType {
	case "TokenSaleCreated":
		return p.processTokenSaleCreated(event, eventData)
	case "TokensPurchased":
		return p.processTokensPurchased(event, eventData)
	case "TokenPriceUpdated":
		return p.processTokenPriceUpdated(event, eventData)
	default:
		logger.Warn("Unknown event type: %s", event.EventType)
		return nil
	}
}

// processTokenSaleCreated 处理代币销售合约创建事件
func (p *TokenProcessor) processTokenSaleCreated(event *model.EventModel, eventData map[string]interface{}) error {
	projectId, err := projectIDArg(eventData)
	if err != nil {
		return err
	}
	initialOwner, err := addressArg(eventData, "initialOwner")
	if err != nil {
		return err
	}
	name, err := stringArg(eventData, "name")
	if err != nil {
		return err
	}
	symbol, err := stringArg(eventData, "symbol")
	if err != nil {
		return err
	}
	totalSupply, err := bigArg(eventData, "totalSupply")
	if err != nil {
		return err
	}
	tokenPrice, err := bigArg(eventData, "tokenPrice")
	if err != nil {
		return err
	}

	token := model.TokenModel{
		Address:      event.ContractAddress,
		ProjectId:    projectId,
		Name:         name,
		Symbol:       symbol,
		InitialOwner: initialOwner.Hex(),
		TotalSupply:  totalSupply.String(),
		TokenPrice:   tokenPrice.String(),
		Sold:         "0",
		TxHash:       event.TxHash,
		BlockNum:     event.BlockNum,
	}
	if err := p.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&token).Error; err != nil {
		logger.Error("Failed to save token %s: %v", token.Address, err)
		return err
	}

	logger.Info("Indexed token %s (%s) for project %d", symbol, token.Address, projectId)
	return nil
}

// processTokensPurchased 记录购买并按购买记录重算销量
func (p *TokenProcessor) processTokensPurchased(event *model.EventModel, eventData map[string]interface{}) error {
	buyer, err := addressArg(eventData, "buyer")
	if err != nil {
		return err
	}
	amount, err := bigArg(eventData, "amount")
	if err != nil {
		return err
	}
	cost, err := bigArg(eventData, "cost")
	if err != nil {
		return err
	}
	timestamp, err := bigArg(eventData, "timestamp")
	if err != nil {
		return err
	}

	return p.db.Transaction(func(tx *gorm.DB) error {
		var token model.TokenModel
		if err := tx.Where("address = ?", event.ContractAddress).First(&token).Error; err != nil {
			return fmt.Errorf("token %s not indexed: %w", event.ContractAddress, err)
		}

		record := model.PurchaseRecordModel{
			TokenAddress: token.Address,
			ProjectId:    token.ProjectId,
			Buyer:        buyer.Hex(),
			Amount:       amount.String(),
			Cost:         cost.String(),
			Timestamp:    timestamp.Int64(),
			TxHash:       event.TxHash,
			LogIndex:     event.LogIndex,
			BlockNum:     event.BlockNum,
		}
		result := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&record)
		if result.Error != nil {
			return fmt.Errorf("failed to create purchase record: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			logger.Debug("Purchase %s:%d already recorded", event.TxHash, event.LogIndex)
		}

		if _, _, err := RefreshTokenSales(tx, token.Address); err != nil {
			return err
		}

		logger.Info("Processed purchase: %s %s by %s for %s wei", amount, token.Symbol, record.Buyer, cost)
		return nil
	})
}

// RefreshTokenSales 由 purchase_record 重算代币的累计销量与购买次数并写回, 返回重算结果.
// 同一笔购买无论由索引器还是对账任务写入都只计一次
func RefreshTokenSales(tx *gorm.DB, tokenAddress string) (*big.Int, int64, error) {
	var amounts []string
	if err := tx.Model(&model.PurchaseRecordModel{}).
		Where("token_address = ?", tokenAddress).
		Pluck("amount", &amounts).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to load purchase amounts of %s: %w", tokenAddress, err)
	}

	sold := new(big.Int)
	for _, a := range amounts {
		v, ok := new(big.Int).SetString(a, 10)
		if !ok {
			return nil, 0, fmt.Errorf("invalid purchase amount %q for token %s", a, tokenAddress)
		}
		sold.Add(sold, v)
	}
	count := int64(len(amounts))

	if err := tx.Model(&model.TokenModel{}).Where("address = ?", tokenAddress).Updates(map[string]interface{}{
		"sold":           sold.String(),
		"purchase_count": count,
	}).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to update token sales: %w", err)
	}
	return sold, count, nil
}

// processTokenPriceUpdated 处理调价事件
func (p *TokenProcessor) processTokenPriceUpdated(event *model.EventModel, eventData map[string]interface{}) error {
	price, err := bigArg(eventData, "tokenPrice")
	if err != nil {
		return err
	}

	result := p.db.Model(&model.TokenModel{}).Where("address = ?", event.ContractAddress).Update("token_price", price.String())
	if result.Error != nil {
		logger.Error("Failed to update token price: %v", result.Error)
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("token %s not indexed", event.ContractAddress)
	}

	logger.Info("Updated token %s price to %s wei", event.ContractAddress, price)
	return nil
}

// GetEventTypes 获取支持的事件类型
func (p *TokenProcessor) GetEventTypes() []string {
	return []string{"TokenSaleCreated", "TokensPurchased", "TokenPriceUpdated"}
}
