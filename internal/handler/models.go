package handler

import (
	"encoding/json"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/rohitroy-github/ico-init/internal/contract"
	"github.com/rohitroy-github/ico-init/internal/logic"
	"github.com/rohitroy-github/ico-init/internal/model"
)

// 通用响应结构
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

// 分页信息结构
type Pagination struct {
	Page      int   `json:"page"`
	PageSize  int   `json:"pageSize"`
	Total     int64 `json:"total"`
	TotalPage int64 `json:"totalPage"`
}

func newPagination(page, pageSize int, total int64) Pagination {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return Pagination{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: (total + int64(pageSize) - 1) / int64(pageSize),
	}
}

// 请求模型, 数额均为十进制 wei 字符串

// ListProjectRequest 上架项目请求
type ListProjectRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	OpeningDate string `json:"openingDate"`
	ClosingDate string `json:"closingDate"`
	Value       string `json:"value"`
}

// CreateTokenRequest 发行代币请求
type CreateTokenRequest struct {
	Name        string `json:"name" binding:"required"`
	Symbol      string `json:"symbol" binding:"required"`
	TotalSupply string `json:"totalSupply" binding:"required"`
	TokenPrice  string `json:"tokenPrice" binding:"required"`
}

// BuyTokensRequest 购买代币请求
type BuyTokensRequest struct {
	Amount string `json:"amount" binding:"required"`
	Value  string `json:"value"`
}

// UpdateTokenPriceRequest 调价请求
type UpdateTokenPriceRequest struct {
	TokenPrice string `json:"tokenPrice" binding:"required"`
}

// TransferRequest 转账或授权请求
type TransferRequest struct {
	To    string `json:"to" binding:"required"`
	Value string `json:"value" binding:"required"`
}

// UpdateListingFeeRequest 修改上架费请求
type UpdateListingFeeRequest struct {
	ListingFee string `json:"listingFee" binding:"required"`
}

// 链上交易响应模型

// ReceiptResponse 交易回执
type ReceiptResponse struct {
	TxHash          string `json:"txHash"`
	BlockNumber     uint64 `json:"blockNumber"`
	BlockHash       string `json:"blockHash"`
	ContractAddress string `json:"contractAddress,omitempty"`
	Logs            int    `json:"logs"`
}

// ListProjectResponse 上架结果
type ListProjectResponse struct {
	ProjectID string          `json:"projectId"`
	Receipt   ReceiptResponse `json:"receipt"`
}

// CreateTokenResponse 发行代币结果
type CreateTokenResponse struct {
	TokenAddress string          `json:"tokenAddress"`
	Receipt      ReceiptResponse `json:"receipt"`
}

// 注册合约相关响应模型

// RegistryResponse 注册合约概览
type RegistryResponse struct {
	Address      string `json:"address"`
	SuperOwner   string `json:"superOwner"`
	ListingFee   string `json:"listingFee"`
	Balance      string `json:"balance"`
	ProjectCount uint64 `json:"projectCount"`
}

// OnChainProjectResponse 链上项目记录
type OnChainProjectResponse struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	Owner         string `json:"owner"`
	OpeningDate   string `json:"openingDate"`
	ClosingDate   string `json:"closingDate"`
	Status        string `json:"status"`
	TokenContract string `json:"tokenContract"`
}

// ProjectDetailsResponse 项目与代币聚合信息
type ProjectDetailsResponse struct {
	ProjectName        string `json:"projectName"`
	ProjectDescription string `json:"projectDescription"`
	ProjectOwner       string `json:"projectOwner"`
	TokenContract      string `json:"tokenContract"`
	TokenName          string `json:"tokenName"`
	TokenSymbol        string `json:"tokenSymbol"`
	TokenPrice         string `json:"tokenPrice"`
}

// ProjectStatusResponse 项目状态标签
type ProjectStatusResponse struct {
	ProjectID string `json:"projectId"`
	Status    string `json:"status"`
}

// 项目投影相关响应模型

// ProjectResponse 项目投影响应模型
type ProjectResponse struct {
	ID            uint      `json:"id"`
	ProjectID     int64     `json:"projectId"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	Owner         string    `json:"owner"`
	OpeningDate   string    `json:"openingDate"`
	ClosingDate   string    `json:"closingDate"`
	Status        string    `json:"status"`
	TokenContract string    `json:"tokenContract"`
	TxHash        string    `json:"txHash"`
	BlockNum      int64     `json:"blockNum"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// GetProjectsResponse 获取项目列表响应
type GetProjectsResponse struct {
	Projects   []ProjectResponse `json:"projects"`
	Pagination Pagination        `json:"pagination"`
}

// 代币相关响应模型

// TokenResponse 代币链上状态
type TokenResponse struct {
	Address         string                `json:"address"`
	Name            string                `json:"name"`
	Symbol          string                `json:"symbol"`
	Decimals        uint8                 `json:"decimals"`
	TotalSupply     string                `json:"totalSupply"`
	InitialOwner    string                `json:"initialOwner"`
	ProjectID       string                `json:"projectId"`
	TokenPrice      string                `json:"tokenPrice"`
	Available       string                `json:"available"`
	ContractBalance string                `json:"contractBalance"`
	Indexed         *IndexedTokenResponse `json:"indexed,omitempty"`
}

// IndexedTokenResponse 代币投影中的销售汇总
type IndexedTokenResponse struct {
	Sold          string `json:"sold"`
	PurchaseCount int64  `json:"purchaseCount"`
	BlockNum      int64  `json:"blockNum"`
}

// BalanceResponse 持有量
type BalanceResponse struct {
	Token   string `json:"token"`
	Holder  string `json:"holder"`
	Balance string `json:"balance"`
}

// TransactionResponse 合约内购买流水
type TransactionResponse struct {
	To        string `json:"to"`
	Amount    string `json:"amount"`
	Timestamp uint64 `json:"timestamp"`
}

// 购买记录相关响应模型

// PurchaseRecordResponse 购买记录响应模型
type PurchaseRecordResponse struct {
	ID           uint      `json:"id"`
	ProjectID    int64     `json:"projectId"`
	TokenAddress string    `json:"tokenAddress"`
	Buyer        string    `json:"buyer"`
	Amount       string    `json:"amount"`
	Cost         string    `json:"cost"`
	Timestamp    int64     `json:"timestamp"`
	TxHash       string    `json:"txHash"`
	BlockNum     int64     `json:"blockNum"`
	CreatedAt    time.Time `json:"createdAt"`
}

// GetPurchaseRecordsResponse 获取购买记录响应
type GetPurchaseRecordsResponse struct {
	Records    []PurchaseRecordResponse `json:"records"`
	Pagination Pagination               `json:"pagination"`
}

// 事件相关响应模型

// EventResponse 事件响应模型
type EventResponse struct {
	ID              uint            `json:"id"`
	ContractAddress string          `json:"contractAddress"`
	ContractName    string          `json:"contractName"`
	EventType       string          `json:"eventType"`
	TxHash          string          `json:"txHash"`
	BlockNum        int64           `json:"blockNum"`
	LogIndex        int64           `json:"logIndex"`
	Data            json.RawMessage `json:"data"`
	Processed       bool            `json:"processed"`
}

// GetEventsResponse 获取事件列表响应
type GetEventsResponse struct {
	Events     []EventResponse `json:"events"`
	Pagination Pagination      `json:"pagination"`
}

// AccountResponse 开发账户
type AccountResponse struct {
	Address string `json:"address"`
	Balance string `json:"balance"`
	Nonce   uint64 `json:"nonce"`
}

// 转换函数

func bigString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

// ToReceiptResponse 转换交易回执
func ToReceiptResponse(receipt *types.Receipt) ReceiptResponse {
	if receipt == nil {
		return ReceiptResponse{}
	}
	resp := ReceiptResponse{
		TxHash:    receipt.TxHash.Hex(),
		BlockHash: receipt.BlockHash.Hex(),
		Logs:      len(receipt.Logs),
	}
	if receipt.BlockNumber != nil {
		resp.BlockNumber = receipt.BlockNumber.Uint64()
	}
	if receipt.ContractAddress != (common.Address{}) {
		resp.ContractAddress = receipt.ContractAddress.Hex()
	}
	return resp
}

// ToRegistryResponse 转换注册合约概览
func ToRegistryResponse(info *logic.RegistryInfo) RegistryResponse {
	return RegistryResponse{
		Address:      info.Address.Hex(),
		SuperOwner:   info.SuperOwner.Hex(),
		ListingFee:   bigString(info.ListingFee),
		Balance:      bigString(info.Balance),
		ProjectCount: info.ProjectCount,
	}
}

// ToOnChainProjectResponse 转换链上项目记录
func ToOnChainProjectResponse(project *contract.Project) OnChainProjectResponse {
	return OnChainProjectResponse{
		ID:            bigString(project.ID),
		Name:          project.Name,
		Description:   project.Description,
		Owner:         project.Owner.Hex(),
		OpeningDate:   bigString(project.OpeningDate),
		ClosingDate:   bigString(project.ClosingDate),
		Status:        project.Status.Label(),
		TokenContract: project.TokenContract.Hex(),
	}
}

// ToProjectDetailsResponse 转换项目聚合信息
func ToProjectDetailsResponse(details *contract.ProjectDetails) ProjectDetailsResponse {
	return ProjectDetailsResponse{
		ProjectName:        details.ProjectName,
		ProjectDescription: details.ProjectDescription,
		ProjectOwner:       details.ProjectOwner.Hex(),
		TokenContract:      details.TokenContract.Hex(),
		TokenName:          details.TokenName,
		TokenSymbol:        details.TokenSymbol,
		TokenPrice:         bigString(details.TokenPrice),
	}
}

// ToProjectResponse 将数据库模型转换为响应模型
func ToProjectResponse(project *model.ProjectModel) ProjectResponse {
	return ProjectResponse{
		ID:            uint(project.Id),
		ProjectID:     project.ProjectId,
		Name:          project.Name,
		Description:   project.Description,
		Owner:         project.Owner,
		OpeningDate:   project.OpeningDate,
		ClosingDate:   project.ClosingDate,
		Status:        string(project.Status),
		TokenContract: project.TokenContract,
		TxHash:        project.TxHash,
		BlockNum:      project.BlockNum,
		CreatedAt:     project.CreatedAt,
		UpdatedAt:     project.UpdatedAt,
	}
}

// ToProjectResponseList 将数据库模型列表转换为响应模型列表
func ToProjectResponseList(projects []model.ProjectModel) []ProjectResponse {
	result := make([]ProjectResponse, len(projects))
	for i, project := range projects {
		result[i] = ToProjectResponse(&project)
	}
	return result
}

// ToTokenResponse 转换代币链上状态, indexed 可为 nil
func ToTokenResponse(info *logic.TokenInfo, indexed *model.TokenModel) TokenResponse {
	resp := TokenResponse{
		Address:         info.Address.Hex(),
		Name:            info.Name,
		Symbol:          info.Symbol,
		Decimals:        info.Decimals,
		TotalSupply:     bigString(info.TotalSupply),
		InitialOwner:    info.InitialOwner.Hex(),
		ProjectID:       bigString(info.ProjectID),
		TokenPrice:      bigString(info.TokenPrice),
		Available:       bigString(info.OwnerBalance),
		ContractBalance: bigString(info.ContractBalance),
	}
	if indexed != nil {
		resp.Indexed = &IndexedTokenResponse{
			Sold:          indexed.Sold,
			PurchaseCount: indexed.PurchaseCount,
			BlockNum:      indexed.BlockNum,
		}
	}
	return resp
}

// ToTransactionResponseList 转换合约内购买流水
func ToTransactionResponseList(transactions []contract.Transaction) []TransactionResponse {
	result := make([]TransactionResponse, len(transactions))
	for i, tx := range transactions {
		result[i] = TransactionResponse{
			To:        tx.To.Hex(),
			Amount:    bigString(tx.Amount),
			Timestamp: tx.Timestamp,
		}
	}
	return result
}

// ToPurchaseRecordResponse 将购买记录数据库模型转换为响应模型
func ToPurchaseRecordResponse(record *model.PurchaseRecordModel) PurchaseRecordResponse {
	return PurchaseRecordResponse{
		ID:           uint(record.Id),
		ProjectID:    record.ProjectId,
		TokenAddress: record.TokenAddress,
		Buyer:        record.Buyer,
		Amount:       record.Amount,
		Cost:         record.Cost,
		Timestamp:    record.Timestamp,
		TxHash:       record.TxHash,
		BlockNum:     record.BlockNum,
		CreatedAt:    record.CreatedAt,
	}
}

// ToPurchaseRecordResponseList 将购买记录数据库模型列表转换为响应模型列表
func ToPurchaseRecordResponseList(records []model.PurchaseRecordModel) []PurchaseRecordResponse {
	result := make([]PurchaseRecordResponse, len(records))
	for i, record := range records {
		result[i] = ToPurchaseRecordResponse(&record)
	}
	return result
}

// ToEventResponse 将事件数据库模型转换为响应模型
func ToEventResponse(event *model.EventModel) EventResponse {
	data := json.RawMessage(event.Data)
	if !json.Valid(data) {
		data = json.RawMessage("null")
	}
	return EventResponse{
		ID:              uint(event.Id),
		ContractAddress: event.ContractAddress,
		ContractName:    string(event.ContractName),
		EventType:       event.EventType,
		TxHash:          event.TxHash,
		BlockNum:        event.BlockNum,
		LogIndex:        event.LogIndex,
		Data:            data,
		Processed:       event.Processed,
	}
}

// ToEventResponseList 将事件数据库模型列表转换为响应模型列表
func ToEventResponseList(events []model.EventModel) []EventResponse {
	result := make([]EventResponse, len(events))
	for i, event := range events {
		result[i] = ToEventResponse(&event)
	}
	return result
}

// ToAccountResponseList 转换账户列表
func ToAccountResponseList(accounts []logic.AccountInfo) []AccountResponse {
	result := make([]AccountResponse, len(accounts))
	for i, account := range accounts {
		result[i] = AccountResponse{
			Address: account.Address.Hex(),
			Balance: bigString(account.Balance),
			Nonce:   account.Nonce,
		}
	}
	return result
}
