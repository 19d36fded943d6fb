package logic

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/rohitroy-github/ico-init/internal/chain"
	"github.com/rohitroy-github/ico-init/internal/contract"
	"github.com/rohitroy-github/ico-init/internal/model"
	"gorm.io/gorm"
)

// ProjectLogic 项目注册相关业务逻辑: 写操作直接调用合约, 列表查询读投影
type ProjectLogic struct {
	db       *gorm.DB
	registry *contract.ProjectRegistry
}

// NewProjectLogic 创建项目业务逻辑
func NewProjectLogic(db *gorm.DB, registry *contract.ProjectRegistry) *ProjectLogic {
	return &ProjectLogic{db: db, registry: registry}
}

// ListProjectRequest 上架参数
type ListProjectRequest struct {
	Name        string
	Description string
	OpeningDate *big.Int
	ClosingDate *big.Int
}

// CreateTokenRequest 发行代币参数
type CreateTokenRequest struct {
	Name        string
	Symbol      string
	TotalSupply *big.Int
	TokenPrice  *big.Int
}

// RegistryInfo 注册合约概览
type RegistryInfo struct {
	Address      common.Address `json:"address"`
	SuperOwner   common.Address `json:"super_owner"`
	ListingFee   *big.Int       `json:"listing_fee"`
	Balance      *big.Int       `json:"balance"`
	ProjectCount uint64         `json:"project_count"`
}

// GetRegistryInfo 获取注册合约概览
func (p *ProjectLogic) GetRegistryInfo() *RegistryInfo {
	return &RegistryInfo{
		Address:      p.registry.Address(),
		SuperOwner:   p.registry.SuperOwner(),
		ListingFee:   p.registry.ListingFee(),
		Balance:      p.registry.GetContractBalance(),
		ProjectCount: p.registry.ProjectCount(),
	}
}

// ListProject 支付上架费上架新项目
func (p *ProjectLogic) ListProject(opts *chain.TransactOpts, req ListProjectRequest) (*big.Int, *types.Receipt, error) {
	if req.OpeningDate == nil {
		req.OpeningDate = new(big.Int)
	}
	if req.ClosingDate == nil {
		req.ClosingDate = new(big.Int)
	}
	id, receipt, err := p.registry.ListNewProject(opts, req.Name, req.Description, req.OpeningDate, req.ClosingDate)
	return id, receipt, observe("listNewProject", err)
}

// CloseProject 项目所有者关闭项目
func (p *ProjectLogic) CloseProject(opts *chain.TransactOpts, id *big.Int) (*types.Receipt, error) {
	receipt, err := p.registry.CloseProject(opts, id)
	return receipt, observe("closeProject", err)
}

// CreateToken 为项目发行代币销售合约
func (p *ProjectLogic) CreateToken(opts *chain.TransactOpts, id *big.Int, req CreateTokenRequest) (common.Address, *types.Receipt, error) {
	if req.TotalSupply == nil || req.TokenPrice == nil {
		return common.Address{}, nil, observe("createNewERC20Token", fmt.Errorf("%w: total supply and token price are required", ErrInvalidArgument))
	}
	addr, receipt, err := p.registry.CreateNewERC20Token(opts, id, req.Name, req.Symbol, req.TotalSupply, req.TokenPrice)
	return addr, receipt, observe("createNewERC20Token", err)
}

// UpdateListingFee 修改上架费
func (p *ProjectLogic) UpdateListingFee(opts *chain.TransactOpts, fee *big.Int) (*types.Receipt, error) {
	receipt, err := p.registry.UpdateListingFee(opts, fee)
	return receipt, observe("updateListingFee", err)
}

// WithdrawContractBalance 提取累计的上架费
func (p *ProjectLogic) WithdrawContractBalance(opts *chain.TransactOpts) (*types.Receipt, error) {
	receipt, err := p.registry.WithdrawContractBalance(opts)
	return receipt, observe("withdrawContractBalance", err)
}

// GetProject 读取链上项目记录
func (p *ProjectLogic) GetProject(id *big.Int) (*contract.Project, error) {
	return p.registry.Projects(id)
}

// GetProjectStatus 读取链上项目状态标签
func (p *ProjectLogic) GetProjectStatus(id *big.Int) (string, error) {
	return p.registry.GetProjectStatus(id)
}

// GetProjectDetails 读取项目与代币聚合信息
func (p *ProjectLogic) GetProjectDetails(id *big.Int) (*contract.ProjectDetails, error) {
	return p.registry.GetProjectDetailsByID(id)
}

// GetProjects 分页查询项目投影, status/owner 为空时不过滤
func (p *ProjectLogic) GetProjects(status, owner string, page, pageSize int) ([]model.ProjectModel, int64, error) {
	var projects []model.ProjectModel
	var total int64

	page, pageSize = normalizePage(page, pageSize)

	query := p.db.Model(&model.ProjectModel{})
	if status != "" {
		if !model.ProjectStatus(status).IsValid() {
			return nil, 0, fmt.Errorf("%w: unknown status %q", ErrInvalidArgument, status)
		}
		query = query.Where("status = ?", status)
	}
	if owner != "" {
		addr, err := ParseAddress(owner)
		if err != nil {
			return nil, 0, err
		}
		query = query.Where("owner = ?", addr.Hex())
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("获取项目总数失败: %w", err)
	}

	offset := (page - 1) * pageSize
	if err := query.Offset(offset).Limit(pageSize).Order("project_id ASC").Find(&projects).Error; err != nil {
		return nil, 0, fmt.Errorf("获取项目列表失败: %w", err)
	}

	return projects, total, nil
}

// ProjectStats 各状态项目数量
type ProjectStats struct {
	Total    int64                         `json:"total"`
	ByStatus map[model.ProjectStatus]int64 `json:"by_status"`
}

// GetProjectStats 统计投影中各状态项目数量
func (p *ProjectLogic) GetProjectStats() (*ProjectStats, error) {
	var rows []struct {
		Status model.ProjectStatus
		Count  int64
	}
	if err := p.db.Model(&model.ProjectModel{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("统计项目状态失败: %w", err)
	}

	stats := &ProjectStats{ByStatus: make(map[model.ProjectStatus]int64, len(model.ProjectStatuses))}
	for _, status := range model.ProjectStatuses {
		stats.ByStatus[status] = 0
	}
	for _, row := range rows {
		stats.ByStatus[row.Status] = row.Count
		stats.Total += row.Count
	}
	return stats, nil
}
