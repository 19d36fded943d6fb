package contract

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/params"
	"github.com/rohitroy-github/ico-init/internal/chain"
)

// DefaultListingFee 默认上架费用 0.1 ether
func DefaultListingFee() *big.Int {
	return new(big.Int).Div(big.NewInt(params.Ether), big.NewInt(10))
}

// Project 链上项目记录, 字段顺序即存储布局
type Project struct {
	ID            *big.Int       `json:"id"`
	Name          string         `json:"name"`
	Description   string         `json:"description"`
	Owner         common.Address `json:"owner"`
	OpeningDate   *big.Int       `json:"opening_date"`
	ClosingDate   *big.Int       `json:"closing_date"`
	Status        ProjectStatus  `json:"status"`
	TokenContract common.Address `json:"token_contract"`
}

// ProjectDetails 项目与其代币的聚合视图
type ProjectDetails struct {
	ProjectName        string         `json:"project_name"`
	ProjectDescription string         `json:"project_description"`
	ProjectOwner       common.Address `json:"project_owner"`
	TokenContract      common.Address `json:"token_contract"`
	TokenName          string         `json:"token_name"`
	TokenSymbol        string         `json:"token_symbol"`
	TokenPrice         *big.Int       `json:"token_price"`
}

type projectRecord struct {
	Project
	token *TokenSale
}

// ProjectRegistry 项目注册合约: 收取上架费, 管理项目状态, 为每个项目最多创建一个代币销售合约
type ProjectRegistry struct {
	backend    *chain.Backend
	address    common.Address
	superOwner common.Address

	listingFee *big.Int
	projects   []*projectRecord
}

// DeployProjectRegistry 部署注册合约, 部署者即 SUPEROWNER. listingFee 为 nil 时使用默认值
func DeployProjectRegistry(backend *chain.Backend, opts *chain.TransactOpts, listingFee *big.Int) (*ProjectRegistry, *types.Receipt, error) {
	if listingFee == nil {
		listingFee = DefaultListingFee()
	}
	if err := chain.CheckUint256(listingFee); err != nil {
		return nil, nil, err
	}

	var registry *ProjectRegistry
	receipt, err := backend.Deploy(opts, func(call *chain.Call) (chain.Contract, error) {
		registry = &ProjectRegistry{
			backend:    call.Backend(),
			address:    call.Self(),
			superOwner: call.Sender(),
			listingFee: new(big.Int).Set(listingFee),
		}
		return registry, nil
	})
	if err != nil {
		return nil, nil, err
	}
	return registry, receipt, nil
}

// ProjectRegistryAt 绑定已部署的注册合约
func ProjectRegistryAt(backend *chain.Backend, addr common.Address) (*ProjectRegistry, error) {
	deployed, err := backend.ContractAt(addr)
	if err != nil {
		return nil, err
	}
	registry, ok := deployed.(*ProjectRegistry)
	if !ok {
		return nil, fmt.Errorf("contract at %s is not a project registry", addr.Hex())
	}
	return registry, nil
}

// Address 合约地址
func (r *ProjectRegistry) Address() common.Address {
	return r.address
}

// SuperOwner 平台管理员
func (r *ProjectRegistry) SuperOwner() common.Address {
	return r.superOwner
}

// ListNewProject 支付上架费创建项目, 返回新项目ID. 超额部分不退还
func (r *ProjectRegistry) ListNewProject(opts *chain.TransactOpts, name, description string, openingDate, closingDate *big.Int) (*big.Int, *types.Receipt, error) {
	var id *big.Int
	receipt, err := r.backend.TransactPayable(opts, r.address, func(call *chain.Call) error {
		if err := chain.CheckUint256(openingDate, closingDate); err != nil {
			return err
		}
		if call.Value().Cmp(r.listingFee) < 0 {
			return ErrListingFeeInsufficient
		}

		owner := call.Sender()
		id = big.NewInt(int64(len(r.projects)))
		listed, err := encodeEvent(registryABI, "ProjectListed", id, name, owner)
		if err != nil {
			return err
		}

		r.projects = append(r.projects, &projectRecord{Project: Project{
			ID:          id,
			Name:        name,
			Description: description,
			Owner:       owner,
			OpeningDate: new(big.Int).Set(openingDate),
			ClosingDate: new(big.Int).Set(closingDate),
			Status:      StatusListed,
		}})
		listed.emit(call)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return new(big.Int).Set(id), receipt, nil
}

// CloseProject 项目所有者关闭处于 LISTED 状态的项目
func (r *ProjectRegistry) CloseProject(opts *chain.TransactOpts, id *big.Int) (*types.Receipt, error) {
	return r.backend.Transact(opts, r.address, func(call *chain.Call) error {
		p, err := r.project(id)
		if err != nil {
			return err
		}
		if call.Sender() != p.Owner {
			return chain.NewCustomError(NotAuthorizedAsListedProjectOwner, call.Sender(), p.ID)
		}
		if p.Status != StatusListed {
			return ErrProjectNotListed
		}
		closed, err := encodeEvent(registryABI, "ProjectClosedByOwner", p.ID)
		if err != nil {
			return err
		}

		p.Status = StatusClosed
		closed.emit(call)
		return nil
	})
}

// CreateNewERC20Token 为项目创建唯一的代币销售合约, 代币全部归项目所有者
func (r *ProjectRegistry) CreateNewERC20Token(
	opts *chain.TransactOpts,
	projectID *big.Int,
	tokenName, tokenSymbol string,
	totalSupply, tokenPrice *big.Int,
) (common.Address, *types.Receipt, error) {
	var tokenAddr common.Address
	receipt, err := r.backend.Transact(opts, r.address, func(call *chain.Call) error {
		p, err := r.project(projectID)
		if err != nil {
			return err
		}
		if p.TokenContract != (common.Address{}) {
			return ErrTokenAlreadyCreated
		}
		owner := call.Sender()
		if owner != p.Owner {
			return ErrOnlyProjectOwnerToken
		}
		if p.Status != StatusListed {
			return ErrProjectNotListed
		}
		listed, err := encodeEvent(registryABI, "TokenListed", p.ID, tokenSymbol, owner)
		if err != nil {
			return err
		}

		var sale *TokenSale
		addr, err := call.Create(func(sub *chain.Call) (chain.Contract, error) {
			var err error
			sale, err = newTokenSale(sub, tokenName, tokenSymbol, totalSupply, owner, p.ID, tokenPrice)
			return sale, err
		})
		if err != nil {
			return err
		}

		p.TokenContract = addr
		p.token = sale
		p.Status = StatusTokenMinted
		listed.emit(call)
		tokenAddr = addr
		return nil
	})
	if err != nil {
		return common.Address{}, nil, err
	}
	return tokenAddr, receipt, nil
}

// UpdateListingFee 仅 SUPEROWNER 可修改上架费
func (r *ProjectRegistry) UpdateListingFee(opts *chain.TransactOpts, fee *big.Int) (*types.Receipt, error) {
	return r.backend.Transact(opts, r.address, func(call *chain.Call) error {
		if call.Sender() != r.superOwner {
			return chain.NewCustomError(NotAuthorizedAsSuperOwner, call.Sender())
		}
		if err := chain.CheckUint256(fee); err != nil {
			return err
		}
		updated, err := encodeEvent(registryABI, "ListingFeeUpdated", fee)
		if err != nil {
			return err
		}

		r.listingFee = new(big.Int).Set(fee)
		updated.emit(call)
		return nil
	})
}

// WithdrawContractBalance 将合约全部余额转给 SUPEROWNER
func (r *ProjectRegistry) WithdrawContractBalance(opts *chain.TransactOpts) (*types.Receipt, error) {
	return r.backend.Transact(opts, r.address, func(call *chain.Call) error {
		if call.Sender() != r.superOwner {
			return chain.NewCustomError(NotAuthorizedAsSuperOwner, call.Sender())
		}
		amount := call.Balance(r.address)
		withdrawn, err := encodeEvent(registryABI, "ContractBalanceWithdrawn", r.superOwner, amount)
		if err != nil {
			return err
		}

		if err := call.Transfer(r.superOwner, amount); err != nil {
			return err
		}
		withdrawn.emit(call)
		return nil
	})
}

// project 按ID查找项目, 调用方需持有账本锁
func (r *ProjectRegistry) project(id *big.Int) (*projectRecord, error) {
	if id == nil || id.Sign() < 0 || !id.IsUint64() || id.Uint64() >= uint64(len(r.projects)) {
		return nil, ErrProjectNotExist
	}
	return r.projects[id.Uint64()], nil
}

// GetContractBalance 合约累计持有的上架费
func (r *ProjectRegistry) GetContractBalance() *big.Int {
	return r.backend.BalanceAt(r.address)
}

// ListingFee 当前上架费
func (r *ProjectRegistry) ListingFee() *big.Int {
	var fee *big.Int
	r.backend.View(func() {
		fee = new(big.Int).Set(r.listingFee)
	})
	return fee
}

// ProjectCount 已创建的项目数量
func (r *ProjectRegistry) ProjectCount() uint64 {
	var count uint64
	r.backend.View(func() {
		count = uint64(len(r.projects))
	})
	return count
}

// Projects 按下标读取项目记录
func (r *ProjectRegistry) Projects(id *big.Int) (*Project, error) {
	var (
		result *Project
		err    error
	)
	r.backend.View(func() {
		var p *projectRecord
		if p, err = r.project(id); err != nil {
			return
		}
		result = copyProject(&p.Project)
	})
	return result, err
}

// GetProjectStatus 返回状态标签
func (r *ProjectRegistry) GetProjectStatus(id *big.Int) (string, error) {
	var (
		label string
		err   error
	)
	r.backend.View(func() {
		var p *projectRecord
		if p, err = r.project(id); err != nil {
			return
		}
		label = p.Status.Label()
	})
	return label, err
}

// GetProjectDetailsByID 项目与代币的聚合信息, 未创建代币时代币字段为零值
func (r *ProjectRegistry) GetProjectDetailsByID(id *big.Int) (*ProjectDetails, error) {
	var (
		details *ProjectDetails
		err     error
	)
	r.backend.View(func() {
		var p *projectRecord
		if p, err = r.project(id); err != nil {
			return
		}
		details = &ProjectDetails{
			ProjectName:        p.Name,
			ProjectDescription: p.Description,
			ProjectOwner:       p.Owner,
			TokenContract:      p.TokenContract,
			TokenPrice:         new(big.Int),
		}
		if p.token != nil {
			details.TokenName = p.token.name
			details.TokenSymbol = p.token.symbol
			details.TokenPrice = new(big.Int).Set(p.token.tokenPrice)
		}
	})
	return details, err
}

func copyProject(p *Project) *Project {
	c := *p
	c.ID = new(big.Int).Set(p.ID)
	c.OpeningDate = new(big.Int).Set(p.OpeningDate)
	c.ClosingDate = new(big.Int).Set(p.ClosingDate)
	return &c
}
