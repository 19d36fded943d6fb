package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rohitroy-github/ico-init/internal/logic"
)

// RegistryHandler 注册合约管理接口
type RegistryHandler struct {
	projectLogic *logic.ProjectLogic
	accountLogic *logic.AccountLogic
}

// NewRegistryHandler 创建注册合约处理器
func NewRegistryHandler(projectLogic *logic.ProjectLogic, accountLogic *logic.AccountLogic) *RegistryHandler {
	return &RegistryHandler{
		projectLogic: projectLogic,
		accountLogic: accountLogic,
	}
}

// GetRegistry 注册合约概览
func (h *RegistryHandler) GetRegistry(c *gin.Context) {
	SuccessResponse(c, http.StatusOK, "获取注册合约成功", ToRegistryResponse(h.projectLogic.GetRegistryInfo()))
}

// UpdateListingFee 修改上架费
func (h *RegistryHandler) UpdateListingFee(c *gin.Context) {
	var req UpdateListingFeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	opts, ok := transactOpts(c, "")
	if !ok {
		return
	}
	fee, ok := parseAmount(c, "listingFee", req.ListingFee)
	if !ok {
		return
	}

	receipt, err := h.projectLogic.UpdateListingFee(opts, fee)
	if err != nil {
		HandleError(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "上架费已更新", ToReceiptResponse(receipt))
}

// Withdraw 提取合约余额
func (h *RegistryHandler) Withdraw(c *gin.Context) {
	opts, ok := transactOpts(c, "")
	if !ok {
		return
	}

	receipt, err := h.projectLogic.WithdrawContractBalance(opts)
	if err != nil {
		HandleError(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "提取成功", ToReceiptResponse(receipt))
}

// GetAccounts 开发链预置账户
func (h *RegistryHandler) GetAccounts(c *gin.Context) {
	SuccessResponse(c, http.StatusOK, "获取账户成功", ToAccountResponseList(h.accountLogic.GetAccounts()))
}
