package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rohitroy-github/ico-init/internal/logic"
)

type ProjectHandler struct {
	projectLogic  *logic.ProjectLogic
	purchaseLogic *logic.PurchaseRecordLogic
}

func NewProjectHandler(projectLogic *logic.ProjectLogic, purchaseLogic *logic.PurchaseRecordLogic) *ProjectHandler {
	return &ProjectHandler{
		projectLogic:  projectLogic,
		purchaseLogic: purchaseLogic,
	}
}

// ListProject 支付上架费上架项目
func (h *ProjectHandler) ListProject(c *gin.Context) {
	var req ListProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	opts, ok := transactOpts(c, req.Value)
	if !ok {
		return
	}
	openingDate, ok := parseAmount(c, "openingDate", req.OpeningDate)
	if !ok {
		return
	}
	closingDate, ok := parseAmount(c, "closingDate", req.ClosingDate)
	if !ok {
		return
	}

	// 调用logic层上架项目
	id, receipt, err := h.projectLogic.ListProject(opts, logic.ListProjectRequest{
		Name:        req.Name,
		Description: req.Description,
		OpeningDate: openingDate,
		ClosingDate: closingDate,
	})
	if err != nil {
		HandleError(c, err)
		return
	}

	SuccessResponse(c, http.StatusCreated, "项目上架成功", ListProjectResponse{
		ProjectID: id.String(),
		Receipt:   ToReceiptResponse(receipt),
	})
}

// GetProjects 获取项目投影列表
func (h *ProjectHandler) GetProjects(c *gin.Context) {
	status := c.Query("status")
	owner := c.Query("owner")
	page, pageSize := pageQuery(c)

	// 调用logic层获取项目列表
	projects, total, err := h.projectLogic.GetProjects(status, owner, page, pageSize)
	if err != nil {
		HandleError(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "获取项目列表成功", GetProjectsResponse{
		Projects:   ToProjectResponseList(projects),
		Pagination: newPagination(page, pageSize, total),
	})
}

// GetProject 读取链上项目记录
func (h *ProjectHandler) GetProject(c *gin.Context) {
	id, ok := parseProjectID(c)
	if !ok {
		return
	}

	project, err := h.projectLogic.GetProject(id)
	if err != nil {
		HandleError(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "获取项目成功", ToOnChainProjectResponse(project))
}

// GetProjectDetails 读取项目与代币聚合信息
func (h *ProjectHandler) GetProjectDetails(c *gin.Context) {
	id, ok := parseProjectID(c)
	if !ok {
		return
	}

	details, err := h.projectLogic.GetProjectDetails(id)
	if err != nil {
		HandleError(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "获取项目详情成功", ToProjectDetailsResponse(details))
}

// GetProjectStatus 读取项目状态
func (h *ProjectHandler) GetProjectStatus(c *gin.Context) {
	id, ok := parseProjectID(c)
	if !ok {
		return
	}

	status, err := h.projectLogic.GetProjectStatus(id)
	if err != nil {
		HandleError(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "获取项目状态成功", ProjectStatusResponse{
		ProjectID: id.String(),
		Status:    status,
	})
}

// CloseProject 关闭项目
func (h *ProjectHandler) CloseProject(c *gin.Context) {
	id, ok := parseProjectID(c)
	if !ok {
		return
	}
	opts, ok := transactOpts(c, "")
	if !ok {
		return
	}

	receipt, err := h.projectLogic.CloseProject(opts, id)
	if err != nil {
		HandleError(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "项目已关闭", ToReceiptResponse(receipt))
}

// CreateToken 为项目发行代币
func (h *ProjectHandler) CreateToken(c *gin.Context) {
	id, ok := parseProjectID(c)
	if !ok {
		return
	}
	var req CreateTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	opts, ok := transactOpts(c, "")
	if !ok {
		return
	}
	totalSupply, ok := parseAmount(c, "totalSupply", req.TotalSupply)
	if !ok {
		return
	}
	tokenPrice, ok := parseAmount(c, "tokenPrice", req.TokenPrice)
	if !ok {
		return
	}

	addr, receipt, err := h.projectLogic.CreateToken(opts, id, logic.CreateTokenRequest{
		Name:        req.Name,
		Symbol:      req.Symbol,
		TotalSupply: totalSupply,
		TokenPrice:  tokenPrice,
	})
	if err != nil {
		HandleError(c, err)
		return
	}

	SuccessResponse(c, http.StatusCreated, "代币发行成功", CreateTokenResponse{
		TokenAddress: addr.Hex(),
		Receipt:      ToReceiptResponse(receipt),
	})
}

// GetProjectPurchases 获取项目购买记录
func (h *ProjectHandler) GetProjectPurchases(c *gin.Context) {
	id, ok := parseProjectID(c)
	if !ok {
		return
	}
	if !id.IsInt64() {
		ErrorResponse(c, http.StatusBadRequest, "无效的项目ID")
		return
	}
	page, pageSize := pageQuery(c)

	records, total, err := h.purchaseLogic.GetProjectPurchaseRecords(id.Int64(), page, pageSize)
	if err != nil {
		HandleError(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "获取项目购买记录成功", GetPurchaseRecordsResponse{
		Records:    ToPurchaseRecordResponseList(records),
		Pagination: newPagination(page, pageSize, total),
	})
}

// GetProjectPurchaseStats 获取项目销售统计
func (h *ProjectHandler) GetProjectPurchaseStats(c *gin.Context) {
	id, ok := parseProjectID(c)
	if !ok {
		return
	}
	if !id.IsInt64() {
		ErrorResponse(c, http.StatusBadRequest, "无效的项目ID")
		return
	}

	stats, err := h.purchaseLogic.GetProjectPurchaseStats(id.Int64())
	if err != nil {
		HandleError(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "获取项目销售统计成功", stats)
}

// GetProjectStats 获取各状态项目数量
func (h *ProjectHandler) GetProjectStats(c *gin.Context) {
	stats, err := h.projectLogic.GetProjectStats()
	if err != nil {
		HandleError(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "获取项目统计成功", stats)
}
