package handler

import (
	"errors"
	"math/big"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/rohitroy-github/ico-init/internal/chain"
	"github.com/rohitroy-github/ico-init/internal/logger"
	"github.com/rohitroy-github/ico-init/internal/logic"
)

// FromHeader 调用方地址所在的请求头
const FromHeader = "X-From"

// SuccessResponse 成功响应
func SuccessResponse(c *gin.Context, statusCode int, message string, data interface{}) {
	c.JSON(statusCode, Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// ErrorResponse 错误响应
func ErrorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, Response{
		Success: false,
		Message: message,
		Data:    nil,
	})
}

// HandleError 按错误类别选择状态码: 权限类 403, 回滚与参数错误 400, 记录不存在 404
func HandleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, logic.ErrNotFound):
		ErrorResponse(c, http.StatusNotFound, err.Error())
		return
	}

	switch logic.Classify(err) {
	case logic.KindAuthorization:
		ErrorResponse(c, http.StatusForbidden, err.Error())
	case logic.KindRevert, logic.KindInvalid:
		ErrorResponse(c, http.StatusBadRequest, err.Error())
	default:
		logger.Error("Request %s %s failed: %v", c.Request.Method, c.FullPath(), err)
		ErrorResponse(c, http.StatusInternalServerError, err.Error())
	}
}

// transactOpts 从请求头读取调用方, value 为空表示不附带转账
func transactOpts(c *gin.Context, value string) (*chain.TransactOpts, bool) {
	from := c.GetHeader(FromHeader)
	if from == "" {
		ErrorResponse(c, http.StatusBadRequest, "缺少 "+FromHeader+" 请求头")
		return nil, false
	}
	addr, err := logic.ParseAddress(from)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return nil, false
	}
	amount, ok := parseAmount(c, "value", value)
	if !ok {
		return nil, false
	}
	return &chain.TransactOpts{From: addr, Value: amount}, true
}

// parseAmount 解析十进制 wei 数额, 失败时直接写入 400 响应
func parseAmount(c *gin.Context, field, value string) (*big.Int, bool) {
	amount, err := logic.ParseUint256(value)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "无效的"+field+": "+err.Error())
		return nil, false
	}
	return amount, true
}

// parseProjectID 解析路径中的项目ID
func parseProjectID(c *gin.Context) (*big.Int, bool) {
	id, ok := new(big.Int).SetString(c.Param("id"), 10)
	if !ok || id.Sign() < 0 {
		ErrorResponse(c, http.StatusBadRequest, "无效的项目ID")
		return nil, false
	}
	return id, true
}

// parseAddressParam 解析路径中的地址
func parseAddressParam(c *gin.Context, name string) (common.Address, bool) {
	addr, err := logic.ParseAddress(c.Param(name))
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "无效的地址: "+c.Param(name))
		return common.Address{}, false
	}
	return addr, true
}

// pageQuery 读取分页参数
func pageQuery(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))
	return page, pageSize
}
