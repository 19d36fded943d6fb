package handler

import (
	"errors"
	"math/big"
	"net/http"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/gin-gonic/gin"
	"github.com/rohitroy-github/ico-init/internal/chain"
	"github.com/rohitroy-github/ico-init/internal/logic"
	"github.com/rohitroy-github/ico-init/internal/model"
)

// TokenHandler 代币销售接口
type TokenHandler struct {
	tokenLogic    *logic.TokenLogic
	purchaseLogic *logic.PurchaseRecordLogic
}

// NewTokenHandler 创建代币处理器
func NewTokenHandler(tokenLogic *logic.TokenLogic, purchaseLogic *logic.PurchaseRecordLogic) *TokenHandler {
	return &TokenHandler{
		tokenLogic:    tokenLogic,
		purchaseLogic: purchaseLogic,
	}
}

// GetTokens 已索引的代币
func (h *TokenHandler) GetTokens(c *gin.Context) {
	tokens, err := h.tokenLogic.GetIndexedTokens()
	if err != nil {
		HandleError(c, err)
		return
	}

	result := make([]TokenResponse, 0, len(tokens))
	for i := range tokens {
		info, err := h.tokenLogic.GetToken(tokens[i].Address)
		if err != nil {
			HandleError(c, err)
			return
		}
		result = append(result, ToTokenResponse(info, &tokens[i]))
	}

	SuccessResponse(c, http.StatusOK, "获取代币列表成功", result)
}

// GetToken 代币链上状态, 已索引时附带销售汇总
func (h *TokenHandler) GetToken(c *gin.Context) {
	addr, ok := parseAddressParam(c, "address")
	if !ok {
		return
	}

	info, err := h.tokenLogic.GetToken(addr.Hex())
	if err != nil {
		HandleError(c, err)
		return
	}

	var indexed *model.TokenModel
	if token, err := h.tokenLogic.GetIndexedToken(addr.Hex()); err == nil {
		indexed = token
	} else if !errors.Is(err, logic.ErrNotFound) {
		HandleError(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "获取代币成功", ToTokenResponse(info, indexed))
}

// GetBalance 查询持有量
func (h *TokenHandler) GetBalance(c *gin.Context) {
	addr, ok := parseAddressParam(c, "address")
	if !ok {
		return
	}
	holder, ok := parseAddressParam(c, "holder")
	if !ok {
		return
	}

	balance, err := h.tokenLogic.BalanceOf(addr.Hex(), holder.Hex())
	if err != nil {
		HandleError(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "获取余额成功", BalanceResponse{
		Token:   addr.Hex(),
		Holder:  holder.Hex(),
		Balance: balance.String(),
	})
}

// BuyTokens 购买代币
func (h *TokenHandler) BuyTokens(c *gin.Context) {
	addr, ok := parseAddressParam(c, "address")
	if !ok {
		return
	}
	var req BuyTokensRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	opts, ok := transactOpts(c, req.Value)
	if !ok {
		return
	}
	amount, ok := parseAmount(c, "amount", req.Amount)
	if !ok {
		return
	}

	receipt, err := h.tokenLogic.BuyTokens(opts, addr.Hex(), amount)
	if err != nil {
		HandleError(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "购买成功", ToReceiptResponse(receipt))
}

// UpdateTokenPrice 调整代币价格
func (h *TokenHandler) UpdateTokenPrice(c *gin.Context) {
	addr, ok := parseAddressParam(c, "address")
	if !ok {
		return
	}
	var req UpdateTokenPriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	opts, ok := transactOpts(c, "")
	if !ok {
		return
	}
	price, ok := parseAmount(c, "tokenPrice", req.TokenPrice)
	if !ok {
		return
	}

	receipt, err := h.tokenLogic.UpdateTokenPrice(opts, addr.Hex(), price)
	if err != nil {
		HandleError(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "价格已更新", ToReceiptResponse(receipt))
}

// Transfer 代币转账
func (h *TokenHandler) Transfer(c *gin.Context) {
	h.transferLike(c, "转账成功", h.tokenLogic.Transfer)
}

// Approve 授权额度
func (h *TokenHandler) Approve(c *gin.Context) {
	h.transferLike(c, "授权成功", h.tokenLogic.Approve)
}

func (h *TokenHandler) transferLike(
	c *gin.Context,
	message string,
	call func(opts *chain.TransactOpts, address, to string, value *big.Int) (*types.Receipt, error),
) {
	addr, ok := parseAddressParam(c, "address")
	if !ok {
		return
	}
	var req TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	opts, ok := transactOpts(c, "")
	if !ok {
		return
	}
	value, ok := parseAmount(c, "value", req.Value)
	if !ok {
		return
	}

	r, err := call(opts, addr.Hex(), req.To, value)
	if err != nil {
		HandleError(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, message, ToReceiptResponse(r))
}

// GetTransactions 合约内的购买流水
func (h *TokenHandler) GetTransactions(c *gin.Context) {
	addr, ok := parseAddressParam(c, "address")
	if !ok {
		return
	}

	transactions, err := h.tokenLogic.GetTransactions(addr.Hex())
	if err != nil {
		HandleError(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "获取交易流水成功", ToTransactionResponseList(transactions))
}

// GetBuyerPurchases 买家的购买记录
func (h *TokenHandler) GetBuyerPurchases(c *gin.Context) {
	buyer, ok := parseAddressParam(c, "buyer")
	if !ok {
		return
	}
	page, pageSize := pageQuery(c)

	records, total, err := h.purchaseLogic.GetBuyerPurchaseRecords(buyer.Hex(), page, pageSize)
	if err != nil {
		HandleError(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "获取购买记录成功", GetPurchaseRecordsResponse{
		Records:    ToPurchaseRecordResponseList(records),
		Pagination: newPagination(page, pageSize, total),
	})
}
