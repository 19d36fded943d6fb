package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rohitroy-github/ico-init/internal/logic"
)

// EventHandler 已索引事件查询接口
type EventHandler struct {
	eventLogic *logic.EventLogic
}

// NewEventHandler 创建事件处理器
func NewEventHandler(eventLogic *logic.EventLogic) *EventHandler {
	return &EventHandler{
		eventLogic: eventLogic,
	}
}

// GetEvents 获取事件列表
func (h *EventHandler) GetEvents(c *gin.Context) {
	page, pageSize := pageQuery(c)
	filter := logic.EventFilter{
		ContractAddress: c.Query("contract"),
		ContractName:    c.Query("contract_name"),
		EventType:       c.Query("event_type"),
		TxHash:          c.Query("tx_hash"),
	}

	events, total, err := h.eventLogic.GetEvents(filter, page, pageSize)
	if err != nil {
		HandleError(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "获取事件列表成功", GetEventsResponse{
		Events:     ToEventResponseList(events),
		Pagination: newPagination(page, pageSize, total),
	})
}

// GetEvent 获取单个事件
func (h *EventHandler) GetEvent(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "无效的事件ID")
		return
	}

	event, err := h.eventLogic.GetEvent(id)
	if err != nil {
		HandleError(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "获取事件成功", ToEventResponse(event))
}

// GetEventStatistics 索引进度
func (h *EventHandler) GetEventStatistics(c *gin.Context) {
	stats, err := h.eventLogic.GetEventStatistics()
	if err != nil {
		HandleError(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "获取事件统计成功", stats)
}
