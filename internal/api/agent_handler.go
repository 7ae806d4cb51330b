package api

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/hexland/internal/errors"
	"github.com/wfunc/hexland/internal/game"
)

// AgentHandler 智能体接口处理器
type AgentHandler struct {
	engine *game.Engine
}

// NewAgentHandler 创建智能体处理器
func NewAgentHandler(engine *game.Engine) *AgentHandler {
	return &AgentHandler{engine: engine}
}

// JoinRequest 加入游戏请求
type JoinRequest struct {
	AgentID    string `json:"agent_id" binding:"required"`
	Name       string `json:"name" binding:"required"`
	WebhookURL string `json:"webhook_url"`
}

// Join 新智能体加入游戏
func (h *AgentHandler) Join(c *gin.Context) {
	var req JoinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.New(errors.ErrInvalidParam, err.Error()))
		return
	}

	result, err := h.engine.JoinAgent(c.Request.Context(), req.AgentID, req.Name, req.WebhookURL)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, result.Message, result.Data)
}

// SubmitAction 提交行动
func (h *AgentHandler) SubmitAction(c *gin.Context) {
	agentID := c.Param("agent_id")

	var req game.ActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.New(errors.ErrInvalidParam, err.Error()))
		return
	}

	result, err := h.engine.SubmitAction(c.Request.Context(), agentID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, result.Message, result.Data)
}

// GetWorldState 获取智能体视角的世界状态
func (h *AgentHandler) GetWorldState(c *gin.Context) {
	agentID := c.Param("agent_id")

	state, err := h.engine.GetWorldState(c.Request.Context(), agentID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, "", state)
}

// GetPublicMap 获取公共地图
func (h *AgentHandler) GetPublicMap(c *gin.Context) {
	tiles, err := h.engine.GetPublicMap(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, "", gin.H{"tiles": tiles})
}

// GetRecentEvents 公共事件流
func (h *AgentHandler) GetRecentEvents(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))

	events, err := h.engine.GetRecentEvents(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, "", gin.H{"events": events})
}

// UpdateMemoryRequest 更新记忆请求
type UpdateMemoryRequest struct {
	Memory string `json:"memory"`
}

// UpdateMemory 更新智能体自存记忆
func (h *AgentHandler) UpdateMemory(c *gin.Context) {
	agentID := c.Param("agent_id")

	var req UpdateMemoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.New(errors.ErrInvalidParam, err.Error()))
		return
	}

	if err := h.engine.UpdateMemory(c.Request.Context(), agentID, req.Memory); err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, "记忆已更新", nil)
}

// UpdateStrategyRequest 更新策略请求
type UpdateStrategyRequest struct {
	Strategy string `json:"strategy"`
}

// UpdateStrategy 更新策略文本
func (h *AgentHandler) UpdateStrategy(c *gin.Context) {
	agentID := c.Param("agent_id")

	var req UpdateStrategyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.New(errors.ErrInvalidParam, err.Error()))
		return
	}

	if err := h.engine.UpdateStrategy(c.Request.Context(), agentID, req.Strategy); err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, "策略已更新", nil)
}

// UpdateWebhookRequest 更新回调地址请求
type UpdateWebhookRequest struct {
	WebhookURL string `json:"webhook_url"`
}

// UpdateWebhook 更新通知回调地址
func (h *AgentHandler) UpdateWebhook(c *gin.Context) {
	agentID := c.Param("agent_id")

	var req UpdateWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.New(errors.ErrInvalidParam, err.Error()))
		return
	}

	if err := h.engine.UpdateWebhook(c.Request.Context(), agentID, req.WebhookURL); err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, "回调地址已更新", nil)
}
