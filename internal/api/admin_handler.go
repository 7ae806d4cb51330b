package api

import (
	"github.com/gin-gonic/gin"
	"github.com/wfunc/hexland/internal/config"
	"github.com/wfunc/hexland/internal/errors"
	"github.com/wfunc/hexland/internal/game"
	"github.com/wfunc/hexland/internal/utils"
)

// AdminHandler 管理员接口处理器
type AdminHandler struct {
	scheduler  *game.Scheduler
	engine     *game.Engine
	jwtManager *utils.JWTManager
	adminCfg   config.AdminConfig
}

// NewAdminHandler 创建管理员处理器
func NewAdminHandler(scheduler *game.Scheduler, engine *game.Engine, jwtManager *utils.JWTManager, adminCfg config.AdminConfig) *AdminHandler {
	return &AdminHandler{
		scheduler:  scheduler,
		engine:     engine,
		jwtManager: jwtManager,
		adminCfg:   adminCfg,
	}
}

// LoginRequest 管理员登录请求
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login 管理员登录，校验通过后签发令牌
func (h *AdminHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.New(errors.ErrInvalidParam, err.Error()))
		return
	}

	if req.Username != h.adminCfg.Username {
		respondError(c, errors.New(errors.ErrAuthentication))
		return
	}
	ok, err := utils.VerifyPassword(req.Password, h.adminCfg.PasswordHash)
	if err != nil || !ok {
		respondError(c, errors.New(errors.ErrAuthentication))
		return
	}

	token, err := h.jwtManager.GenerateToken(req.Username, "admin")
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, "登录成功", gin.H{"token": token})
}

// TriggerTick 手动触发一次回合结算
func (h *AdminHandler) TriggerTick(c *gin.Context) {
	result, err := h.scheduler.TriggerNow(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, "回合结算完成", result)
}

// ResetRequest 重置请求，keep 列出保留的智能体
type ResetRequest struct {
	Keep []string `json:"keep"`
}

// Reset 重置游戏，请求体可省略
func (h *AdminHandler) Reset(c *gin.Context) {
	var req ResetRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, errors.New(errors.ErrInvalidParam, err.Error()))
			return
		}
	}

	if err := h.engine.Reset(c.Request.Context(), req.Keep); err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, "游戏已重置", gin.H{"kept": len(req.Keep)})
}
