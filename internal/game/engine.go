package game

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/wfunc/hexland/internal/config"
	"github.com/wfunc/hexland/internal/errors"
	"github.com/wfunc/hexland/internal/logger"
	"github.com/wfunc/hexland/internal/models"
	"github.com/wfunc/hexland/internal/repository"
)

// Engine 游戏引擎，所有状态变更的唯一入口
type Engine struct {
	repos *repository.Manager
	cfg   config.GameConfig

	mu sync.Mutex
	bc Broadcaster
	nt Notifier

	rng *rand.Rand
}

// NewEngine 创建游戏引擎
func NewEngine(repos *repository.Manager, cfg config.GameConfig) *Engine {
	return &Engine{
		repos: repos,
		cfg:   cfg,
		bc:    noopBroadcaster{},
		nt:    noopNotifier{},
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SetBroadcaster 接入实时推送（WebSocket Hub）
func (e *Engine) SetBroadcaster(bc Broadcaster) {
	if bc != nil {
		e.bc = bc
	}
}

// SetNotifier 接入 webhook 通知器
func (e *Engine) SetNotifier(nt Notifier) {
	if nt != nil {
		e.nt = nt
	}
}

// SubmitAction 提交一个行动：校验、在单个事务内落库、提交后分发事件
func (e *Engine) SubmitAction(ctx context.Context, agentID string, req *ActionRequest) (*ActionResult, error) {
	// 写操作串行化，避免同一时刻的行动互相踩踏
	e.mu.Lock()
	defer e.mu.Unlock()

	now := time.Now()
	res := &ActionResult{Data: make(map[string]interface{})}

	err := e.repos.TxManager().WithTransaction(ctx, func(tx *repository.Transaction) error {
		agent, err := tx.Agents.FindByAgentID(ctx, agentID)
		if err != nil {
			return err
		}
		if err := tx.Agents.TouchLastSeen(ctx, agentID); err != nil {
			return err
		}

		switch req.Type {
		case ActionExpand:
			return e.doExpand(ctx, tx, agent, req, res)
		case ActionAttack:
			return e.doAttack(ctx, tx, agent, req, now, res)
		case ActionFortify:
			return e.doFortify(ctx, tx, agent, req, res)
		case ActionGiftTile:
			return e.doGiftTile(ctx, tx, agent, req, res)
		case ActionGiftResources:
			return e.doGiftResources(ctx, tx, agent, req, res)
		case ActionSetCapital:
			return e.doSetCapital(ctx, tx, agent, req, res)
		case ActionSendMessage:
			return e.doSendMessage(ctx, tx, agent, req, res)
		case ActionProposeTrade:
			return e.doProposeTrade(ctx, tx, agent, req, now, res)
		case ActionAcceptTrade:
			return e.doAcceptTrade(ctx, tx, agent, req, res)
		case ActionRejectTrade:
			return e.doRejectTrade(ctx, tx, agent, req, res)
		default:
			return errors.New(errors.ErrInvalidParam, "未知的行动类型")
		}
	})
	if err != nil {
		return nil, err
	}
	// 状态变更已提交，但行动本身仍是失败（交易标记过期等）
	if res.failure != nil {
		return nil, res.failure
	}

	logger.LogGameEvent(string(req.Type), agentID, res.Data)
	e.dispatch(res.effects)
	return res, nil
}

// dispatch 事务提交后分发广播与 webhook 通知
func (e *Engine) dispatch(effects []postEffect) {
	for _, eff := range effects {
		e.bc.BroadcastEvent(eff.eventType, eff.payload)
		if eff.notifyAgentID != "" && eff.notifyURL != "" {
			e.nt.Notify(eff.notifyAgentID, eff.notifyURL, eff.eventType, eff.payload)
		}
	}
}

// appendEvent 在事务内写入事件日志
func appendEvent(ctx context.Context, tx *repository.Transaction, eventType string, actorID *string, description string, payload models.JSONMap) error {
	return tx.Events.Append(ctx, &models.GameEvent{
		Type:        eventType,
		ActorID:     actorID,
		Description: description,
		Payload:     payload,
	})
}

// tilePayload 地块状态的广播载荷
func tilePayload(tile *models.Tile) map[string]interface{} {
	owner := ""
	if tile.OwnerID != nil {
		owner = *tile.OwnerID
	}
	return map[string]interface{}{
		"q":             tile.Q,
		"r":             tile.R,
		"terrain":       string(tile.Terrain),
		"owner":         owner,
		"fortification": tile.Fortification,
	}
}
