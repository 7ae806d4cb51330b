package game

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/wfunc/hexland/internal/errors"
	"github.com/wfunc/hexland/internal/logger"
	"github.com/wfunc/hexland/internal/models"
	"github.com/wfunc/hexland/internal/repository"
	"go.uber.org/zap"
)

// TickResult 单回合结算汇总
type TickResult struct {
	Tick            int64 `json:"tick"`
	ResolvedAttacks int   `json:"resolved_attacks"`
	CapturedTiles   int   `json:"captured_tiles"`
	StarvedTiles    int   `json:"starved_tiles"`
	ExpiredTrades   int   `json:"expired_trades"`

	effects []postEffect
}

func (t *TickResult) addEffect(eventType string, payload map[string]interface{}) {
	t.effects = append(t.effects, postEffect{eventType: eventType, payload: payload})
}

func (t *TickResult) addNotify(agentID, webhookURL, eventType string, payload map[string]interface{}) {
	t.effects = append(t.effects, postEffect{
		eventType:     eventType,
		payload:       payload,
		notifyAgentID: agentID,
		notifyURL:     webhookURL,
	})
}

// ProcessTick 执行一个完整回合：结算攻击、生产、维护与饥荒、交易过期、推进回合数。
// 整个回合是一个事务，任何一步出错都整体回滚，由调度器在下个检查点重试。
func (e *Engine) ProcessTick(ctx context.Context) (*TickResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()
	res := &TickResult{}

	err := e.repos.TxManager().WithTransaction(ctx, func(tx *repository.Transaction) error {
		state, err := tx.GameState.GetOrCreate(ctx, int(e.cfg.TickInterval.Seconds()), e.cfg.InitialRadius)
		if err != nil {
			return err
		}
		res.Tick = state.Tick + 1
		now := time.Now()

		// 1. 结算到期的攻击（按宣战顺序，先落地的变更对后续攻击生效）
		if err := e.resolveAttacks(ctx, tx, now, res); err != nil {
			return err
		}
		// 2. 结算产出
		holdings, err := e.produceResources(ctx, tx)
		if err != nil {
			return err
		}
		// 3. 扣除维护费，食物不足时按地块价值从低到高淘汰
		if err := e.applyUpkeep(ctx, tx, holdings, res); err != nil {
			return err
		}
		// 4. 批量过期交易
		expired, err := tx.Trades.ExpirePendingBefore(ctx, now)
		if err != nil {
			return err
		}
		res.ExpiredTrades = int(expired)

		// 5. 推进回合数并记录汇总
		if err := tx.GameState.AdvanceTick(ctx, now); err != nil {
			return err
		}
		desc := fmt.Sprintf("第 %d 回合结算完成", res.Tick)
		return appendEvent(ctx, tx, models.EventTick, nil, desc, models.JSONMap{
			"tick":             res.Tick,
			"resolved_attacks": res.ResolvedAttacks,
			"captured_tiles":   res.CapturedTiles,
			"starved_tiles":    res.StarvedTiles,
			"expired_trades":   res.ExpiredTrades,
		})
	})
	if err != nil {
		logger.WithModule("tick").Error("回合结算失败，已回滚", zap.Error(err))
		return nil, err
	}

	logger.LogTick(res.Tick, time.Since(start), res.ResolvedAttacks, res.StarvedTiles, res.ExpiredTrades)
	res.addEffect(models.EventTick, map[string]interface{}{
		"tick":           res.Tick,
		"starved_tiles":  res.StarvedTiles,
		"captured_tiles": res.CapturedTiles,
	})
	e.dispatch(res.effects)
	return res, nil
}

// resolveAttacks 逐个结算到期的攻击，结算顺序为宣战顺序
func (e *Engine) resolveAttacks(ctx context.Context, tx *repository.Transaction, now time.Time, res *TickResult) error {
	attacks, err := tx.Attacks.FindPendingDue(ctx, now)
	if err != nil {
		return err
	}

	for _, attack := range attacks {
		tile, err := tx.Tiles.FindByCoord(ctx, attack.TargetQ, attack.TargetR)
		if err != nil {
			// 目标地块已不一致时按空操作结算，不让整个回合失败
			if errors.Is(err, errors.ErrTileNotFound) {
				if err := tx.Attacks.MarkResolved(ctx, attack.ID); err != nil {
					return err
				}
				res.ResolvedAttacks++
				continue
			}
			return err
		}
		// 同回合内先结算的攻击可能已翻转归属：目标变成无主或己方时按空操作处理
		if !tile.IsOwned() || tile.IsOwnedBy(attack.AttackerID) {
			if err := tx.Attacks.MarkResolved(ctx, attack.ID); err != nil {
				return err
			}
			res.ResolvedAttacks++
			continue
		}

		defense := tile.Defense(BaseDefense)
		if attack.Commitment > defense {
			if err := e.captureTile(ctx, tx, attack, tile, res); err != nil {
				return err
			}
			res.CapturedTiles++
		} else {
			desc := fmt.Sprintf("对地块 (%d, %d) 的攻击被击退", attack.TargetQ, attack.TargetR)
			if err := appendEvent(ctx, tx, models.EventAttackFailed, &attack.AttackerID, desc, models.JSONMap{
				"q": attack.TargetQ, "r": attack.TargetR,
			}); err != nil {
				return err
			}
		}

		if err := tx.Attacks.MarkResolved(ctx, attack.ID); err != nil {
			return err
		}
		res.ResolvedAttacks++
	}
	return nil
}

// captureTile 攻击成功：转移归属、清零防御、清理原主首都标记
func (e *Engine) captureTile(ctx context.Context, tx *repository.Transaction, attack *models.Attack, tile *models.Tile, res *TickResult) error {
	prevOwnerID := *tile.OwnerID

	if err := tx.Tiles.SetOwner(ctx, tile.Q, tile.R, attack.AttackerID, 0); err != nil {
		return err
	}

	prevOwner, err := tx.Agents.FindByAgentID(ctx, prevOwnerID)
	if err == nil && prevOwner.IsCapital(tile.Q, tile.R) {
		if err := tx.Agents.ClearCapital(ctx, prevOwnerID); err != nil {
			return err
		}
	}

	desc := fmt.Sprintf("地块 (%d, %d) 被攻占", tile.Q, tile.R)
	if err := appendEvent(ctx, tx, models.EventAttackSuccess, &attack.AttackerID, desc, models.JSONMap{
		"q": tile.Q, "r": tile.R, "previous_owner": prevOwnerID,
	}); err != nil {
		return err
	}

	tile.OwnerID = &attack.AttackerID
	tile.Fortification = 0
	res.addEffect("tile_update", tilePayload(tile))
	if prevOwner != nil && prevOwner.WebhookURL != "" {
		res.addNotify(prevOwnerID, prevOwner.WebhookURL, models.EventAttackSuccess, map[string]interface{}{
			"q": tile.Q, "r": tile.R, "attacker": attack.AttackerID,
		})
	}
	return nil
}

// agentHolding 产出阶段缓存的每个智能体的领土快照
type agentHolding struct {
	agent *models.Agent
	tiles []*models.Tile
	// 产出后的食物余额，维护费阶段基于这个数判断饥荒
	postFood int
}

// produceResources 为所有智能体按地形结算资源产出
func (e *Engine) produceResources(ctx context.Context, tx *repository.Transaction) ([]*agentHolding, error) {
	agents, err := tx.Agents.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	holdings := make([]*agentHolding, 0, len(agents))
	for _, agent := range agents {
		tiles, err := tx.Tiles.FindByOwner(ctx, agent.AgentID)
		if err != nil {
			return nil, err
		}

		var foodProd, metalProd int
		for _, tile := range tiles {
			f, m := tile.Terrain.Production()
			foodProd += f
			metalProd += m
		}
		if foodProd > 0 || metalProd > 0 {
			if err := tx.Agents.AddResources(ctx, agent.AgentID, foodProd, metalProd); err != nil {
				return nil, err
			}
		}

		holdings = append(holdings, &agentHolding{
			agent:    agent,
			tiles:    tiles,
			postFood: agent.Food + foodProd,
		})
	}
	return holdings, nil
}

// applyUpkeep 扣除维护费；食物不够时清空余额并按地块价值从低到高淘汰领土
func (e *Engine) applyUpkeep(ctx context.Context, tx *repository.Transaction, holdings []*agentHolding, res *TickResult) error {
	for _, h := range holdings {
		owned := len(h.tiles)
		if owned == 0 {
			continue
		}
		upkeep := owned * UpkeepFoodPerTile

		if h.postFood >= upkeep {
			if err := tx.Agents.DeductResources(ctx, h.agent.AgentID, upkeep, 0); err != nil {
				return err
			}
			continue
		}

		// 余额清零，缺口换算成要失去的地块数
		if h.postFood > 0 {
			if err := tx.Agents.DeductResources(ctx, h.agent.AgentID, h.postFood, 0); err != nil {
				return err
			}
		}
		shortfall := upkeep - h.postFood
		lost := ceilDiv(shortfall, UpkeepFoodPerTile)
		if lost > owned {
			lost = owned
		}

		// 价值从低到高淘汰，同价值按坐标升序保证确定性
		sort.Slice(h.tiles, func(i, j int) bool {
			vi, vj := models.TerrainValue(h.tiles[i].Terrain), models.TerrainValue(h.tiles[j].Terrain)
			if vi != vj {
				return vi < vj
			}
			if h.tiles[i].Q != h.tiles[j].Q {
				return h.tiles[i].Q < h.tiles[j].Q
			}
			return h.tiles[i].R < h.tiles[j].R
		})

		for i := 0; i < lost; i++ {
			tile := h.tiles[i]
			if err := tx.Tiles.ClearOwner(ctx, tile.Q, tile.R); err != nil {
				return err
			}
			if h.agent.IsCapital(tile.Q, tile.R) {
				if err := tx.Agents.ClearCapital(ctx, h.agent.AgentID); err != nil {
					return err
				}
				h.agent.CapitalQ = nil
				h.agent.CapitalR = nil
			}

			desc := fmt.Sprintf("%s 因饥荒失去了地块 (%d, %d)", h.agent.Name, tile.Q, tile.R)
			if err := appendEvent(ctx, tx, models.EventStarvation, &h.agent.AgentID, desc, models.JSONMap{
				"q": tile.Q, "r": tile.R,
			}); err != nil {
				return err
			}

			tile.OwnerID = nil
			tile.Fortification = 0
			res.addEffect("tile_update", tilePayload(tile))
			res.StarvedTiles++
		}

		if h.agent.WebhookURL != "" && lost > 0 {
			res.addNotify(h.agent.AgentID, h.agent.WebhookURL, models.EventStarvation, map[string]interface{}{
				"lost_tiles": lost, "shortfall": shortfall,
			})
		}
	}
	return nil
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
