package game

import (
	"context"
	"fmt"
	"time"

	"github.com/wfunc/hexland/internal/errors"
	"github.com/wfunc/hexland/internal/hexgrid"
	"github.com/wfunc/hexland/internal/logger"
	"github.com/wfunc/hexland/internal/models"
	"github.com/wfunc/hexland/internal/repository"
	"go.uber.org/zap"
)

// rollTerrain 按权重分布抽取地形
func (e *Engine) rollTerrain() models.Terrain {
	n := e.rng.Intn(100)
	switch {
	case n < TerrainWeightFarmland:
		return models.TerrainFarmland
	case n < TerrainWeightFarmland+TerrainWeightMine:
		return models.TerrainMine
	case n < TerrainWeightFarmland+TerrainWeightMine+TerrainWeightMixed:
		return models.TerrainMixed
	default:
		return models.TerrainBarren
	}
}

// EnsureWorld 服务启动时调用：地图为空则生成初始地块，并确保全局状态记录存在
func (e *Engine) EnsureWorld(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.repos.TxManager().WithTransaction(ctx, func(tx *repository.Transaction) error {
		if _, err := tx.GameState.GetOrCreate(ctx, int(e.cfg.TickInterval.Seconds()), e.cfg.InitialRadius); err != nil {
			return err
		}

		count, err := tx.Tiles.CountUnclaimed(ctx)
		if err != nil {
			return err
		}
		total := count
		if total == 0 {
			var all int64
			if err := tx.DB().Model(&models.Tile{}).Count(&all).Error; err != nil {
				return err
			}
			total = all
		}
		if total > 0 {
			return nil
		}

		coords := hexgrid.Spiral(hexgrid.Coord{}, e.cfg.InitialRadius)
		tiles := make([]*models.Tile, 0, len(coords))
		for _, c := range coords {
			tiles = append(tiles, &models.Tile{Q: c.Q, R: c.R, Terrain: e.rollTerrain()})
		}
		if err := tx.Tiles.CreateInBatches(ctx, tiles, 200); err != nil {
			return err
		}

		logger.WithModule("world").Info("初始地图生成完成",
			zap.Int("radius", e.cfg.InitialRadius),
			zap.Int("tiles", len(tiles)))
		return nil
	})
}

// maybeExpandGrid 无主地块不足时向外扩张地图，每次增加两圈
func (e *Engine) maybeExpandGrid(ctx context.Context, tx *repository.Transaction, res *ActionResult) error {
	for {
		unclaimed, err := tx.Tiles.CountUnclaimed(ctx)
		if err != nil {
			return err
		}
		if unclaimed >= ExpandThreshold {
			return nil
		}

		state, err := tx.GameState.GetOrCreate(ctx, int(e.cfg.TickInterval.Seconds()), e.cfg.InitialRadius)
		if err != nil {
			return err
		}

		newRadius := state.GridRadius + ExpandRings
		var tiles []*models.Tile
		for radius := state.GridRadius + 1; radius <= newRadius; radius++ {
			for _, c := range hexgrid.Ring(hexgrid.Coord{}, radius) {
				tiles = append(tiles, &models.Tile{Q: c.Q, R: c.R, Terrain: e.rollTerrain()})
			}
		}
		if err := tx.Tiles.CreateInBatches(ctx, tiles, 200); err != nil {
			return err
		}
		if err := tx.GameState.UpdateGridRadius(ctx, newRadius); err != nil {
			return err
		}

		desc := fmt.Sprintf("地图扩张至半径 %d", newRadius)
		if err := appendEvent(ctx, tx, models.EventMapExpanded, nil, desc, models.JSONMap{
			"radius": newRadius, "new_tiles": len(tiles),
		}); err != nil {
			return err
		}

		logger.WithModule("world").Info("地图已扩张",
			zap.Int("radius", newRadius),
			zap.Int("new_tiles", len(tiles)))
		res.addEffect(models.EventMapExpanded, map[string]interface{}{
			"radius": newRadius, "new_tiles": len(tiles),
		})
	}
}

// JoinAgent 新智能体加入：分配离中心最近的无主地块作为首都，发放初始资源
func (e *Engine) JoinAgent(ctx context.Context, agentID, name, webhookURL string) (*ActionResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if agentID == "" || name == "" {
		return nil, errors.New(errors.ErrInvalidParam, "缺少智能体ID或名称")
	}

	now := time.Now()
	res := &ActionResult{Data: make(map[string]interface{})}

	err := e.repos.TxManager().WithTransaction(ctx, func(tx *repository.Transaction) error {
		if existing, err := tx.Agents.FindByAgentID(ctx, agentID); err == nil && existing != nil {
			return errors.New(errors.ErrAlreadyExists, "智能体ID已被使用")
		}
		if existing, err := tx.Agents.FindByName(ctx, name); err == nil && existing != nil {
			return errors.New(errors.ErrAlreadyExists, "名称已被使用")
		}

		// 先保证有足够的无主地块可分配
		if err := e.maybeExpandGrid(ctx, tx, res); err != nil {
			return err
		}

		capital, err := pickCapitalTile(ctx, tx)
		if err != nil {
			return err
		}

		agent := &models.Agent{
			AgentID:    agentID,
			Name:       name,
			Food:       e.cfg.StartingFood,
			Metal:      e.cfg.StartingMetal,
			CapitalQ:   &capital.Q,
			CapitalR:   &capital.R,
			WebhookURL: webhookURL,
			LastSeenAt: &now,
		}
		if err := tx.Agents.Create(ctx, agent); err != nil {
			return err
		}
		if err := tx.Tiles.SetOwner(ctx, capital.Q, capital.R, agentID, 0); err != nil {
			return err
		}

		desc := fmt.Sprintf("%s 加入了游戏，首都位于 (%d, %d)", name, capital.Q, capital.R)
		if err := appendEvent(ctx, tx, models.EventAgentJoined, &agentID, desc, models.JSONMap{
			"name": name, "q": capital.Q, "r": capital.R,
		}); err != nil {
			return err
		}

		capital.OwnerID = &agentID
		res.Message = desc
		res.Data["capital_q"] = capital.Q
		res.Data["capital_r"] = capital.R
		res.Data["food"] = e.cfg.StartingFood
		res.Data["metal"] = e.cfg.StartingMetal
		res.addEffect(models.EventAgentJoined, map[string]interface{}{
			"agent_id": agentID, "name": name, "q": capital.Q, "r": capital.R,
		})
		res.addEffect("tile_update", tilePayload(capital))
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.LogGameEvent(models.EventAgentJoined, agentID, res.Data)
	e.dispatch(res.effects)
	return res, nil
}

// pickCapitalTile 选择离原点最近的无主地块，距离相同按坐标升序
func pickCapitalTile(ctx context.Context, tx *repository.Transaction) (*models.Tile, error) {
	unclaimed, err := tx.Tiles.FindUnclaimed(ctx)
	if err != nil {
		return nil, err
	}
	if len(unclaimed) == 0 {
		return nil, errors.New(errors.ErrTileNotFound, "没有可分配的地块")
	}

	origin := hexgrid.Coord{}
	best := unclaimed[0]
	bestDist := hexgrid.Distance(hexgrid.Coord{Q: best.Q, R: best.R}, origin)
	for _, tile := range unclaimed[1:] {
		d := hexgrid.Distance(hexgrid.Coord{Q: tile.Q, R: tile.R}, origin)
		if d < bestDist ||
			(d == bestDist && (tile.Q < best.Q || (tile.Q == best.Q && tile.R < best.R))) {
			best = tile
			bestDist = d
		}
	}
	return best, nil
}

// Reset 管理员重置：清空对局数据并重新生成地图。
// keep 列出保留的智能体，它们的资源回到初始值并重新分配一块起始地块。
func (e *Engine) Reset(ctx context.Context, keep []string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	err := e.repos.TxManager().WithTransaction(ctx, func(tx *repository.Transaction) error {
		if err := tx.Attacks.DeleteAll(ctx); err != nil {
			return err
		}
		if err := tx.Trades.DeleteAll(ctx); err != nil {
			return err
		}
		if err := tx.Messages.DeleteAll(ctx); err != nil {
			return err
		}
		if err := tx.Events.DeleteAll(ctx); err != nil {
			return err
		}
		if err := tx.Tiles.DeleteAll(ctx); err != nil {
			return err
		}
		if err := tx.Agents.DeleteAllExcept(ctx, keep); err != nil {
			return err
		}
		if err := tx.GameState.ResetTick(ctx); err != nil {
			return err
		}
		if err := tx.GameState.UpdateGridRadius(ctx, e.cfg.InitialRadius); err != nil {
			return err
		}

		coords := hexgrid.Spiral(hexgrid.Coord{}, e.cfg.InitialRadius)
		tiles := make([]*models.Tile, 0, len(coords))
		for _, c := range coords {
			tiles = append(tiles, &models.Tile{Q: c.Q, R: c.R, Terrain: e.rollTerrain()})
		}
		if err := tx.Tiles.CreateInBatches(ctx, tiles, 200); err != nil {
			return err
		}

		// 保留的智能体回到加入时的状态：初始资源加一块新首都
		survivors, err := tx.Agents.GetAll(ctx)
		if err != nil {
			return err
		}
		for _, agent := range survivors {
			capital, err := pickCapitalTile(ctx, tx)
			if err != nil {
				return err
			}
			if err := tx.Tiles.SetOwner(ctx, capital.Q, capital.R, agent.AgentID, 0); err != nil {
				return err
			}

			agent.Food = e.cfg.StartingFood
			agent.Metal = e.cfg.StartingMetal
			agent.CapitalQ = &capital.Q
			agent.CapitalR = &capital.R
			if err := tx.Agents.Update(ctx, agent); err != nil {
				return err
			}
		}

		return appendEvent(ctx, tx, models.EventGameReset, nil, "游戏已重置", models.JSONMap{
			"radius": e.cfg.InitialRadius, "kept_agents": len(survivors),
		})
	})
	if err != nil {
		return err
	}

	logger.WithModule("world").Warn("游戏已被管理员重置")
	e.dispatch([]postEffect{{eventType: models.EventGameReset, payload: map[string]interface{}{}}})
	return nil
}
