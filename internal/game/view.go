package game

import (
	"context"
	"sort"
	"time"

	"github.com/wfunc/hexland/internal/hexgrid"
	"github.com/wfunc/hexland/internal/models"
)

// TileView 对外展示的地块信息
type TileView struct {
	Q             int    `json:"q"`
	R             int    `json:"r"`
	Terrain       string `json:"terrain"`
	Owner         string `json:"owner,omitempty"`
	Fortification int    `json:"fortification"`
}

// MessageView 未读私信
type MessageView struct {
	ID      uint      `json:"id"`
	From    string    `json:"from"`
	Content string    `json:"content"`
	SentAt  time.Time `json:"sent_at"`
}

// TradeView 待处理交易
type TradeView struct {
	TradeID      string    `json:"trade_id"`
	ProposerID   string    `json:"proposer_id"`
	RecipientID  string    `json:"recipient_id"`
	OfferFood    int       `json:"offer_food"`
	OfferMetal   int       `json:"offer_metal"`
	RequestFood  int       `json:"request_food"`
	RequestMetal int       `json:"request_metal"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// ThreatView 针对己方领土的待结算攻击（不暴露投入量）
type ThreatView struct {
	Q         int       `json:"q"`
	R         int       `json:"r"`
	Attacker  string    `json:"attacker"`
	ResolveAt time.Time `json:"resolve_at"`
}

// EventView 公共事件
type EventView struct {
	Type        string         `json:"type"`
	ActorID     string         `json:"actor_id,omitempty"`
	Description string         `json:"description"`
	Payload     models.JSONMap `json:"payload,omitempty"`
	At          time.Time      `json:"at"`
}

// WorldState 智能体视角的世界快照（带战争迷雾）
type WorldState struct {
	AgentID    string `json:"agent_id"`
	Name       string `json:"name"`
	Food       int    `json:"food"`
	Metal      int    `json:"metal"`
	CapitalQ   *int   `json:"capital_q,omitempty"`
	CapitalR   *int   `json:"capital_r,omitempty"`
	Strategy   string `json:"strategy,omitempty"`
	Memory     string `json:"memory,omitempty"`

	Territories     []TileView    `json:"territories"`
	VisibleTiles    []TileView    `json:"visible_tiles"`
	UnreadMessages  []MessageView `json:"unread_messages"`
	PendingTrades   []TradeView   `json:"pending_trades"`
	IncomingAttacks []ThreatView  `json:"incoming_attacks"`
	RecentEvents    []EventView   `json:"recent_events"`

	Tick       int64      `json:"tick"`
	NextTickAt *time.Time `json:"next_tick_at,omitempty"`
}

// GetWorldState 返回智能体可见的世界状态。
// 己方领土完整可见；相邻地块中敌方占领的隐藏地形（战争迷雾）；
// 未读消息在返回后即标记已读。
func (e *Engine) GetWorldState(ctx context.Context, agentID string) (*WorldState, error) {
	agent, err := e.repos.Agent().FindByAgentID(ctx, agentID)
	if err != nil {
		return nil, err
	}

	owned, err := e.repos.Tile().FindByOwner(ctx, agentID)
	if err != nil {
		return nil, err
	}

	state := &WorldState{
		AgentID:  agent.AgentID,
		Name:     agent.Name,
		Food:     agent.Food,
		Metal:    agent.Metal,
		CapitalQ: agent.CapitalQ,
		CapitalR: agent.CapitalR,
		Strategy: agent.Strategy,
		Memory:   agent.Memory,
	}

	ownedSet := make(map[hexgrid.Coord]bool, len(owned))
	for _, tile := range owned {
		ownedSet[hexgrid.Coord{Q: tile.Q, R: tile.R}] = true
		state.Territories = append(state.Territories, TileView{
			Q:             tile.Q,
			R:             tile.R,
			Terrain:       string(tile.Terrain),
			Owner:         agentID,
			Fortification: tile.Fortification,
		})
	}

	// 相邻可见区：领土所有邻格去重后套用迷雾规则
	if len(owned) > 0 {
		all, err := e.repos.Tile().FindAll(ctx)
		if err != nil {
			return nil, err
		}
		byCoord := make(map[hexgrid.Coord]*models.Tile, len(all))
		for _, tile := range all {
			byCoord[hexgrid.Coord{Q: tile.Q, R: tile.R}] = tile
		}

		seen := make(map[hexgrid.Coord]bool)
		for _, tile := range owned {
			for _, n := range (hexgrid.Coord{Q: tile.Q, R: tile.R}).Neighbors() {
				if ownedSet[n] || seen[n] {
					continue
				}
				seen[n] = true
				neighbor, ok := byCoord[n]
				if !ok {
					continue
				}
				state.VisibleTiles = append(state.VisibleTiles, fogView(neighbor))
			}
		}
		sort.Slice(state.VisibleTiles, func(i, j int) bool {
			if state.VisibleTiles[i].Q != state.VisibleTiles[j].Q {
				return state.VisibleTiles[i].Q < state.VisibleTiles[j].Q
			}
			return state.VisibleTiles[i].R < state.VisibleTiles[j].R
		})
	}

	// 未读私信取出即标记已读
	messages, err := e.repos.Message().FindUnreadByRecipient(ctx, agentID)
	if err != nil {
		return nil, err
	}
	if len(messages) > 0 {
		ids := make([]uint, 0, len(messages))
		for _, msg := range messages {
			ids = append(ids, msg.ID)
			state.UnreadMessages = append(state.UnreadMessages, MessageView{
				ID:      msg.ID,
				From:    msg.SenderID,
				Content: msg.Content,
				SentAt:  msg.CreatedAt,
			})
		}
		if err := e.repos.Message().MarkRead(ctx, ids); err != nil {
			return nil, err
		}
	}

	trades, err := e.repos.Trade().FindPendingByParty(ctx, agentID)
	if err != nil {
		return nil, err
	}
	for _, trade := range trades {
		state.PendingTrades = append(state.PendingTrades, TradeView{
			TradeID:      trade.TradeID,
			ProposerID:   trade.ProposerID,
			RecipientID:  trade.RecipientID,
			OfferFood:    trade.OfferFood,
			OfferMetal:   trade.OfferMetal,
			RequestFood:  trade.RequestFood,
			RequestMetal: trade.RequestMetal,
			ExpiresAt:    trade.ExpiresAt,
		})
	}

	threats, err := e.repos.Attack().FindIncomingPending(ctx, agentID)
	if err != nil {
		return nil, err
	}
	for _, attack := range threats {
		state.IncomingAttacks = append(state.IncomingAttacks, ThreatView{
			Q:         attack.TargetQ,
			R:         attack.TargetR,
			Attacker:  attack.AttackerID,
			ResolveAt: attack.ResolveAt,
		})
	}

	events, err := e.repos.Event().Recent(ctx, e.cfg.EventHistorySize)
	if err != nil {
		return nil, err
	}
	for _, ev := range events {
		view := EventView{
			Type:        ev.Type,
			Description: ev.Description,
			Payload:     ev.Payload,
			At:          ev.CreatedAt,
		}
		if ev.ActorID != nil {
			view.ActorID = *ev.ActorID
		}
		state.RecentEvents = append(state.RecentEvents, view)
	}

	gs, err := e.repos.GameState().GetOrCreate(ctx, int(e.cfg.TickInterval.Seconds()), e.cfg.InitialRadius)
	if err != nil {
		return nil, err
	}
	state.Tick = gs.Tick
	if next := gs.NextTickAt(); !next.IsZero() {
		state.NextTickAt = &next
	}

	return state, nil
}

// fogView 相邻格的迷雾视图：敌占格隐藏地形，无主格地形可见
func fogView(tile *models.Tile) TileView {
	view := TileView{
		Q:             tile.Q,
		R:             tile.R,
		Terrain:       string(tile.Terrain),
		Fortification: tile.Fortification,
	}
	if tile.IsOwned() {
		view.Owner = *tile.OwnerID
		view.Terrain = string(models.TerrainUnknown)
	}
	return view
}

// GetPublicMap 公共地图：全部地块，无主地块的地形对外隐藏
func (e *Engine) GetPublicMap(ctx context.Context) ([]TileView, error) {
	tiles, err := e.repos.Tile().FindAll(ctx)
	if err != nil {
		return nil, err
	}

	views := make([]TileView, 0, len(tiles))
	for _, tile := range tiles {
		view := TileView{
			Q:             tile.Q,
			R:             tile.R,
			Terrain:       string(tile.Terrain),
			Fortification: tile.Fortification,
		}
		if tile.IsOwned() {
			view.Owner = *tile.OwnerID
		} else {
			view.Terrain = string(models.TerrainUnknown)
		}
		views = append(views, view)
	}
	return views, nil
}

// GetRecentEvents 公共事件流，最新的在前
func (e *Engine) GetRecentEvents(ctx context.Context, limit int) ([]EventView, error) {
	if limit <= 0 || limit > e.cfg.EventHistorySize {
		limit = e.cfg.EventHistorySize
	}
	events, err := e.repos.Event().Recent(ctx, limit)
	if err != nil {
		return nil, err
	}

	views := make([]EventView, 0, len(events))
	for _, ev := range events {
		view := EventView{
			Type:        ev.Type,
			Description: ev.Description,
			Payload:     ev.Payload,
			At:          ev.CreatedAt,
		}
		if ev.ActorID != nil {
			view.ActorID = *ev.ActorID
		}
		views = append(views, view)
	}
	return views, nil
}

// UpdateMemory 智能体更新自存的记忆数据
func (e *Engine) UpdateMemory(ctx context.Context, agentID, memory string) error {
	if _, err := e.repos.Agent().FindByAgentID(ctx, agentID); err != nil {
		return err
	}
	return e.repos.Agent().UpdateMemory(ctx, agentID, memory)
}

// UpdateStrategy 更新人工设定的策略文本
func (e *Engine) UpdateStrategy(ctx context.Context, agentID, strategy string) error {
	if _, err := e.repos.Agent().FindByAgentID(ctx, agentID); err != nil {
		return err
	}
	return e.repos.Agent().UpdateStrategy(ctx, agentID, strategy)
}

// UpdateWebhook 更新通知回调地址
func (e *Engine) UpdateWebhook(ctx context.Context, agentID, url string) error {
	if _, err := e.repos.Agent().FindByAgentID(ctx, agentID); err != nil {
		return err
	}
	return e.repos.Agent().UpdateWebhookURL(ctx, agentID, url)
}
