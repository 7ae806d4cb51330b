package game

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/wfunc/hexland/internal/errors"
	"github.com/wfunc/hexland/internal/hexgrid"
	"github.com/wfunc/hexland/internal/models"
	"github.com/wfunc/hexland/internal/repository"
)

// coordOf 提取并校验坐标参数
func coordOf(req *ActionRequest) (int, int, error) {
	if req.Q == nil || req.R == nil {
		return 0, 0, errors.New(errors.ErrInvalidParam, "缺少坐标参数 q/r")
	}
	return *req.Q, *req.R, nil
}

// requireAdjacent 校验目标格与己方领土相邻
func requireAdjacent(ctx context.Context, tx *repository.Transaction, agentID string, q, r int) error {
	neighbors := hexgrid.Coord{Q: q, R: r}.Neighbors()
	count, err := tx.Tiles.CountOwnedIn(ctx, agentID, neighbors[:])
	if err != nil {
		return err
	}
	if count == 0 {
		return errors.New(errors.ErrNotAdjacent)
	}
	return nil
}

// findRecipient 查找目标智能体并排除自指
func findRecipient(ctx context.Context, tx *repository.Transaction, self *models.Agent, targetID string) (*models.Agent, error) {
	if targetID == "" {
		return nil, errors.New(errors.ErrInvalidParam, "缺少目标智能体")
	}
	if targetID == self.AgentID {
		return nil, errors.New(errors.ErrSelfTarget)
	}
	return tx.Agents.FindByAgentID(ctx, targetID)
}

// doExpand 扩张：占领一块相邻的无主地块
func (e *Engine) doExpand(ctx context.Context, tx *repository.Transaction, agent *models.Agent, req *ActionRequest, res *ActionResult) error {
	q, r, err := coordOf(req)
	if err != nil {
		return err
	}

	tile, err := tx.Tiles.FindByCoord(ctx, q, r)
	if err != nil {
		return err
	}
	if tile.IsOwned() {
		return errors.New(errors.ErrTileOwned)
	}
	if err := requireAdjacent(ctx, tx, agent.AgentID, q, r); err != nil {
		return err
	}

	// 先报更准确的余额错误，再做带守卫的扣减
	if agent.Food < ExpandFoodCost {
		return errors.Newf(errors.ErrInsufficientFood, "需要 %d，当前 %d", ExpandFoodCost, agent.Food)
	}
	if agent.Metal < ExpandMetalCost {
		return errors.Newf(errors.ErrInsufficientMetal, "需要 %d，当前 %d", ExpandMetalCost, agent.Metal)
	}
	if err := tx.Agents.DeductResources(ctx, agent.AgentID, ExpandFoodCost, ExpandMetalCost); err != nil {
		return err
	}
	if err := tx.Tiles.SetOwner(ctx, q, r, agent.AgentID, 0); err != nil {
		return err
	}

	desc := fmt.Sprintf("%s 占领了地块 (%d, %d)", agent.Name, q, r)
	if err := appendEvent(ctx, tx, models.EventExpand, &agent.AgentID, desc, models.JSONMap{
		"q": q, "r": r, "terrain": string(tile.Terrain),
	}); err != nil {
		return err
	}

	tile.OwnerID = &agent.AgentID
	tile.Fortification = 0
	res.Message = desc
	res.Data["q"] = q
	res.Data["r"] = r
	res.Data["terrain"] = string(tile.Terrain)
	res.addEffect("tile_update", tilePayload(tile))

	// 无主地块见底时顺带扩张地图
	return e.maybeExpandGrid(ctx, tx, res)
}

// doAttack 宣战：立即扣除投入的金属，延迟结算
func (e *Engine) doAttack(ctx context.Context, tx *repository.Transaction, agent *models.Agent, req *ActionRequest, now time.Time, res *ActionResult) error {
	q, r, err := coordOf(req)
	if err != nil {
		return err
	}
	if req.Commitment <= 0 {
		return errors.New(errors.ErrInvalidAmount, "攻击投入必须大于 0")
	}

	tile, err := tx.Tiles.FindByCoord(ctx, q, r)
	if err != nil {
		return err
	}
	if !tile.IsOwned() {
		return errors.New(errors.ErrTileUnowned, "无主地块请使用扩张")
	}
	if tile.IsOwnedBy(agent.AgentID) {
		return errors.New(errors.ErrSelfTarget, "不能攻击自己的地块")
	}
	if err := requireAdjacent(ctx, tx, agent.AgentID, q, r); err != nil {
		return err
	}

	if agent.Metal < req.Commitment {
		return errors.Newf(errors.ErrInsufficientMetal, "需要 %d，当前 %d", req.Commitment, agent.Metal)
	}
	// 投入立即扣除，无论结算胜负都不退还
	if err := tx.Agents.DeductResources(ctx, agent.AgentID, 0, req.Commitment); err != nil {
		return err
	}

	attack := &models.Attack{
		AttackID:   uuid.New().String(),
		AttackerID: agent.AgentID,
		TargetQ:    q,
		TargetR:    r,
		Commitment: req.Commitment,
		Status:     models.AttackStatusPending,
		ResolveAt:  now.Add(AttackResolveDelay),
	}
	if err := tx.Attacks.Create(ctx, attack); err != nil {
		return err
	}

	// 公共事件不暴露投入量
	desc := fmt.Sprintf("%s 对地块 (%d, %d) 宣战", agent.Name, q, r)
	if err := appendEvent(ctx, tx, models.EventAttackDeclared, &agent.AgentID, desc, models.JSONMap{
		"q": q, "r": r, "resolve_at": attack.ResolveAt,
	}); err != nil {
		return err
	}

	res.Message = desc
	res.Data["attack_id"] = attack.AttackID
	res.Data["resolve_at"] = attack.ResolveAt
	res.addEffect(models.EventAttackDeclared, map[string]interface{}{
		"attacker": agent.AgentID, "q": q, "r": r, "resolve_at": attack.ResolveAt,
	})

	// 通知防守方（查不到防守方时静默跳过，不影响宣战本身）
	if defender, derr := tx.Agents.FindByAgentID(ctx, *tile.OwnerID); derr == nil && defender.WebhookURL != "" {
		res.addNotify(defender.AgentID, defender.WebhookURL, models.EventAttackDeclared, map[string]interface{}{
			"attacker": agent.AgentID, "q": q, "r": r, "resolve_at": attack.ResolveAt,
		})
	}
	return nil
}

// doFortify 加固：金属 1:1 转化为地块防御加成
func (e *Engine) doFortify(ctx context.Context, tx *repository.Transaction, agent *models.Agent, req *ActionRequest, res *ActionResult) error {
	q, r, err := coordOf(req)
	if err != nil {
		return err
	}
	if req.Metal <= 0 {
		return errors.New(errors.ErrInvalidAmount, "加固数量必须大于 0")
	}

	tile, err := tx.Tiles.FindByCoord(ctx, q, r)
	if err != nil {
		return err
	}
	if !tile.IsOwnedBy(agent.AgentID) {
		return errors.New(errors.ErrNotTileOwner)
	}

	if agent.Metal < req.Metal {
		return errors.Newf(errors.ErrInsufficientMetal, "需要 %d，当前 %d", req.Metal, agent.Metal)
	}
	if err := tx.Agents.DeductResources(ctx, agent.AgentID, 0, req.Metal); err != nil {
		return err
	}
	if err := tx.Tiles.AddFortification(ctx, q, r, req.Metal); err != nil {
		return err
	}

	desc := fmt.Sprintf("%s 加固了地块 (%d, %d)", agent.Name, q, r)
	if err := appendEvent(ctx, tx, models.EventFortify, &agent.AgentID, desc, models.JSONMap{
		"q": q, "r": r,
	}); err != nil {
		return err
	}

	tile.Fortification += req.Metal
	res.Message = desc
	res.Data["fortification"] = tile.Fortification
	res.addEffect("tile_update", tilePayload(tile))
	return nil
}

// doGiftTile 赠送地块：转移归属，防御加成保留
func (e *Engine) doGiftTile(ctx context.Context, tx *repository.Transaction, agent *models.Agent, req *ActionRequest, res *ActionResult) error {
	q, r, err := coordOf(req)
	if err != nil {
		return err
	}
	recipient, err := findRecipient(ctx, tx, agent, req.TargetAgent)
	if err != nil {
		return err
	}

	tile, err := tx.Tiles.FindByCoord(ctx, q, r)
	if err != nil {
		return err
	}
	if !tile.IsOwnedBy(agent.AgentID) {
		return errors.New(errors.ErrNotTileOwner)
	}

	if err := tx.Tiles.TransferOwner(ctx, q, r, recipient.AgentID); err != nil {
		return err
	}
	// 送出的是首都时清除首都标记
	if agent.IsCapital(q, r) {
		if err := tx.Agents.ClearCapital(ctx, agent.AgentID); err != nil {
			return err
		}
	}

	desc := fmt.Sprintf("%s 将地块 (%d, %d) 赠与 %s", agent.Name, q, r, recipient.Name)
	if err := appendEvent(ctx, tx, models.EventGift, &agent.AgentID, desc, models.JSONMap{
		"q": q, "r": r, "recipient": recipient.AgentID,
	}); err != nil {
		return err
	}

	tile.OwnerID = &recipient.AgentID
	res.Message = desc
	res.addEffect("tile_update", tilePayload(tile))
	if recipient.WebhookURL != "" {
		res.addNotify(recipient.AgentID, recipient.WebhookURL, models.EventGift, map[string]interface{}{
			"from": agent.AgentID, "q": q, "r": r,
		})
	}
	return nil
}

// doGiftResources 赠送资源：原子转账
func (e *Engine) doGiftResources(ctx context.Context, tx *repository.Transaction, agent *models.Agent, req *ActionRequest, res *ActionResult) error {
	if req.Food < 0 || req.Metal < 0 || (req.Food == 0 && req.Metal == 0) {
		return errors.New(errors.ErrInvalidAmount)
	}
	recipient, err := findRecipient(ctx, tx, agent, req.TargetAgent)
	if err != nil {
		return err
	}

	if agent.Food < req.Food {
		return errors.Newf(errors.ErrInsufficientFood, "需要 %d，当前 %d", req.Food, agent.Food)
	}
	if agent.Metal < req.Metal {
		return errors.Newf(errors.ErrInsufficientMetal, "需要 %d，当前 %d", req.Metal, agent.Metal)
	}
	if err := tx.Agents.DeductResources(ctx, agent.AgentID, req.Food, req.Metal); err != nil {
		return err
	}
	if err := tx.Agents.AddResources(ctx, recipient.AgentID, req.Food, req.Metal); err != nil {
		return err
	}

	desc := fmt.Sprintf("%s 向 %s 赠送了资源", agent.Name, recipient.Name)
	if err := appendEvent(ctx, tx, models.EventGift, &agent.AgentID, desc, models.JSONMap{
		"recipient": recipient.AgentID, "food": req.Food, "metal": req.Metal,
	}); err != nil {
		return err
	}

	res.Message = desc
	if recipient.WebhookURL != "" {
		res.addNotify(recipient.AgentID, recipient.WebhookURL, models.EventGift, map[string]interface{}{
			"from": agent.AgentID, "food": req.Food, "metal": req.Metal,
		})
	}
	return nil
}

// doSetCapital 设定首都
func (e *Engine) doSetCapital(ctx context.Context, tx *repository.Transaction, agent *models.Agent, req *ActionRequest, res *ActionResult) error {
	q, r, err := coordOf(req)
	if err != nil {
		return err
	}

	tile, err := tx.Tiles.FindByCoord(ctx, q, r)
	if err != nil {
		return err
	}
	if !tile.IsOwnedBy(agent.AgentID) {
		return errors.New(errors.ErrNotTileOwner)
	}

	if err := tx.Agents.SetCapital(ctx, agent.AgentID, q, r); err != nil {
		return err
	}

	desc := fmt.Sprintf("%s 将首都迁至 (%d, %d)", agent.Name, q, r)
	if err := appendEvent(ctx, tx, models.EventSetCapital, &agent.AgentID, desc, models.JSONMap{
		"q": q, "r": r,
	}); err != nil {
		return err
	}

	res.Message = desc
	return nil
}

// doSendMessage 私信：不写入公共事件日志
func (e *Engine) doSendMessage(ctx context.Context, tx *repository.Transaction, agent *models.Agent, req *ActionRequest, res *ActionResult) error {
	if req.Content == "" {
		return errors.New(errors.ErrInvalidParam, "消息内容不能为空")
	}
	if len(req.Content) > MessageMaxLength {
		return errors.Newf(errors.ErrInvalidParam, "消息长度超过上限 %d", MessageMaxLength)
	}
	recipient, err := findRecipient(ctx, tx, agent, req.TargetAgent)
	if err != nil {
		return err
	}

	if err := tx.Messages.Create(ctx, &models.Message{
		SenderID:    agent.AgentID,
		RecipientID: recipient.AgentID,
		Content:     req.Content,
	}); err != nil {
		return err
	}

	res.Message = "消息已发送"
	if recipient.WebhookURL != "" {
		res.addNotify(recipient.AgentID, recipient.WebhookURL, "message", map[string]interface{}{
			"from": agent.AgentID, "content": req.Content,
		})
	}
	return nil
}

// doProposeTrade 提出交易：资源在接受时才转移，提案阶段只校验不冻结
func (e *Engine) doProposeTrade(ctx context.Context, tx *repository.Transaction, agent *models.Agent, req *ActionRequest, now time.Time, res *ActionResult) error {
	if req.OfferFood < 0 || req.OfferMetal < 0 || req.RequestFood < 0 || req.RequestMetal < 0 {
		return errors.New(errors.ErrInvalidAmount)
	}
	if req.OfferFood == 0 && req.OfferMetal == 0 && req.RequestFood == 0 && req.RequestMetal == 0 {
		return errors.New(errors.ErrInvalidAmount, "交易条款不能全部为零")
	}
	recipient, err := findRecipient(ctx, tx, agent, req.TargetAgent)
	if err != nil {
		return err
	}

	if agent.Food < req.OfferFood {
		return errors.Newf(errors.ErrInsufficientFood, "需要 %d，当前 %d", req.OfferFood, agent.Food)
	}
	if agent.Metal < req.OfferMetal {
		return errors.Newf(errors.ErrInsufficientMetal, "需要 %d，当前 %d", req.OfferMetal, agent.Metal)
	}

	trade := &models.Trade{
		TradeID:      uuid.New().String(),
		ProposerID:   agent.AgentID,
		RecipientID:  recipient.AgentID,
		OfferFood:    req.OfferFood,
		OfferMetal:   req.OfferMetal,
		RequestFood:  req.RequestFood,
		RequestMetal: req.RequestMetal,
		Status:       models.TradeStatusPending,
		ExpiresAt:    now.Add(TradeExpiry),
	}
	if err := tx.Trades.Create(ctx, trade); err != nil {
		return err
	}

	// 公共日志只记录事实，条款不公开
	desc := fmt.Sprintf("%s 向 %s 提出了一项交易", agent.Name, recipient.Name)
	if err := appendEvent(ctx, tx, models.EventTradeProposed, &agent.AgentID, desc, models.JSONMap{
		"recipient": recipient.AgentID,
	}); err != nil {
		return err
	}

	res.Message = desc
	res.Data["trade_id"] = trade.TradeID
	res.Data["expires_at"] = trade.ExpiresAt
	if recipient.WebhookURL != "" {
		res.addNotify(recipient.AgentID, recipient.WebhookURL, models.EventTradeProposed, map[string]interface{}{
			"trade_id":      trade.TradeID,
			"proposer":      agent.AgentID,
			"offer_food":    trade.OfferFood,
			"offer_metal":   trade.OfferMetal,
			"request_food":  trade.RequestFood,
			"request_metal": trade.RequestMetal,
			"expires_at":    trade.ExpiresAt,
		})
	}
	return nil
}

// doAcceptTrade 接受交易：四路余额调整必须整体成功
func (e *Engine) doAcceptTrade(ctx context.Context, tx *repository.Transaction, agent *models.Agent, req *ActionRequest, res *ActionResult) error {
	if req.TradeID == "" {
		return errors.New(errors.ErrInvalidParam, "缺少交易编号")
	}
	trade, err := tx.Trades.FindByTradeID(ctx, req.TradeID)
	if err != nil {
		return err
	}
	if !trade.IsPending() {
		return errors.New(errors.ErrTradeClosed)
	}
	if trade.RecipientID != agent.AgentID {
		return errors.New(errors.ErrTradeWrongParty)
	}

	// 过期标记必须随事务提交，失败原因通过 res.failure 带回调用方
	now := time.Now()
	if trade.IsExpired(now) {
		if err := tx.Trades.MarkStatus(ctx, trade.TradeID, models.TradeStatusExpired); err != nil {
			return err
		}
		res.failure = errors.New(errors.ErrTradeExpired)
		return nil
	}

	// 提案方状态已失效时自动过期，不让整单报错
	proposer, err := tx.Agents.FindByAgentID(ctx, trade.ProposerID)
	if err != nil {
		if markErr := tx.Trades.MarkStatus(ctx, trade.TradeID, models.TradeStatusExpired); markErr != nil {
			return markErr
		}
		res.failure = errors.New(errors.ErrTradeExpired, "提案方已不存在")
		return nil
	}
	if proposer.Food < trade.OfferFood || proposer.Metal < trade.OfferMetal {
		if err := tx.Trades.MarkStatus(ctx, trade.TradeID, models.TradeStatusExpired); err != nil {
			return err
		}
		res.failure = errors.New(errors.ErrTradeExpired, "提案方余额不足")
		return nil
	}
	if agent.Food < trade.RequestFood || agent.Metal < trade.RequestMetal {
		return errors.New(errors.ErrTradeBalance)
	}

	if err := tx.Agents.DeductResources(ctx, proposer.AgentID, trade.OfferFood, trade.OfferMetal); err != nil {
		return err
	}
	if err := tx.Agents.AddResources(ctx, proposer.AgentID, trade.RequestFood, trade.RequestMetal); err != nil {
		return err
	}
	if err := tx.Agents.DeductResources(ctx, agent.AgentID, trade.RequestFood, trade.RequestMetal); err != nil {
		return err
	}
	if err := tx.Agents.AddResources(ctx, agent.AgentID, trade.OfferFood, trade.OfferMetal); err != nil {
		return err
	}
	if err := tx.Trades.MarkStatus(ctx, trade.TradeID, models.TradeStatusAccepted); err != nil {
		return err
	}

	desc := fmt.Sprintf("%s 接受了 %s 的交易", agent.Name, proposer.Name)
	if err := appendEvent(ctx, tx, models.EventTradeAccepted, &agent.AgentID, desc, models.JSONMap{
		"proposer": proposer.AgentID,
	}); err != nil {
		return err
	}

	res.Message = desc
	res.Data["trade_id"] = trade.TradeID
	if proposer.WebhookURL != "" {
		res.addNotify(proposer.AgentID, proposer.WebhookURL, models.EventTradeAccepted, map[string]interface{}{
			"trade_id": trade.TradeID, "accepter": agent.AgentID,
		})
	}
	return nil
}

// doRejectTrade 拒绝交易
func (e *Engine) doRejectTrade(ctx context.Context, tx *repository.Transaction, agent *models.Agent, req *ActionRequest, res *ActionResult) error {
	if req.TradeID == "" {
		return errors.New(errors.ErrInvalidParam, "缺少交易编号")
	}
	trade, err := tx.Trades.FindByTradeID(ctx, req.TradeID)
	if err != nil {
		return err
	}
	if !trade.IsPending() {
		return errors.New(errors.ErrTradeClosed)
	}
	if trade.RecipientID != agent.AgentID {
		return errors.New(errors.ErrTradeWrongParty)
	}

	if err := tx.Trades.MarkStatus(ctx, trade.TradeID, models.TradeStatusRejected); err != nil {
		return err
	}

	res.Message = "交易已拒绝"
	res.Data["trade_id"] = trade.TradeID
	return nil
}
