package game

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/wfunc/hexland/internal/config"
	"github.com/wfunc/hexland/internal/errors"
	"github.com/wfunc/hexland/internal/hexgrid"
	"github.com/wfunc/hexland/internal/models"
	"github.com/wfunc/hexland/internal/repository"
	"gorm.io/gorm"
)

// testGameConfig 测试用的游戏参数
func testGameConfig() config.GameConfig {
	return config.GameConfig{
		TickInterval:     2 * time.Hour,
		CheckInterval:    time.Minute,
		InitialRadius:    3,
		StartingFood:     100,
		StartingMetal:    50,
		EventHistorySize: 50,
	}
}

// ActionTestSuite 行动执行测试套件
type ActionTestSuite struct {
	suite.Suite
	ctx    context.Context
	db     *gorm.DB
	repos  *repository.Manager
	engine *Engine
}

func (suite *ActionTestSuite) SetupTest() {
	suite.ctx = context.Background()
	suite.db = repository.SetupTestDB()
	suite.repos = repository.NewManager(suite.db)
	suite.engine = NewEngine(suite.repos, testGameConfig())
	suite.engine.rng = rand.New(rand.NewSource(42))
}

func (suite *ActionTestSuite) TearDownTest() {
	repository.CleanupTestDB(suite.db)
}

// seedWorld 铺一圈手工地形，保证测试的确定性
func (suite *ActionTestSuite) seedWorld() {
	terrains := map[hexgrid.Coord]models.Terrain{
		{Q: 0, R: 0}:  models.TerrainFarmland,
		{Q: 1, R: 0}:  models.TerrainFarmland,
		{Q: 1, R: -1}: models.TerrainMine,
		{Q: 0, R: -1}: models.TerrainMixed,
		{Q: -1, R: 0}: models.TerrainBarren,
		{Q: -1, R: 1}: models.TerrainBarren,
		{Q: 0, R: 1}:  models.TerrainMine,
		{Q: 2, R: 0}:  models.TerrainBarren,
	}
	// 外围再补一层荒地，避免触发地图扩张干扰断言
	for _, c := range hexgrid.Spiral(hexgrid.Coord{}, 4) {
		if _, ok := terrains[c]; !ok {
			terrains[c] = models.TerrainBarren
		}
	}
	for c, terrain := range terrains {
		repository.CreateTestTile(suite.db, c.Q, c.R, terrain, "")
	}
}

func (suite *ActionTestSuite) ownTile(q, r int, agentID string) {
	err := suite.repos.Tile().SetOwner(suite.ctx, q, r, agentID, 0)
	suite.NoError(err)
}

func intPtr(v int) *int { return &v }

// TestExpand 基础扩张：扣20食物10金属，地块归属变更
func (suite *ActionTestSuite) TestExpand() {
	suite.seedWorld()
	repository.CreateTestAgent(suite.db, "alice", "爱丽丝", 100, 50)
	suite.ownTile(0, 0, "alice")

	result, err := suite.engine.SubmitAction(suite.ctx, "alice", &ActionRequest{
		Type: ActionExpand, Q: intPtr(1), R: intPtr(0),
	})
	assert.NoError(suite.T(), err)
	assert.NotEmpty(suite.T(), result.Message)

	agent, _ := suite.repos.Agent().FindByAgentID(suite.ctx, "alice")
	assert.Equal(suite.T(), 80, agent.Food)
	assert.Equal(suite.T(), 40, agent.Metal)

	tile, _ := suite.repos.Tile().FindByCoord(suite.ctx, 1, 0)
	assert.True(suite.T(), tile.IsOwnedBy("alice"))
	assert.Equal(suite.T(), 0, tile.Fortification)

	// 扩张事件已记录
	events, _ := suite.repos.Event().RecentByType(suite.ctx, models.EventExpand, 10)
	assert.Len(suite.T(), events, 1)
}

// TestExpand_Preconditions 扩张的各类前置条件失败
func (suite *ActionTestSuite) TestExpand_Preconditions() {
	suite.seedWorld()
	repository.CreateTestAgent(suite.db, "alice", "爱丽丝", 100, 50)
	repository.CreateTestAgent(suite.db, "bob", "鲍勃", 100, 50)
	suite.ownTile(0, 0, "alice")
	suite.ownTile(1, 0, "bob")

	// 目标已有归属
	_, err := suite.engine.SubmitAction(suite.ctx, "alice", &ActionRequest{
		Type: ActionExpand, Q: intPtr(1), R: intPtr(0),
	})
	assert.True(suite.T(), errors.Is(err, errors.ErrTileOwned))

	// 目标不与己方领土相邻
	_, err = suite.engine.SubmitAction(suite.ctx, "alice", &ActionRequest{
		Type: ActionExpand, Q: intPtr(3), R: intPtr(0),
	})
	assert.True(suite.T(), errors.Is(err, errors.ErrNotAdjacent))

	// 目标地块不存在
	_, err = suite.engine.SubmitAction(suite.ctx, "alice", &ActionRequest{
		Type: ActionExpand, Q: intPtr(100), R: intPtr(100),
	})
	assert.True(suite.T(), errors.Is(err, errors.ErrTileNotFound))

	// 资源不足时不产生任何变更
	suite.db.Model(&models.Agent{}).Where("agent_id = ?", "alice").Update("food", 5)
	_, err = suite.engine.SubmitAction(suite.ctx, "alice", &ActionRequest{
		Type: ActionExpand, Q: intPtr(0), R: intPtr(-1),
	})
	assert.True(suite.T(), errors.Is(err, errors.ErrInsufficientFood))

	tile, _ := suite.repos.Tile().FindByCoord(suite.ctx, 0, -1)
	assert.False(suite.T(), tile.IsOwned())
}

// TestDeclareAttack 宣战：金属立即扣除，生成待结算记录
func (suite *ActionTestSuite) TestDeclareAttack() {
	suite.seedWorld()
	repository.CreateTestAgent(suite.db, "alice", "爱丽丝", 100, 50)
	repository.CreateTestAgent(suite.db, "bob", "鲍勃", 100, 50)
	suite.ownTile(0, 0, "alice")
	suite.ownTile(1, 0, "bob")

	before := time.Now()
	result, err := suite.engine.SubmitAction(suite.ctx, "alice", &ActionRequest{
		Type: ActionAttack, Q: intPtr(1), R: intPtr(0), Commitment: 15,
	})
	assert.NoError(suite.T(), err)
	assert.NotEmpty(suite.T(), result.Data["attack_id"])

	// 投入立即扣除
	agent, _ := suite.repos.Agent().FindByAgentID(suite.ctx, "alice")
	assert.Equal(suite.T(), 35, agent.Metal)

	// 结算时间约为2小时后
	attacks, _ := suite.repos.Attack().FindPendingByAttacker(suite.ctx, "alice")
	assert.Len(suite.T(), attacks, 1)
	assert.WithinDuration(suite.T(), before.Add(AttackResolveDelay), attacks[0].ResolveAt, 5*time.Second)

	// 归属此刻还没有变化
	tile, _ := suite.repos.Tile().FindByCoord(suite.ctx, 1, 0)
	assert.True(suite.T(), tile.IsOwnedBy("bob"))
}

// TestDeclareAttack_Preconditions 宣战的前置条件失败
func (suite *ActionTestSuite) TestDeclareAttack_Preconditions() {
	suite.seedWorld()
	repository.CreateTestAgent(suite.db, "alice", "爱丽丝", 100, 50)
	repository.CreateTestAgent(suite.db, "bob", "鲍勃", 100, 50)
	suite.ownTile(0, 0, "alice")
	suite.ownTile(1, 0, "bob")

	// 投入必须为正
	_, err := suite.engine.SubmitAction(suite.ctx, "alice", &ActionRequest{
		Type: ActionAttack, Q: intPtr(1), R: intPtr(0), Commitment: 0,
	})
	assert.True(suite.T(), errors.Is(err, errors.ErrInvalidAmount))

	// 无主地块只能扩张，不能攻击
	_, err = suite.engine.SubmitAction(suite.ctx, "alice", &ActionRequest{
		Type: ActionAttack, Q: intPtr(0), R: intPtr(1), Commitment: 10,
	})
	assert.True(suite.T(), errors.Is(err, errors.ErrTileUnowned))

	// 不能攻击自己的地块
	_, err = suite.engine.SubmitAction(suite.ctx, "alice", &ActionRequest{
		Type: ActionAttack, Q: intPtr(0), R: intPtr(0), Commitment: 10,
	})
	assert.True(suite.T(), errors.Is(err, errors.ErrSelfTarget))

	// 投入超过余额
	_, err = suite.engine.SubmitAction(suite.ctx, "alice", &ActionRequest{
		Type: ActionAttack, Q: intPtr(1), R: intPtr(0), Commitment: 999,
	})
	assert.True(suite.T(), errors.Is(err, errors.ErrInsufficientMetal))
}

// TestFortify 加固：金属1:1转化为工事
func (suite *ActionTestSuite) TestFortify() {
	suite.seedWorld()
	repository.CreateTestAgent(suite.db, "alice", "爱丽丝", 100, 50)
	suite.ownTile(0, 0, "alice")

	_, err := suite.engine.SubmitAction(suite.ctx, "alice", &ActionRequest{
		Type: ActionFortify, Q: intPtr(0), R: intPtr(0), Metal: 10,
	})
	assert.NoError(suite.T(), err)

	agent, _ := suite.repos.Agent().FindByAgentID(suite.ctx, "alice")
	assert.Equal(suite.T(), 40, agent.Metal)

	tile, _ := suite.repos.Tile().FindByCoord(suite.ctx, 0, 0)
	assert.Equal(suite.T(), 10, tile.Fortification)
	assert.Equal(suite.T(), BaseDefense+10, tile.Defense(BaseDefense))

	// 只能加固自己的地块
	_, err = suite.engine.SubmitAction(suite.ctx, "alice", &ActionRequest{
		Type: ActionFortify, Q: intPtr(1), R: intPtr(0), Metal: 5,
	})
	assert.True(suite.T(), errors.Is(err, errors.ErrNotTileOwner))
}

// TestGiftTile 赠送地块：工事保留，送出首都时清除首都标记
func (suite *ActionTestSuite) TestGiftTile() {
	suite.seedWorld()
	repository.CreateTestAgent(suite.db, "alice", "爱丽丝", 100, 50)
	repository.CreateTestAgent(suite.db, "bob", "鲍勃", 100, 50)
	suite.ownTile(0, 0, "alice")
	suite.repos.Agent().SetCapital(suite.ctx, "alice", 0, 0)
	suite.repos.Tile().AddFortification(suite.ctx, 0, 0, 8)

	_, err := suite.engine.SubmitAction(suite.ctx, "alice", &ActionRequest{
		Type: ActionGiftTile, Q: intPtr(0), R: intPtr(0), TargetAgent: "bob",
	})
	assert.NoError(suite.T(), err)

	tile, _ := suite.repos.Tile().FindByCoord(suite.ctx, 0, 0)
	assert.True(suite.T(), tile.IsOwnedBy("bob"))
	assert.Equal(suite.T(), 8, tile.Fortification)

	agent, _ := suite.repos.Agent().FindByAgentID(suite.ctx, "alice")
	assert.Nil(suite.T(), agent.CapitalQ)
}

// TestGiftResources 赠送资源：原子转账
func (suite *ActionTestSuite) TestGiftResources() {
	suite.seedWorld()
	repository.CreateTestAgent(suite.db, "alice", "爱丽丝", 100, 50)
	repository.CreateTestAgent(suite.db, "bob", "鲍勃", 10, 5)

	_, err := suite.engine.SubmitAction(suite.ctx, "alice", &ActionRequest{
		Type: ActionGiftResources, TargetAgent: "bob", Food: 30, Metal: 20,
	})
	assert.NoError(suite.T(), err)

	alice, _ := suite.repos.Agent().FindByAgentID(suite.ctx, "alice")
	bob, _ := suite.repos.Agent().FindByAgentID(suite.ctx, "bob")
	assert.Equal(suite.T(), 70, alice.Food)
	assert.Equal(suite.T(), 30, alice.Metal)
	assert.Equal(suite.T(), 40, bob.Food)
	assert.Equal(suite.T(), 25, bob.Metal)

	// 不能赠给自己
	_, err = suite.engine.SubmitAction(suite.ctx, "alice", &ActionRequest{
		Type: ActionGiftResources, TargetAgent: "alice", Food: 1,
	})
	assert.True(suite.T(), errors.Is(err, errors.ErrSelfTarget))

	// 两项都为零无效
	_, err = suite.engine.SubmitAction(suite.ctx, "alice", &ActionRequest{
		Type: ActionGiftResources, TargetAgent: "bob",
	})
	assert.True(suite.T(), errors.Is(err, errors.ErrInvalidAmount))
}

// TestSetCapital 设定首都
func (suite *ActionTestSuite) TestSetCapital() {
	suite.seedWorld()
	repository.CreateTestAgent(suite.db, "alice", "爱丽丝", 100, 50)
	suite.ownTile(0, 0, "alice")

	_, err := suite.engine.SubmitAction(suite.ctx, "alice", &ActionRequest{
		Type: ActionSetCapital, Q: intPtr(0), R: intPtr(0),
	})
	assert.NoError(suite.T(), err)

	agent, _ := suite.repos.Agent().FindByAgentID(suite.ctx, "alice")
	assert.True(suite.T(), agent.IsCapital(0, 0))

	// 不能把首都设在别人的地块上
	_, err = suite.engine.SubmitAction(suite.ctx, "alice", &ActionRequest{
		Type: ActionSetCapital, Q: intPtr(1), R: intPtr(0),
	})
	assert.True(suite.T(), errors.Is(err, errors.ErrNotTileOwner))
}

// TestSendMessage 私信：存为未读，不进公共事件日志
func (suite *ActionTestSuite) TestSendMessage() {
	suite.seedWorld()
	repository.CreateTestAgent(suite.db, "alice", "爱丽丝", 100, 50)
	repository.CreateTestAgent(suite.db, "bob", "鲍勃", 100, 50)

	_, err := suite.engine.SubmitAction(suite.ctx, "alice", &ActionRequest{
		Type: ActionSendMessage, TargetAgent: "bob", Content: "结盟吗？",
	})
	assert.NoError(suite.T(), err)

	unread, _ := suite.repos.Message().FindUnreadByRecipient(suite.ctx, "bob")
	assert.Len(suite.T(), unread, 1)
	assert.Equal(suite.T(), "结盟吗？", unread[0].Content)

	// 私信不产生公共事件
	events, _ := suite.repos.Event().Recent(suite.ctx, 50)
	assert.Empty(suite.T(), events)

	// 内容为空或超长被拒绝
	_, err = suite.engine.SubmitAction(suite.ctx, "alice", &ActionRequest{
		Type: ActionSendMessage, TargetAgent: "bob",
	})
	assert.True(suite.T(), errors.Is(err, errors.ErrInvalidParam))

	long := make([]byte, MessageMaxLength+1)
	for i := range long {
		long[i] = 'x'
	}
	_, err = suite.engine.SubmitAction(suite.ctx, "alice", &ActionRequest{
		Type: ActionSendMessage, TargetAgent: "bob", Content: string(long),
	})
	assert.True(suite.T(), errors.Is(err, errors.ErrInvalidParam))
}

// TestTradeLifecycle 交易全流程：提出、接受、资源守恒
func (suite *ActionTestSuite) TestTradeLifecycle() {
	suite.seedWorld()
	repository.CreateTestAgent(suite.db, "alice", "爱丽丝", 100, 50)
	repository.CreateTestAgent(suite.db, "bob", "鲍勃", 60, 80)

	result, err := suite.engine.SubmitAction(suite.ctx, "alice", &ActionRequest{
		Type: ActionProposeTrade, TargetAgent: "bob",
		OfferFood: 30, RequestMetal: 20,
	})
	assert.NoError(suite.T(), err)
	tradeID := result.Data["trade_id"].(string)

	// 提案阶段不冻结资源
	alice, _ := suite.repos.Agent().FindByAgentID(suite.ctx, "alice")
	assert.Equal(suite.T(), 100, alice.Food)

	_, err = suite.engine.SubmitAction(suite.ctx, "bob", &ActionRequest{
		Type: ActionAcceptTrade, TradeID: tradeID,
	})
	assert.NoError(suite.T(), err)

	alice, _ = suite.repos.Agent().FindByAgentID(suite.ctx, "alice")
	bob, _ := suite.repos.Agent().FindByAgentID(suite.ctx, "bob")
	assert.Equal(suite.T(), 70, alice.Food)
	assert.Equal(suite.T(), 70, alice.Metal)
	assert.Equal(suite.T(), 90, bob.Food)
	assert.Equal(suite.T(), 60, bob.Metal)

	// 零和交换：总量守恒
	assert.Equal(suite.T(), 160, alice.Food+bob.Food)
	assert.Equal(suite.T(), 130, alice.Metal+bob.Metal)

	// 已关闭的交易不能再接受
	_, err = suite.engine.SubmitAction(suite.ctx, "bob", &ActionRequest{
		Type: ActionAcceptTrade, TradeID: tradeID,
	})
	assert.True(suite.T(), errors.Is(err, errors.ErrTradeClosed))
}

// TestAcceptTrade_Guards 接受交易的保护逻辑
func (suite *ActionTestSuite) TestAcceptTrade_Guards() {
	suite.seedWorld()
	repository.CreateTestAgent(suite.db, "alice", "爱丽丝", 100, 50)
	repository.CreateTestAgent(suite.db, "bob", "鲍勃", 60, 80)
	repository.CreateTestAgent(suite.db, "carol", "卡罗尔", 0, 0)

	result, err := suite.engine.SubmitAction(suite.ctx, "alice", &ActionRequest{
		Type: ActionProposeTrade, TargetAgent: "bob",
		OfferFood: 30, RequestMetal: 20,
	})
	assert.NoError(suite.T(), err)
	tradeID := result.Data["trade_id"].(string)

	// 只有指定接收方能接受
	_, err = suite.engine.SubmitAction(suite.ctx, "carol", &ActionRequest{
		Type: ActionAcceptTrade, TradeID: tradeID,
	})
	assert.True(suite.T(), errors.Is(err, errors.ErrTradeWrongParty))

	// 接收方余额不足时干净失败，交易保持待处理
	suite.db.Model(&models.Agent{}).Where("agent_id = ?", "bob").Update("metal", 5)
	_, err = suite.engine.SubmitAction(suite.ctx, "bob", &ActionRequest{
		Type: ActionAcceptTrade, TradeID: tradeID,
	})
	assert.True(suite.T(), errors.Is(err, errors.ErrTradeBalance))

	trade, _ := suite.repos.Trade().FindByTradeID(suite.ctx, tradeID)
	assert.Equal(suite.T(), models.TradeStatusPending, trade.Status)

	// 提案方余额不足时交易自动过期
	suite.db.Model(&models.Agent{}).Where("agent_id = ?", "bob").Update("metal", 80)
	suite.db.Model(&models.Agent{}).Where("agent_id = ?", "alice").Update("food", 10)
	_, err = suite.engine.SubmitAction(suite.ctx, "bob", &ActionRequest{
		Type: ActionAcceptTrade, TradeID: tradeID,
	})
	assert.True(suite.T(), errors.Is(err, errors.ErrTradeExpired))

	trade, _ = suite.repos.Trade().FindByTradeID(suite.ctx, tradeID)
	assert.Equal(suite.T(), models.TradeStatusExpired, trade.Status)
}

// TestRejectTrade 拒绝交易
func (suite *ActionTestSuite) TestRejectTrade() {
	suite.seedWorld()
	repository.CreateTestAgent(suite.db, "alice", "爱丽丝", 100, 50)
	repository.CreateTestAgent(suite.db, "bob", "鲍勃", 60, 80)

	result, _ := suite.engine.SubmitAction(suite.ctx, "alice", &ActionRequest{
		Type: ActionProposeTrade, TargetAgent: "bob", OfferFood: 10,
	})
	tradeID := result.Data["trade_id"].(string)

	_, err := suite.engine.SubmitAction(suite.ctx, "bob", &ActionRequest{
		Type: ActionRejectTrade, TradeID: tradeID,
	})
	assert.NoError(suite.T(), err)

	trade, _ := suite.repos.Trade().FindByTradeID(suite.ctx, tradeID)
	assert.Equal(suite.T(), models.TradeStatusRejected, trade.Status)

	// 双方余额未变
	alice, _ := suite.repos.Agent().FindByAgentID(suite.ctx, "alice")
	assert.Equal(suite.T(), 100, alice.Food)
}

// TestSubmitAction_UnknownAgent 未注册的智能体不能提交行动
func (suite *ActionTestSuite) TestSubmitAction_UnknownAgent() {
	suite.seedWorld()

	_, err := suite.engine.SubmitAction(suite.ctx, "ghost", &ActionRequest{
		Type: ActionExpand, Q: intPtr(0), R: intPtr(0),
	})
	assert.True(suite.T(), errors.Is(err, errors.ErrAgentNotFound))
}

func TestActionTestSuite(t *testing.T) {
	suite.Run(t, new(ActionTestSuite))
}
