package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/wfunc/hexland/internal/errors"
	"github.com/wfunc/hexland/internal/models"
	"gorm.io/gorm"
)

// AgentRepositoryTestSuite 智能体仓储测试套件
type AgentRepositoryTestSuite struct {
	suite.Suite
	db   *gorm.DB
	repo AgentRepository
}

func (suite *AgentRepositoryTestSuite) SetupTest() {
	suite.db = SetupTestDB()
	suite.repo = NewAgentRepository(suite.db)
}

func (suite *AgentRepositoryTestSuite) TearDownTest() {
	CleanupTestDB(suite.db)
}

// TestAgentRepository_Create 测试创建智能体
func (suite *AgentRepositoryTestSuite) TestAgentRepository_Create() {
	ctx := context.Background()

	agent := &models.Agent{
		AgentID: "agent-1",
		Name:    "北境领主",
		Food:    100,
		Metal:   50,
	}

	err := suite.repo.Create(ctx, agent)
	assert.NoError(suite.T(), err)
	assert.NotZero(suite.T(), agent.ID)

	found, err := suite.repo.FindByAgentID(ctx, "agent-1")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), "北境领主", found.Name)
	assert.Equal(suite.T(), 100, found.Food)
	assert.Equal(suite.T(), 50, found.Metal)
}

// TestAgentRepository_FindByAgentID_NotFound 测试查找不存在的智能体
func (suite *AgentRepositoryTestSuite) TestAgentRepository_FindByAgentID_NotFound() {
	ctx := context.Background()

	_, err := suite.repo.FindByAgentID(ctx, "ghost")
	assert.Error(suite.T(), err)
	assert.True(suite.T(), errors.Is(err, errors.ErrAgentNotFound))
}

// TestAgentRepository_DeductResources 测试带守卫的资源扣减
func (suite *AgentRepositoryTestSuite) TestAgentRepository_DeductResources() {
	ctx := context.Background()
	CreateTestAgent(suite.db, "agent-1", "玩家一", 100, 50)

	err := suite.repo.DeductResources(ctx, "agent-1", 20, 10)
	assert.NoError(suite.T(), err)

	found, _ := suite.repo.FindByAgentID(ctx, "agent-1")
	assert.Equal(suite.T(), 80, found.Food)
	assert.Equal(suite.T(), 40, found.Metal)

	// 余额不足时整体失败，不产生部分扣减
	err = suite.repo.DeductResources(ctx, "agent-1", 1000, 1)
	assert.Error(suite.T(), err)

	found, _ = suite.repo.FindByAgentID(ctx, "agent-1")
	assert.Equal(suite.T(), 80, found.Food)
	assert.Equal(suite.T(), 40, found.Metal)
}

// TestAgentRepository_AddResources 测试资源增加
func (suite *AgentRepositoryTestSuite) TestAgentRepository_AddResources() {
	ctx := context.Background()
	CreateTestAgent(suite.db, "agent-1", "玩家一", 10, 5)

	err := suite.repo.AddResources(ctx, "agent-1", 15, 25)
	assert.NoError(suite.T(), err)

	found, _ := suite.repo.FindByAgentID(ctx, "agent-1")
	assert.Equal(suite.T(), 25, found.Food)
	assert.Equal(suite.T(), 30, found.Metal)
}

// TestAgentRepository_Capital 测试首都设定与清除
func (suite *AgentRepositoryTestSuite) TestAgentRepository_Capital() {
	ctx := context.Background()
	CreateTestAgent(suite.db, "agent-1", "玩家一", 0, 0)

	err := suite.repo.SetCapital(ctx, "agent-1", 3, -2)
	assert.NoError(suite.T(), err)

	found, _ := suite.repo.FindByAgentID(ctx, "agent-1")
	assert.NotNil(suite.T(), found.CapitalQ)
	assert.Equal(suite.T(), 3, *found.CapitalQ)
	assert.Equal(suite.T(), -2, *found.CapitalR)
	assert.True(suite.T(), found.IsCapital(3, -2))

	err = suite.repo.ClearCapital(ctx, "agent-1")
	assert.NoError(suite.T(), err)

	found, _ = suite.repo.FindByAgentID(ctx, "agent-1")
	assert.Nil(suite.T(), found.CapitalQ)
	assert.Nil(suite.T(), found.CapitalR)
}

// TestAgentRepository_TouchLastSeen 测试活跃时间更新
func (suite *AgentRepositoryTestSuite) TestAgentRepository_TouchLastSeen() {
	ctx := context.Background()
	CreateTestAgent(suite.db, "agent-1", "玩家一", 0, 0)

	err := suite.repo.TouchLastSeen(ctx, "agent-1")
	assert.NoError(suite.T(), err)

	found, _ := suite.repo.FindByAgentID(ctx, "agent-1")
	assert.NotNil(suite.T(), found.LastSeenAt)
	assert.WithinDuration(suite.T(), time.Now(), *found.LastSeenAt, 5*time.Second)
}

// TestAgentRepository_DeleteAllExcept 测试重置时的清空
func (suite *AgentRepositoryTestSuite) TestAgentRepository_DeleteAllExcept() {
	ctx := context.Background()
	CreateTestAgent(suite.db, "agent-1", "玩家一", 0, 0)
	CreateTestAgent(suite.db, "agent-2", "玩家二", 0, 0)
	CreateTestAgent(suite.db, "agent-3", "玩家三", 0, 0)

	err := suite.repo.DeleteAllExcept(ctx, []string{"agent-2"})
	assert.NoError(suite.T(), err)

	count, _ := suite.repo.Count(ctx)
	assert.EqualValues(suite.T(), 1, count)

	err = suite.repo.DeleteAllExcept(ctx, nil)
	assert.NoError(suite.T(), err)

	count, _ = suite.repo.Count(ctx)
	assert.EqualValues(suite.T(), 0, count)
}

func TestAgentRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(AgentRepositoryTestSuite))
}
