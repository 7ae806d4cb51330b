package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/wfunc/hexland/internal/models"
	"gorm.io/gorm"
)

// AttackRepositoryTestSuite 攻击仓储测试套件
type AttackRepositoryTestSuite struct {
	suite.Suite
	db   *gorm.DB
	repo AttackRepository
}

func (suite *AttackRepositoryTestSuite) SetupTest() {
	suite.db = SetupTestDB()
	suite.repo = NewAttackRepository(suite.db)
}

func (suite *AttackRepositoryTestSuite) TearDownTest() {
	CleanupTestDB(suite.db)
}

func (suite *AttackRepositoryTestSuite) createAttack(attackID, attacker string, q, r int, resolveAt time.Time) *models.Attack {
	attack := &models.Attack{
		AttackID:   attackID,
		AttackerID: attacker,
		TargetQ:    q,
		TargetR:    r,
		Commitment: 15,
		Status:     models.AttackStatusPending,
		ResolveAt:  resolveAt,
	}
	err := suite.repo.Create(context.Background(), attack)
	suite.NoError(err)
	return attack
}

// TestAttackRepository_FindPendingDue 测试到期攻击按宣战顺序返回
func (suite *AttackRepositoryTestSuite) TestAttackRepository_FindPendingDue() {
	ctx := context.Background()
	now := time.Now()

	first := suite.createAttack("a-1", "agent-1", 0, 0, now.Add(-2*time.Hour))
	second := suite.createAttack("a-2", "agent-2", 1, 0, now.Add(-time.Hour))
	suite.createAttack("future", "agent-3", 2, 0, now.Add(2*time.Hour))

	due, err := suite.repo.FindPendingDue(ctx, now)
	assert.NoError(suite.T(), err)
	assert.Len(suite.T(), due, 2)
	// 宣战顺序即主键升序
	assert.Equal(suite.T(), first.AttackID, due[0].AttackID)
	assert.Equal(suite.T(), second.AttackID, due[1].AttackID)
}

// TestAttackRepository_MarkResolved 测试结算后不再出现在待结算列表
func (suite *AttackRepositoryTestSuite) TestAttackRepository_MarkResolved() {
	ctx := context.Background()
	now := time.Now()

	attack := suite.createAttack("a-1", "agent-1", 0, 0, now.Add(-time.Hour))

	err := suite.repo.MarkResolved(ctx, attack.ID)
	assert.NoError(suite.T(), err)

	due, err := suite.repo.FindPendingDue(ctx, now)
	assert.NoError(suite.T(), err)
	assert.Empty(suite.T(), due)

	found, _ := suite.repo.FindByAttackID(ctx, "a-1")
	assert.Equal(suite.T(), models.AttackStatusResolved, found.Status)
}

// TestAttackRepository_FindIncomingPending 测试按防守方查询来袭攻击
func (suite *AttackRepositoryTestSuite) TestAttackRepository_FindIncomingPending() {
	ctx := context.Background()
	now := time.Now()

	CreateTestTile(suite.db, 0, 0, models.TerrainFarmland, "defender")
	CreateTestTile(suite.db, 5, 5, models.TerrainMine, "other")

	suite.createAttack("incoming", "agent-1", 0, 0, now.Add(time.Hour))
	suite.createAttack("elsewhere", "agent-1", 5, 5, now.Add(time.Hour))

	incoming, err := suite.repo.FindIncomingPending(ctx, "defender")
	assert.NoError(suite.T(), err)
	assert.Len(suite.T(), incoming, 1)
	assert.Equal(suite.T(), "incoming", incoming[0].AttackID)
}

func TestAttackRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(AttackRepositoryTestSuite))
}
