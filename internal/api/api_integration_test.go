package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/wfunc/hexland/internal/config"
	"github.com/wfunc/hexland/internal/game"
	"github.com/wfunc/hexland/internal/repository"
	"github.com/wfunc/hexland/internal/utils"
	"github.com/wfunc/hexland/internal/websocket"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// APITestSuite API集成测试套件：内存数据库上跑完整路由
type APITestSuite struct {
	suite.Suite
	db     *gorm.DB
	engine *gin.Engine
}

func (suite *APITestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)

	suite.db = repository.SetupTestDB()
	repos := repository.NewManager(suite.db)

	gameCfg := config.GameConfig{
		TickInterval:     2 * time.Hour,
		CheckInterval:    time.Minute,
		InitialRadius:    3,
		StartingFood:     100,
		StartingMetal:    50,
		EventHistorySize: 50,
	}
	gameEngine := game.NewEngine(repos, gameCfg)
	require.NoError(suite.T(), gameEngine.EnsureWorld(context.Background()))

	scheduler := game.NewScheduler(gameEngine, time.Minute)
	hub := websocket.NewHub(zap.NewNop())

	adminHash, err := utils.HashPassword("admin-pass")
	require.NoError(suite.T(), err)

	cfg := &config.Config{
		Game: gameCfg,
		Security: config.SecurityConfig{
			JWT:   config.JWTConfig{Secret: "test-secret", ExpireHours: 1},
			Admin: config.AdminConfig{Username: "admin", PasswordHash: adminHash},
		},
	}

	router := NewRouter(suite.db, gameEngine, scheduler, hub, cfg, zap.NewNop())
	suite.engine = router.GetEngine()
}

func (suite *APITestSuite) TearDownTest() {
	repository.CleanupTestDB(suite.db)
}

// doJSON 发送JSON请求并解析响应
func (suite *APITestSuite) doJSON(method, path string, body interface{}, token string) (int, map[string]interface{}) {
	var reader *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(suite.T(), err)
		reader = bytes.NewBuffer(data)
	} else {
		reader = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	suite.engine.ServeHTTP(w, req)

	var resp map[string]interface{}
	if len(w.Body.Bytes()) > 0 {
		require.NoError(suite.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w.Code, resp
}

// join 注册一个智能体
func (suite *APITestSuite) join(agentID, name string) {
	code, resp := suite.doJSON("POST", "/api/v1/agents/join", map[string]string{
		"agent_id": agentID, "name": name,
	}, "")
	require.Equal(suite.T(), http.StatusOK, code)
	require.Equal(suite.T(), true, resp["success"])
}

// adminToken 登录拿管理员令牌
func (suite *APITestSuite) adminToken() string {
	code, resp := suite.doJSON("POST", "/api/v1/admin/login", map[string]string{
		"username": "admin", "password": "admin-pass",
	}, "")
	require.Equal(suite.T(), http.StatusOK, code)
	data := resp["data"].(map[string]interface{})
	return data["token"].(string)
}

// 测试健康检查
func (suite *APITestSuite) TestHealthCheck() {
	code, resp := suite.doJSON("GET", "/health", nil, "")
	assert.Equal(suite.T(), http.StatusOK, code)
	assert.Equal(suite.T(), "healthy", resp["status"])
}

// 测试加入游戏与重复ID冲突
func (suite *APITestSuite) TestJoin() {
	code, resp := suite.doJSON("POST", "/api/v1/agents/join", map[string]string{
		"agent_id": "alice", "name": "爱丽丝",
	}, "")
	assert.Equal(suite.T(), http.StatusOK, code)
	data := resp["data"].(map[string]interface{})
	assert.Equal(suite.T(), float64(100), data["food"])
	assert.Equal(suite.T(), float64(50), data["metal"])
	assert.Contains(suite.T(), data, "capital_q")

	// 缺少必填字段
	code, _ = suite.doJSON("POST", "/api/v1/agents/join", map[string]string{
		"agent_id": "bob",
	}, "")
	assert.Equal(suite.T(), http.StatusBadRequest, code)

	// 重复ID
	code, resp = suite.doJSON("POST", "/api/v1/agents/join", map[string]string{
		"agent_id": "alice", "name": "另一个",
	}, "")
	assert.Equal(suite.T(), http.StatusConflict, code)
	assert.Equal(suite.T(), false, resp["success"])
}

// 测试提交行动与前置条件失败的状态码
func (suite *APITestSuite) TestSubmitAction() {
	suite.join("alice", "爱丽丝")

	// 查视角找到首都坐标
	code, resp := suite.doJSON("GET", "/api/v1/agents/alice/state", nil, "")
	require.Equal(suite.T(), http.StatusOK, code)
	state := resp["data"].(map[string]interface{})
	territories := state["territories"].([]interface{})
	require.Len(suite.T(), territories, 1)
	capital := territories[0].(map[string]interface{})
	q := int(capital["q"].(float64))
	r := int(capital["r"].(float64))

	// 加固首都
	code, _ = suite.doJSON("POST", "/api/v1/agents/alice/actions", map[string]interface{}{
		"type": "fortify", "q": q, "r": r, "metal": 5,
	}, "")
	assert.Equal(suite.T(), http.StatusOK, code)

	// 加固非己方地块：前置条件失败返回422
	code, resp = suite.doJSON("POST", "/api/v1/agents/alice/actions", map[string]interface{}{
		"type": "fortify", "q": q + 1, "r": r, "metal": 5,
	}, "")
	assert.Equal(suite.T(), 422, code)
	assert.Equal(suite.T(), false, resp["success"])

	// 未注册的智能体返回404
	code, _ = suite.doJSON("POST", "/api/v1/agents/ghost/actions", map[string]interface{}{
		"type": "fortify", "q": q, "r": r, "metal": 1,
	}, "")
	assert.Equal(suite.T(), http.StatusNotFound, code)
}

// 测试公共地图
func (suite *APITestSuite) TestPublicMap() {
	suite.join("alice", "爱丽丝")

	code, resp := suite.doJSON("GET", "/api/v1/map", nil, "")
	assert.Equal(suite.T(), http.StatusOK, code)
	data := resp["data"].(map[string]interface{})
	tiles := data["tiles"].([]interface{})
	assert.Len(suite.T(), tiles, 37)

	// 无主地块地形被隐藏
	hidden := 0
	for _, item := range tiles {
		tile := item.(map[string]interface{})
		if tile["terrain"] == "unknown" {
			hidden++
		}
	}
	assert.Equal(suite.T(), 36, hidden)
}

// 测试公共事件流
func (suite *APITestSuite) TestPublicEvents() {
	suite.join("alice", "爱丽丝")

	code, resp := suite.doJSON("GET", "/api/v1/events?limit=10", nil, "")
	assert.Equal(suite.T(), http.StatusOK, code)
	data := resp["data"].(map[string]interface{})
	events := data["events"].([]interface{})
	require.NotEmpty(suite.T(), events)

	found := false
	for _, item := range events {
		event := item.(map[string]interface{})
		if event["type"] == "agent_joined" {
			found = true
		}
	}
	assert.True(suite.T(), found)
}

// 测试记忆与策略更新
func (suite *APITestSuite) TestUpdateProfile() {
	suite.join("alice", "爱丽丝")

	code, _ := suite.doJSON("PUT", "/api/v1/agents/alice/memory", map[string]string{
		"memory": "东边有矿",
	}, "")
	assert.Equal(suite.T(), http.StatusOK, code)

	code, _ = suite.doJSON("PUT", "/api/v1/agents/alice/strategy", map[string]string{
		"strategy": "先种田后扩张",
	}, "")
	assert.Equal(suite.T(), http.StatusOK, code)

	code, resp := suite.doJSON("GET", "/api/v1/agents/alice/state", nil, "")
	require.Equal(suite.T(), http.StatusOK, code)
	state := resp["data"].(map[string]interface{})
	assert.Equal(suite.T(), "东边有矿", state["memory"])
	assert.Equal(suite.T(), "先种田后扩张", state["strategy"])
}

// 测试管理员登录与鉴权
func (suite *APITestSuite) TestAdminAuth() {
	// 密码错误
	code, _ := suite.doJSON("POST", "/api/v1/admin/login", map[string]string{
		"username": "admin", "password": "wrong",
	}, "")
	assert.Equal(suite.T(), http.StatusUnauthorized, code)

	// 没有令牌不能触发回合
	code, _ = suite.doJSON("POST", "/api/v1/admin/tick", nil, "")
	assert.Equal(suite.T(), http.StatusUnauthorized, code)

	// 伪造令牌被拒绝
	code, _ = suite.doJSON("POST", "/api/v1/admin/tick", nil, "forged-token")
	assert.Equal(suite.T(), http.StatusUnauthorized, code)
}

// 测试管理员触发回合
func (suite *APITestSuite) TestAdminTick() {
	suite.join("alice", "爱丽丝")
	token := suite.adminToken()

	code, resp := suite.doJSON("POST", "/api/v1/admin/tick", nil, token)
	assert.Equal(suite.T(), http.StatusOK, code)
	data := resp["data"].(map[string]interface{})
	assert.Equal(suite.T(), float64(1), data["tick"])
}

// 测试管理员重置
func (suite *APITestSuite) TestAdminReset() {
	suite.join("alice", "爱丽丝")
	token := suite.adminToken()

	code, _ := suite.doJSON("POST", "/api/v1/admin/reset", nil, token)
	assert.Equal(suite.T(), http.StatusOK, code)

	// 重置后智能体已不存在
	code, _ = suite.doJSON("GET", "/api/v1/agents/alice/state", nil, "")
	assert.Equal(suite.T(), http.StatusNotFound, code)
}

// 测试带保留名单的重置
func (suite *APITestSuite) TestAdminReset_KeepList() {
	suite.join("alice", "爱丽丝")
	suite.join("bob", "鲍勃")
	token := suite.adminToken()

	code, _ := suite.doJSON("POST", "/api/v1/admin/reset", map[string]interface{}{
		"keep": []string{"alice"},
	}, token)
	assert.Equal(suite.T(), http.StatusOK, code)

	// 保留的智能体回到初始资源并拥有新首都
	code, resp := suite.doJSON("GET", "/api/v1/agents/alice/state", nil, "")
	require.Equal(suite.T(), http.StatusOK, code)
	state := resp["data"].(map[string]interface{})
	assert.Equal(suite.T(), float64(100), state["food"])
	assert.Equal(suite.T(), float64(50), state["metal"])
	assert.Len(suite.T(), state["territories"].([]interface{}), 1)

	// 未保留的智能体被清除
	code, _ = suite.doJSON("GET", "/api/v1/agents/bob/state", nil, "")
	assert.Equal(suite.T(), http.StatusNotFound, code)
}

// 测试未知路由
func (suite *APITestSuite) TestNotFound() {
	code, resp := suite.doJSON("GET", "/api/v1/nope", nil, "")
	assert.Equal(suite.T(), http.StatusNotFound, code)
	assert.Equal(suite.T(), "NOT_FOUND", resp["code"])
}

func TestAPITestSuite(t *testing.T) {
	suite.Run(t, new(APITestSuite))
}
