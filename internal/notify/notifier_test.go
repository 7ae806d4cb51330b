package notify

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/wfunc/hexland/internal/config"
)

// NotifierTestSuite 回调通知测试套件
type NotifierTestSuite struct {
	suite.Suite
}

// TestNotify_Delivers 事件以JSON形式投递到回调地址
func (suite *NotifierTestSuite) TestNotify_Delivers() {
	var received atomic.Int32
	var lastBody atomic.Value

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		lastBody.Store(body)
		received.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	n := NewWebhookNotifier(config.NotifyConfig{
		Enabled:  true,
		Timeout:  2 * time.Second,
		Cooldown: time.Minute,
	})

	n.Notify("alice", server.URL, "attack_success", map[string]interface{}{"q": 1, "r": 0})

	assert.Eventually(suite.T(), func() bool {
		return received.Load() == 1
	}, 2*time.Second, 10*time.Millisecond)

	var envelope map[string]interface{}
	assert.NoError(suite.T(), json.Unmarshal(lastBody.Load().([]byte), &envelope))
	assert.Equal(suite.T(), "attack_success", envelope["event"])
	payload := envelope["payload"].(map[string]interface{})
	assert.Equal(suite.T(), float64(1), payload["q"])
}

// TestNotify_Cooldown 同一智能体同一事件类型受冷却限制
func (suite *NotifierTestSuite) TestNotify_Cooldown() {
	var received atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received.Add(1)
	}))
	defer server.Close()

	n := NewWebhookNotifier(config.NotifyConfig{
		Enabled:  true,
		Cooldown: time.Minute,
	})

	n.Notify("alice", server.URL, "starvation", nil)
	// 冷却期内的重复事件被吞掉
	n.Notify("alice", server.URL, "starvation", nil)
	// 不同事件类型不受影响
	n.Notify("alice", server.URL, "attack_success", nil)
	// 不同智能体不受影响
	n.Notify("bob", server.URL, "starvation", nil)

	assert.Eventually(suite.T(), func() bool {
		return received.Load() == 3
	}, 2*time.Second, 10*time.Millisecond)

	time.Sleep(100 * time.Millisecond)
	assert.Equal(suite.T(), int32(3), received.Load())
}

// TestNotify_CooldownExpiry 冷却过后可以再次发送
func (suite *NotifierTestSuite) TestNotify_CooldownExpiry() {
	n := NewWebhookNotifier(config.NotifyConfig{
		Enabled:  true,
		Cooldown: 20 * time.Millisecond,
	})

	assert.True(suite.T(), n.allow("alice", "tick"))
	assert.False(suite.T(), n.allow("alice", "tick"))
	time.Sleep(30 * time.Millisecond)
	assert.True(suite.T(), n.allow("alice", "tick"))
}

// TestNotify_Disabled 未启用或地址为空时不投递
func (suite *NotifierTestSuite) TestNotify_Disabled() {
	var received atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received.Add(1)
	}))
	defer server.Close()

	disabled := NewWebhookNotifier(config.NotifyConfig{Enabled: false})
	disabled.Notify("alice", server.URL, "tick", nil)

	enabled := NewWebhookNotifier(config.NotifyConfig{Enabled: true, Cooldown: time.Minute})
	enabled.Notify("alice", "", "tick", nil)

	time.Sleep(100 * time.Millisecond)
	assert.Equal(suite.T(), int32(0), received.Load())
}

func TestNotifierTestSuite(t *testing.T) {
	suite.Run(t, new(NotifierTestSuite))
}
