package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/wfunc/hexland/internal/config"
	"github.com/wfunc/hexland/internal/logger"
)

// WebhookNotifier 向智能体的回调地址推送事件。
// 投递是异步的，带超时且不重试；同一(智能体,事件类型)有最短冷却间隔，
// 冷却表只存在内存里，进程重启后清零。
type WebhookNotifier struct {
	cfg    config.NotifyConfig
	client *http.Client

	mu       sync.Mutex
	lastSent map[string]time.Time
}

// NewWebhookNotifier 创建通知器
func NewWebhookNotifier(cfg config.NotifyConfig) *WebhookNotifier {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &WebhookNotifier{
		cfg:      cfg,
		client:   &http.Client{Timeout: timeout},
		lastSent: make(map[string]time.Time),
	}
}

// Notify 异步投递，调用方不会被阻塞，失败只记日志
func (n *WebhookNotifier) Notify(agentID, webhookURL, eventType string, payload map[string]interface{}) {
	if !n.cfg.Enabled || webhookURL == "" {
		return
	}
	if !n.allow(agentID, eventType) {
		return
	}

	go n.deliver(agentID, webhookURL, eventType, payload)
}

// allow 冷却检查，放行时顺带记录本次发送时间
func (n *WebhookNotifier) allow(agentID, eventType string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	key := agentID + "|" + eventType
	now := time.Now()
	if last, ok := n.lastSent[key]; ok && now.Sub(last) < n.cfg.Cooldown {
		return false
	}
	n.lastSent[key] = now
	return true
}

func (n *WebhookNotifier) deliver(agentID, webhookURL, eventType string, payload map[string]interface{}) {
	body, err := json.Marshal(map[string]interface{}{
		"event":   eventType,
		"payload": payload,
		"sent_at": time.Now(),
	})
	if err != nil {
		logger.LogWebhook(agentID, eventType, err)
		return
	}

	resp, err := n.client.Post(webhookURL, "application/json", bytes.NewReader(body))
	if err != nil {
		logger.LogWebhook(agentID, eventType, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		logger.LogWebhook(agentID, eventType, fmt.Errorf("回调返回状态码 %d", resp.StatusCode))
		return
	}
	logger.LogWebhook(agentID, eventType, nil)
}
