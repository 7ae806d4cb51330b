package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Hub WebSocket连接管理中心。
// 连接方是观察者（渲染层、看板、智能体自身），只接收状态广播。
type Hub struct {
	// 客户端连接池
	clients   map[string]*Client
	clientsMu sync.RWMutex

	// 智能体ID到客户端的映射（按身份定向推送用）
	agentClients map[string][]*Client
	agentMu      sync.RWMutex

	// 消息广播通道
	broadcast chan *Message

	// 注册/注销通道
	register   chan *Client
	unregister chan *Client

	// 日志
	logger *zap.Logger
}

// Message WebSocket消息
type Message struct {
	Type      string          `json:"type"` // 消息类型
	Data      json.RawMessage `json:"data"` // 消息数据
	Timestamp int64           `json:"timestamp"`
}

// MessageType 消息类型
const (
	// 系统消息
	MessageTypeConnected = "connected"
	MessageTypePing      = "ping"
	MessageTypePong      = "pong"
	MessageTypeError     = "error"

	// 世界状态广播
	MessageTypeTileUpdate  = "tile_update"
	MessageTypeGameEvent   = "game_event"
	MessageTypeAgentJoined = "agent_joined"
	MessageTypeMapExpanded = "map_expanded"
	MessageTypeTick        = "tick"
	MessageTypeGameReset   = "game_reset"
)

// NewHub 创建Hub
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:      make(map[string]*Client),
		agentClients: make(map[string][]*Client),
		broadcast:    make(chan *Message, 256),
		register:     make(chan *Client),
		unregister:   make(chan *Client),
		logger:       logger,
	}
}

// Run 运行Hub
func (h *Hub) Run() {
	// 启动心跳检测
	go h.runHeartbeat()

	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.broadcast:
			h.broadcastMessage(message)
		}
	}
}

// BroadcastEvent 引擎侧的广播入口：事件类型直接映射到消息类型
func (h *Hub) BroadcastEvent(eventType string, payload map[string]interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("序列化广播载荷失败", zap.Error(err))
		return
	}

	msgType := eventType
	switch eventType {
	case MessageTypeTileUpdate, MessageTypeAgentJoined, MessageTypeMapExpanded,
		MessageTypeTick, MessageTypeGameReset:
		// 保留原类型
	default:
		// 其余领域事件统一走 game_event 通道，原类型放进载荷
		wrapped, werr := json.Marshal(map[string]interface{}{
			"event":   eventType,
			"payload": payload,
		})
		if werr != nil {
			h.logger.Error("序列化广播载荷失败", zap.Error(werr))
			return
		}
		data = wrapped
		msgType = MessageTypeGameEvent
	}

	msg := &Message{
		Type:      msgType,
		Data:      data,
		Timestamp: time.Now().Unix(),
	}

	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warn("广播通道已满，丢弃消息", zap.String("type", msgType))
	}
}

// registerClient 注册客户端
func (h *Hub) registerClient(client *Client) {
	h.clientsMu.Lock()
	h.clients[client.ID] = client
	h.clientsMu.Unlock()

	if client.AgentID != "" {
		h.agentMu.Lock()
		h.agentClients[client.AgentID] = append(h.agentClients[client.AgentID], client)
		h.agentMu.Unlock()
	}

	h.logger.Info("WebSocket客户端连接",
		zap.String("client_id", client.ID),
		zap.String("agent_id", client.AgentID))

	// 发送连接成功消息
	msg := &Message{
		Type:      MessageTypeConnected,
		Timestamp: time.Now().Unix(),
		Data:      json.RawMessage(`{"message":"连接成功"}`),
	}
	h.SendToClient(client.ID, msg)
}

// unregisterClient 注销客户端
func (h *Hub) unregisterClient(client *Client) {
	h.clientsMu.Lock()
	if _, ok := h.clients[client.ID]; ok {
		delete(h.clients, client.ID)
		close(client.Send)
	}
	h.clientsMu.Unlock()

	if client.AgentID != "" {
		h.agentMu.Lock()
		clients := h.agentClients[client.AgentID]
		for i, c := range clients {
			if c.ID == client.ID {
				h.agentClients[client.AgentID] = append(clients[:i], clients[i+1:]...)
				break
			}
		}
		if len(h.agentClients[client.AgentID]) == 0 {
			delete(h.agentClients, client.AgentID)
		}
		h.agentMu.Unlock()
	}

	h.logger.Info("WebSocket客户端断开",
		zap.String("client_id", client.ID),
		zap.String("agent_id", client.AgentID))
}

// broadcastMessage 广播消息
func (h *Hub) broadcastMessage(message *Message) {
	data, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("序列化消息失败", zap.Error(err))
		return
	}

	h.clientsMu.RLock()
	for _, client := range h.clients {
		select {
		case client.Send <- data:
		default:
			// 发送缓冲区满，丢弃本条
			h.logger.Warn("客户端发送缓冲区满",
				zap.String("client_id", client.ID))
		}
	}
	h.clientsMu.RUnlock()
}

// SendToClient 发送消息给指定客户端
func (h *Hub) SendToClient(clientID string, message *Message) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}

	h.clientsMu.RLock()
	client, ok := h.clients[clientID]
	h.clientsMu.RUnlock()

	if !ok {
		return ErrClientNotFound
	}

	select {
	case client.Send <- data:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// SendToAgent 发送消息给指定智能体的所有客户端
func (h *Hub) SendToAgent(agentID string, message *Message) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}

	h.agentMu.RLock()
	clients := h.agentClients[agentID]
	h.agentMu.RUnlock()

	if len(clients) == 0 {
		return ErrAgentNotConnected
	}

	for _, client := range clients {
		select {
		case client.Send <- data:
		default:
			h.logger.Warn("智能体客户端发送缓冲区满",
				zap.String("client_id", client.ID),
				zap.String("agent_id", agentID))
		}
	}

	return nil
}

// GetOnlineAgents 获取在线智能体列表
func (h *Hub) GetOnlineAgents() []string {
	h.agentMu.RLock()
	defer h.agentMu.RUnlock()

	agents := make([]string, 0, len(h.agentClients))
	for agentID := range h.agentClients {
		agents = append(agents, agentID)
	}
	return agents
}

// GetOnlineCount 获取在线连接数
func (h *Hub) GetOnlineCount() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients)
}

// runHeartbeat 运行心跳检测
func (h *Hub) runHeartbeat() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		<-ticker.C
		ping := &Message{
			Type:      MessageTypePing,
			Timestamp: time.Now().Unix(),
		}
		h.broadcast <- ping
	}
}

// Broadcast 广播消息（公开方法）
func (h *Hub) Broadcast(message *Message) {
	h.broadcast <- message
}

// Register 注册客户端（公开方法）
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister 注销客户端（公开方法）
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}
