package game

// ActionType 智能体可以提交的行动类型
type ActionType string

const (
	ActionExpand        ActionType = "expand"
	ActionAttack        ActionType = "attack"
	ActionFortify       ActionType = "fortify"
	ActionGiftTile      ActionType = "gift_tile"
	ActionGiftResources ActionType = "gift_resources"
	ActionSetCapital    ActionType = "set_capital"
	ActionSendMessage   ActionType = "send_message"
	ActionProposeTrade  ActionType = "propose_trade"
	ActionAcceptTrade   ActionType = "accept_trade"
	ActionRejectTrade   ActionType = "reject_trade"
)

// ActionRequest 行动请求，不同类型只使用其中一部分字段
type ActionRequest struct {
	Type ActionType `json:"type" binding:"required"`

	// 坐标类行动（expand/attack/fortify/gift_tile/set_capital）
	Q *int `json:"q,omitempty"`
	R *int `json:"r,omitempty"`

	// 攻击投入的金属
	Commitment int `json:"commitment,omitempty"`

	// 目标智能体（gift_tile/gift_resources/send_message/propose_trade）
	TargetAgent string `json:"target_agent,omitempty"`

	// 资源转移数量（gift_resources）
	Food  int `json:"food,omitempty"`
	Metal int `json:"metal,omitempty"`

	// 消息内容（send_message）
	Content string `json:"content,omitempty"`

	// 交易条款（propose_trade）
	OfferFood    int `json:"offer_food,omitempty"`
	OfferMetal   int `json:"offer_metal,omitempty"`
	RequestFood  int `json:"request_food,omitempty"`
	RequestMetal int `json:"request_metal,omitempty"`

	// 交易编号（accept_trade/reject_trade）
	TradeID string `json:"trade_id,omitempty"`
}

// ActionResult 行动执行结果，事务提交后返回给调用方
type ActionResult struct {
	Message string                 `json:"message"`
	Data    map[string]interface{} `json:"data,omitempty"`

	// 事务提交后才发出的副作用
	effects []postEffect

	// 需要提交事务但仍向调用方报失败的场合（例如接受交易时将其标记为过期）
	failure error
}

// postEffect 事务提交后需要分发的事件
type postEffect struct {
	eventType string
	payload   map[string]interface{}
	// 需要 webhook 通知的智能体（为空时只做广播）
	notifyAgentID string
	notifyURL     string
}

func (r *ActionResult) addEffect(eventType string, payload map[string]interface{}) {
	r.effects = append(r.effects, postEffect{eventType: eventType, payload: payload})
}

func (r *ActionResult) addNotify(agentID, webhookURL, eventType string, payload map[string]interface{}) {
	r.effects = append(r.effects, postEffect{
		eventType:     eventType,
		payload:       payload,
		notifyAgentID: agentID,
		notifyURL:     webhookURL,
	})
}

// Broadcaster 实时推送接口，由 WebSocket Hub 实现
type Broadcaster interface {
	BroadcastEvent(eventType string, payload map[string]interface{})
}

// Notifier webhook 通知接口
type Notifier interface {
	Notify(agentID, webhookURL, eventType string, payload map[string]interface{})
}

// noopBroadcaster 未接入推送时的空实现
type noopBroadcaster struct{}

func (noopBroadcaster) BroadcastEvent(string, map[string]interface{}) {}

// noopNotifier 未接入通知时的空实现
type noopNotifier struct{}

func (noopNotifier) Notify(string, string, string, map[string]interface{}) {}
