package websocket

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

// HubTestSuite Hub广播测试套件
type HubTestSuite struct {
	suite.Suite
	hub *Hub
}

func (suite *HubTestSuite) SetupTest() {
	suite.hub = NewHub(zap.NewNop())
	go suite.hub.Run()
}

// recvMessage 从客户端发送通道取一条消息
func (suite *HubTestSuite) recvMessage(client *Client) *Message {
	select {
	case data := <-client.Send:
		var msg Message
		suite.NoError(json.Unmarshal(data, &msg))
		return &msg
	case <-time.After(2 * time.Second):
		suite.FailNow("等待消息超时")
		return nil
	}
}

// 测试注册后收到连接确认
func (suite *HubTestSuite) TestRegister() {
	client := NewClient(suite.hub, nil, "alice")
	suite.hub.Register(client)

	msg := suite.recvMessage(client)
	suite.Equal(MessageTypeConnected, msg.Type)
	suite.Equal(1, suite.hub.GetOnlineCount())
	suite.Equal([]string{"alice"}, suite.hub.GetOnlineAgents())
}

// 测试已知事件类型按原类型广播
func (suite *HubTestSuite) TestBroadcastEvent_KnownType() {
	client := NewClient(suite.hub, nil, "")
	suite.hub.Register(client)
	suite.recvMessage(client) // 丢弃连接确认

	suite.hub.BroadcastEvent(MessageTypeTileUpdate, map[string]interface{}{
		"q": 1, "r": 0, "owner": "alice",
	})

	msg := suite.recvMessage(client)
	suite.Equal(MessageTypeTileUpdate, msg.Type)

	var payload map[string]interface{}
	suite.NoError(json.Unmarshal(msg.Data, &payload))
	suite.Equal("alice", payload["owner"])
}

// 测试领域事件被包装为 game_event
func (suite *HubTestSuite) TestBroadcastEvent_Wrapped() {
	client := NewClient(suite.hub, nil, "")
	suite.hub.Register(client)
	suite.recvMessage(client)

	suite.hub.BroadcastEvent("attack_declared", map[string]interface{}{"q": 2})

	msg := suite.recvMessage(client)
	suite.Equal(MessageTypeGameEvent, msg.Type)

	var wrapped map[string]interface{}
	suite.NoError(json.Unmarshal(msg.Data, &wrapped))
	suite.Equal("attack_declared", wrapped["event"])
}

// 测试广播抵达所有客户端
func (suite *HubTestSuite) TestBroadcast_AllClients() {
	a := NewClient(suite.hub, nil, "alice")
	b := NewClient(suite.hub, nil, "bob")
	suite.hub.Register(a)
	suite.hub.Register(b)
	suite.recvMessage(a)
	suite.recvMessage(b)

	suite.hub.BroadcastEvent(MessageTypeTick, map[string]interface{}{"tick": 3})

	suite.Equal(MessageTypeTick, suite.recvMessage(a).Type)
	suite.Equal(MessageTypeTick, suite.recvMessage(b).Type)
}

// 测试定向推送与注销
func (suite *HubTestSuite) TestSendToAgent_AndUnregister() {
	client := NewClient(suite.hub, nil, "alice")
	suite.hub.Register(client)
	suite.recvMessage(client)

	err := suite.hub.SendToAgent("alice", &Message{Type: MessageTypeGameEvent, Timestamp: time.Now().Unix()})
	suite.NoError(err)
	suite.Equal(MessageTypeGameEvent, suite.recvMessage(client).Type)

	err = suite.hub.SendToAgent("nobody", &Message{Type: MessageTypeGameEvent})
	suite.ErrorIs(err, ErrAgentNotConnected)

	suite.hub.Unregister(client)
	suite.Eventually(func() bool {
		return suite.hub.GetOnlineCount() == 0
	}, 2*time.Second, 10*time.Millisecond)
	suite.Empty(suite.hub.GetOnlineAgents())
}

func TestHubTestSuite(t *testing.T) {
	suite.Run(t, new(HubTestSuite))
}
