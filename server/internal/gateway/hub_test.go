package gateway

import (
	"testing"
	"time"
)

// TestHubPublishFansOutToSession 验证同会话多连接的广播。
// 场景：同一会话注册两个网关，另一会话注册第三个；Publish 后前两个
// 客户端都收到消息，第三个客户端在截止时间内收不到任何帧。
func TestHubPublishFansOutToSession(t *testing.T) {
	hub := NewHub(nil)

	pairA := newWSPair(t)
	defer pairA.close()
	pairB := newWSPair(t)
	defer pairB.close()
	pairOther := newWSPair(t)
	defer pairOther.close()

	gwA := NewGateway("C_1", pairA.server, Config{}, nil, nil)
	gwB := NewGateway("C_1", pairB.server, Config{}, nil, nil)
	gwOther := NewGateway("C_2", pairOther.server, Config{}, nil, nil)
	defer gwA.Close()
	defer gwB.Close()
	defer gwOther.Close()

	hub.Register(gwA)
	hub.Register(gwB)
	hub.Register(gwOther)

	hub.Publish("C_1", ServerMessage{Type: EventTypeConversation, Kind: "reveal"})

	for i, pair := range []*wsPair{pairA, pairB} {
		msg := pair.readMessage(t)
		if msg.Type != EventTypeConversation || msg.Kind != "reveal" {
			t.Fatalf("subscriber %d got unexpected message: type=%s kind=%s", i, msg.Type, msg.Kind)
		}
	}

	_ = pairOther.client.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	if _, _, err := pairOther.client.ReadMessage(); err == nil {
		t.Fatalf("session C_2 should not receive C_1 broadcast")
	}
}

// TestHubPublishClosesBrokenGateway 验证推送失败时的摘除。
// 场景：会话下一个连接已断开，Publish 不 panic，失败的网关被关闭，
// 同会话的健康连接仍然收到消息。
func TestHubPublishClosesBrokenGateway(t *testing.T) {
	hub := NewHub(nil)

	healthy := newWSPair(t)
	defer healthy.close()
	broken := newWSPair(t)
	defer broken.close()

	gwHealthy := NewGateway("C_1", healthy.server, Config{}, nil, nil)
	gwBroken := NewGateway("C_1", broken.server, Config{}, nil, nil)
	defer gwHealthy.Close()

	hub.Register(gwHealthy)
	hub.Register(gwBroken)

	_ = broken.server.Close()

	hub.Publish("C_1", ServerMessage{Type: EventTypeAnswerResult})

	msg := healthy.readMessage(t)
	if msg.Type != EventTypeAnswerResult {
		t.Fatalf("healthy subscriber got unexpected message type: %s", msg.Type)
	}

	select {
	case <-gwBroken.Done():
	case <-time.After(time.Second):
		t.Fatalf("broken gateway should be closed after failed push")
	}
}
