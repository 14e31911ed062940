package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// wsPair 一对真实的 WebSocket 连接：server 端交给网关，client 端模拟浏览器。
type wsPair struct {
	server *websocket.Conn
	client *websocket.Conn
	ts     *httptest.Server
}

func newWSPair(t *testing.T) *wsPair {
	t.Helper()

	upgrader := websocket.Upgrader{}
	accepted := make(chan *websocket.Conn, 1)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		accepted <- conn
	}))

	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		ts.Close()
		t.Fatalf("dial websocket: %v", err)
	}

	select {
	case server := <-accepted:
		return &wsPair{server: server, client: client, ts: ts}
	case <-time.After(time.Second):
		ts.Close()
		t.Fatalf("server side connection not accepted")
		return nil
	}
}

func (p *wsPair) close() {
	_ = p.client.Close()
	_ = p.server.Close()
	p.ts.Close()
}

func (p *wsPair) readMessage(t *testing.T) ServerMessage {
	t.Helper()
	_ = p.client.SetReadDeadline(time.Now().Add(time.Second))
	_, payload, err := p.client.ReadMessage()
	if err != nil {
		t.Fatalf("read client message: %v", err)
	}
	var msg ServerMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		t.Fatalf("decode client message: %v", err)
	}
	return msg
}

// TestGatewaySendAssignsMonotonicSeq 验证出站推送的单调 seq。
// 场景：同一连接连续 Send 三条消息，客户端收到的 seq 严格递增
// （1、2、3），且每条都带服务端时间戳。
func TestGatewaySendAssignsMonotonicSeq(t *testing.T) {
	pair := newWSPair(t)
	defer pair.close()

	gw := NewGateway("C_1", pair.server, Config{}, nil, nil)
	defer gw.Close()

	for i := 0; i < 3; i++ {
		if err := gw.Send(ServerMessage{Type: EventTypeConversation, Kind: "reveal"}); err != nil {
			t.Fatalf("send %d: %v", i, err)
		}
	}

	var last int64
	for i := 0; i < 3; i++ {
		msg := pair.readMessage(t)
		if msg.Seq != last+1 {
			t.Fatalf("expected seq %d, got %d", last+1, msg.Seq)
		}
		if msg.ServerTS.IsZero() {
			t.Fatalf("expected server timestamp on push %d", i)
		}
		last = msg.Seq
	}
}

// TestGatewayInboundEventReachesHandler 验证入站事件经队列到达处理器。
// 场景：客户端发一条 option_select，注入的处理器收到带会话 id 的消息。
func TestGatewayInboundEventReachesHandler(t *testing.T) {
	pair := newWSPair(t)
	defer pair.close()

	received := make(chan string, 1)
	gw := NewGateway("C_1", pair.server, Config{}, func(_ context.Context, sessionID string, msg *ClientMessage) error {
		received <- sessionID + "/" + msg.Option
		return nil
	}, nil)
	defer gw.Close()
	gw.Start()

	payload, _ := json.Marshal(ClientMessage{Type: EventTypeOptionSelect, Option: "option2-step1"})
	if err := pair.client.WriteMessage(websocket.TextMessage, payload); err != nil {
		t.Fatalf("write client message: %v", err)
	}

	select {
	case got := <-received:
		if got != "C_1/option2-step1" {
			t.Fatalf("unexpected handler input: %s", got)
		}
	case <-time.After(time.Second):
		t.Fatalf("handler never received the event")
	}
}
