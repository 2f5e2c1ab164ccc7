// Package ws 聊天室变更通知的websocket投递
// 与SSE共享同一个订阅注册表（notifier），连接断开即退订
package ws

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/JayPixl/ocmafia-old-sub000/internal/notifier"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// WebSocket配置
const (
	// 写超时
	writeWait = 10 * time.Second

	// 读取pong超时
	pongWait = 60 * time.Second

	// ping发送周期（必须小于pongWait）
	pingPeriod = (pongWait * 9) / 10

	// 客户端不需要上行数据，给个很小的上限
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// 通知不携带内容，跨域订阅无害
		return true
	},
}

// refreshEvent 推送给客户端的信号，不携带消息内容
type refreshEvent struct {
	Type   string `json:"type"`
	RoomID uint   `json:"room_id"`
}

// Client 一个房间通知连接
type Client struct {
	conn *websocket.Conn
	sub  *notifier.Subscription
	n    *notifier.Notifier
	log  *zap.Logger
	done chan struct{}
}

// Serve 升级连接并订阅房间，阻塞到连接关闭
func Serve(w http.ResponseWriter, r *http.Request, n *notifier.Notifier, roomID uint, log *zap.Logger) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	client := &Client{
		conn: conn,
		sub:  n.Subscribe(roomID),
		n:    n,
		log:  log,
		done: make(chan struct{}),
	}

	go client.readPump()
	client.writePump()
	return nil
}

// readPump 只消费控制帧，客户端不该发业务数据
func (c *Client) readPump() {
	defer close(c.done)

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Debug("WebSocket读取错误",
					zap.Uint("room_id", c.sub.RoomID()),
					zap.Error(err))
			}
			return
		}
	}
}

// writePump 把订阅信号转成refresh事件推给客户端
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.n.Unsubscribe(c.sub)
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			return

		case _, ok := <-c.sub.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// 通知器关闭
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			payload, _ := json.Marshal(refreshEvent{Type: "refresh", RoomID: c.sub.RoomID()})
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
