package notify

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"careerhub/internal/apiserver/auth"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // 跨域由反向代理控制
	},
}

// WSMessage 推送给客户端的消息封装
type WSMessage struct {
	Type      string      `json:"type"` // notification
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

// WSHandler 通知长连接处理器
type WSHandler struct {
	hub *Hub
}

// NewWSHandler 创建通知长连接处理器
func NewWSHandler(hub *Hub) *WSHandler {
	return &WSHandler{hub: hub}
}

// RegisterRoutes 注册 WebSocket 路由
func (h *WSHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /ws/notifications", h.HandleWebSocket)
}

// HandleWebSocket 建立通知推送连接
// 认证由会话中间件完成（浏览器握手带 Cookie）
//
// 路由: GET /ws/notifications
func (h *WSHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	p := auth.GetPrincipal(r.Context())
	if p == nil {
		http.Error(w, "not authenticated", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[notify.ws] upgrade error: %v", err)
		return
	}

	h.hub.Register(p.ID, conn)
	go h.readPump(p.ID, conn)
}

// readPump 消费客户端消息保持连接，断开时注销
func (h *WSHandler) readPump(userID string, conn *websocket.Conn) {
	defer func() {
		h.hub.Unregister(userID, conn)
		conn.Close()
	}()

	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, _, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[notify.ws] read error: %v", err)
			}
			break
		}
	}
}
