// Package notify 通知扇出：入箱落库、WebSocket 实时推送、异步投递队列
package notify

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
)

// Hub 按用户维护 WebSocket 连接注册表
// 同一用户允许多个并发连接（多端在线），推送发往全部连接。
// gorilla 连接只允许单个并发写者，每个连接配一把写锁，
// 多个投递 worker 推送同一连接时在写锁上排队
type Hub struct {
	mu       sync.RWMutex
	conns    map[string]map[*websocket.Conn]*sync.Mutex // userID -> conn -> 写锁
	wsActive prometheus.Gauge                           // 可选
}

// NewHub 创建连接注册表
func NewHub(wsActive prometheus.Gauge) *Hub {
	return &Hub{
		conns:    make(map[string]map[*websocket.Conn]*sync.Mutex),
		wsActive: wsActive,
	}
}

// Register 登记连接
func (h *Hub) Register(userID string, conn *websocket.Conn) {
	h.mu.Lock()
	if h.conns[userID] == nil {
		h.conns[userID] = make(map[*websocket.Conn]*sync.Mutex)
	}
	h.conns[userID][conn] = &sync.Mutex{}
	total := h.total()
	h.mu.Unlock()

	if h.wsActive != nil {
		h.wsActive.Inc()
	}
	log.Printf("[notify.hub] client connected: user=%s total=%d", userID, total)
}

// Unregister 注销连接
func (h *Hub) Unregister(userID string, conn *websocket.Conn) {
	h.mu.Lock()
	if set, ok := h.conns[userID]; ok {
		if _, registered := set[conn]; registered {
			delete(set, conn)
			if h.wsActive != nil {
				h.wsActive.Dec()
			}
		}
		if len(set) == 0 {
			delete(h.conns, userID)
		}
	}
	total := h.total()
	h.mu.Unlock()

	log.Printf("[notify.hub] client disconnected: user=%s remaining=%d", userID, total)
}

// SendToUser 将载荷推送到用户的所有在线连接
// 返回成功写入的连接数；无连接或全部失败返回 0
func (h *Hub) SendToUser(userID string, payload interface{}) int {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("[notify.hub] marshal error: %v", err)
		return 0
	}

	type target struct {
		conn *websocket.Conn
		wmu  *sync.Mutex
	}
	h.mu.RLock()
	targets := make([]target, 0, len(h.conns[userID]))
	for conn, wmu := range h.conns[userID] {
		targets = append(targets, target{conn: conn, wmu: wmu})
	}
	h.mu.RUnlock()

	sent := 0
	for _, tg := range targets {
		// 写锁覆盖截止时间设置到写完整帧
		tg.wmu.Lock()
		tg.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		err := tg.conn.WriteMessage(websocket.TextMessage, data)
		tg.wmu.Unlock()
		if err != nil {
			log.Printf("[notify.hub] write to user=%s failed: %v", userID, err)
			continue
		}
		sent++
	}
	return sent
}

// Online 用户是否有在线连接
func (h *Hub) Online(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[userID]) > 0
}

// total 调用方持锁
func (h *Hub) total() int {
	n := 0
	for _, set := range h.conns {
		n += len(set)
	}
	return n
}
