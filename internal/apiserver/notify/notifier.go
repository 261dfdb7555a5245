package notify

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"careerhub/internal/shared/model"
)

// Store 通知入箱落库所需的最小接口
type Store interface {
	PushNotification(ctx context.Context, userID string, n model.Notification) error
}

// task 一次投递任务
type task struct {
	recipientID  string
	notification model.Notification
}

// Notifier 通知扇出器
//
// 投递是尽力而为的：入箱落库和 WebSocket 推送互相独立，
// 任一通道失败只记录日志，绝不影响触发它的业务操作。
type Notifier struct {
	store      Store
	hub        *Hub
	deliveries *prometheus.CounterVec // 可选，labels: channel, outcome

	queue chan task
	quit  chan struct{}
	wg    sync.WaitGroup
	once  sync.Once
}

// NewNotifier 创建通知扇出器
func NewNotifier(store Store, hub *Hub, deliveries *prometheus.CounterVec) *Notifier {
	return &Notifier{
		store:      store,
		hub:        hub,
		deliveries: deliveries,
		queue:      make(chan task, 256),
		quit:       make(chan struct{}),
	}
}

// Start 启动投递 worker
func (n *Notifier) Start(workers int) {
	if workers <= 0 {
		workers = 2
	}
	for i := 0; i < workers; i++ {
		n.wg.Add(1)
		go n.worker()
	}
	log.Printf("[notify] dispatcher started: workers=%d", workers)
}

// Stop 停止投递，等待在途任务完成；队列中未取出的任务被丢弃
func (n *Notifier) Stop() {
	n.once.Do(func() { close(n.quit) })
	n.wg.Wait()
	if pending := len(n.queue); pending > 0 {
		log.Printf("[notify] dispatcher stopped, dropped %d pending deliveries", pending)
	}
}

// Notify 异步投递通知，非阻塞
// 队列满时丢弃并记录，不向调用方返回错误
func (n *Notifier) Notify(recipientID string, notification model.Notification) {
	t := task{recipientID: recipientID, notification: notification}
	select {
	case n.queue <- t:
	default:
		log.Printf("[notify] queue full, dropped notification type=%s to=%s", notification.Type, recipientID)
		n.count("queue", "dropped")
	}
}

// NotifySync 同步投递（启动引导、测试等不经过队列的场景）
func (n *Notifier) NotifySync(ctx context.Context, recipientID string, notification model.Notification) {
	n.deliver(ctx, task{recipientID: recipientID, notification: notification})
}

func (n *Notifier) worker() {
	defer n.wg.Done()
	for {
		select {
		case t := <-n.queue:
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			n.deliver(ctx, t)
			cancel()
		case <-n.quit:
			return
		}
	}
}

// deliver 落库入箱后推送在线连接，两个通道独立失败
func (n *Notifier) deliver(ctx context.Context, t task) {
	if err := n.store.PushNotification(ctx, t.recipientID, t.notification); err != nil {
		log.Printf("[notify] inbox delivery failed: to=%s type=%s: %v", t.recipientID, t.notification.Type, err)
		n.count("inbox", "error")
	} else {
		n.count("inbox", "ok")
	}

	if n.hub == nil || !n.hub.Online(t.recipientID) {
		n.count("ws", "skipped")
		return
	}
	msg := WSMessage{Type: "notification", Data: t.notification, Timestamp: time.Now()}
	if sent := n.hub.SendToUser(t.recipientID, msg); sent == 0 {
		n.count("ws", "error")
	} else {
		n.count("ws", "ok")
	}
}

func (n *Notifier) count(channel, outcome string) {
	if n.deliveries != nil {
		n.deliveries.WithLabelValues(channel, outcome).Inc()
	}
}
