// Package notifier 聊天室变更通知器
// 按房间轮询内容指纹，变化时向订阅者推送空信号，客户端收到后自行重新拉取。
// 每个有订阅者的房间一个轮询器：首个订阅者启动，最后一个退订时停止。
package notifier

import (
	"context"
	"sync"
	"time"

	"github.com/JayPixl/ocmafia-old-sub000/internal/repository"
	"go.uber.org/zap"
)

// Fingerprinter 计算房间内容指纹
type Fingerprinter func(ctx context.Context, roomID uint) (*repository.RoomFingerprint, error)

// Subscription 一个订阅者
// C上的信号不携带内容，仅表示"房间变了，去重新拉取"
type Subscription struct {
	roomID uint
	C      chan struct{}
}

// RoomID 订阅的房间
func (s *Subscription) RoomID() uint {
	return s.roomID
}

// Notifier 变更通知器
// 显式的订阅注册表，不依赖全局事件总线
type Notifier struct {
	interval    time.Duration
	fingerprint Fingerprinter
	log         *zap.Logger

	mu     sync.Mutex
	rooms  map[uint]*roomPoller
	closed bool
}

// roomPoller 单个房间的轮询器
type roomPoller struct {
	cancel      context.CancelFunc
	subscribers map[*Subscription]struct{}
	last        *repository.RoomFingerprint
}

// New 创建通知器
func New(interval time.Duration, fingerprint Fingerprinter, log *zap.Logger) *Notifier {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	return &Notifier{
		interval:    interval,
		fingerprint: fingerprint,
		log:         log,
		rooms:       make(map[uint]*roomPoller),
	}
}

// Subscribe 订阅房间变更
// 房间的首个订阅者会启动轮询器
func (n *Notifier) Subscribe(roomID uint) *Subscription {
	sub := &Subscription{
		roomID: roomID,
		C:      make(chan struct{}, 1),
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		close(sub.C)
		return sub
	}

	poller, ok := n.rooms[roomID]
	if !ok {
		ctx, cancel := context.WithCancel(context.Background())
		poller = &roomPoller{
			cancel:      cancel,
			subscribers: make(map[*Subscription]struct{}),
		}
		n.rooms[roomID] = poller
		go n.poll(ctx, roomID)
		n.log.Debug("Room poller started", zap.Uint("room_id", roomID))
	}
	poller.subscribers[sub] = struct{}{}
	return sub
}

// Unsubscribe 退订
// 房间最后一个订阅者退订时停止轮询器，空闲房间不占资源
func (n *Notifier) Unsubscribe(sub *Subscription) {
	n.mu.Lock()
	defer n.mu.Unlock()

	poller, ok := n.rooms[sub.roomID]
	if !ok {
		return
	}
	if _, ok := poller.subscribers[sub]; !ok {
		return
	}
	delete(poller.subscribers, sub)
	close(sub.C)

	if len(poller.subscribers) == 0 {
		poller.cancel()
		delete(n.rooms, sub.roomID)
		n.log.Debug("Room poller stopped", zap.Uint("room_id", sub.roomID))
	}
}

// ActiveRooms 当前有订阅者的房间数
func (n *Notifier) ActiveRooms() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.rooms)
}

// Close 停止所有轮询器并关闭所有订阅
func (n *Notifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}
	n.closed = true
	for roomID, poller := range n.rooms {
		poller.cancel()
		for sub := range poller.subscribers {
			close(sub.C)
		}
		delete(n.rooms, roomID)
	}
}

// poll 房间轮询循环
// 指纹变化时通知所有订阅者；查询失败只记日志，下一轮重试
func (n *Notifier) poll(ctx context.Context, roomID uint) {
	ticker := time.NewTicker(n.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fp, err := n.fingerprint(ctx, roomID)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				n.log.Warn("Fingerprint poll failed",
					zap.Uint("room_id", roomID),
					zap.Error(err))
				continue
			}
			n.compareAndNotify(roomID, fp)
		}
	}
}

// compareAndNotify 比较指纹并在变化时通知
// 首次观测只建立基线，不通知（客户端挂载时无条件拉取一次）
func (n *Notifier) compareAndNotify(roomID uint, fp *repository.RoomFingerprint) {
	n.mu.Lock()
	defer n.mu.Unlock()

	poller, ok := n.rooms[roomID]
	if !ok {
		return
	}

	if poller.last != nil && *poller.last != *fp {
		for sub := range poller.subscribers {
			// 非阻塞发送：信号已在途时合并本次通知
			select {
			case sub.C <- struct{}{}:
			default:
			}
		}
		n.log.Debug("Room change notified",
			zap.Uint("room_id", roomID),
			zap.Int("subscribers", len(poller.subscribers)))
	}
	poller.last = fp
}
