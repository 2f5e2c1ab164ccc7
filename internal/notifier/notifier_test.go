package notifier

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/JayPixl/ocmafia-old-sub000/internal/repository"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

// fakeStore 可控的指纹源
type fakeStore struct {
	mu    sync.Mutex
	fps   map[uint]repository.RoomFingerprint
	fails bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{fps: make(map[uint]repository.RoomFingerprint)}
}

func (s *fakeStore) fingerprint(ctx context.Context, roomID uint) (*repository.RoomFingerprint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fails {
		return nil, errors.New("数据库查询失败")
	}
	fp := s.fps[roomID]
	return &fp, nil
}

func (s *fakeStore) bump(roomID uint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fp := s.fps[roomID]
	fp.MessageCount++
	fp.MaxID++
	fp.LastChange = time.Now()
	s.fps[roomID] = fp
}

func (s *fakeStore) setFails(fails bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fails = fails
}

func newTestNotifier(store *fakeStore) *Notifier {
	return New(10*time.Millisecond, store.fingerprint, zap.NewNop())
}

// TestNotifier_ChangeDetected 写入后一个轮询周期内收到通知
func TestNotifier_ChangeDetected(t *testing.T) {
	store := newFakeStore()
	n := newTestNotifier(store)
	defer n.Close()

	sub := n.Subscribe(1)
	defer n.Unsubscribe(sub)

	// 等基线建立
	time.Sleep(30 * time.Millisecond)

	store.bump(1)

	select {
	case <-sub.C:
	case <-time.After(200 * time.Millisecond):
		t.Fatal("在轮询周期内没有收到变更通知")
	}
}

// TestNotifier_NoChangeNoSignal 无写入时不通知
func TestNotifier_NoChangeNoSignal(t *testing.T) {
	store := newFakeStore()
	n := newTestNotifier(store)
	defer n.Close()

	sub := n.Subscribe(1)
	defer n.Unsubscribe(sub)

	select {
	case <-sub.C:
		t.Fatal("没有写入却收到了通知")
	case <-time.After(80 * time.Millisecond):
	}
}

// TestNotifier_DeleteDetected 消息删除（计数下降）也触发通知
func TestNotifier_DeleteDetected(t *testing.T) {
	store := newFakeStore()
	store.bump(1)
	store.bump(1)
	n := newTestNotifier(store)
	defer n.Close()

	sub := n.Subscribe(1)
	defer n.Unsubscribe(sub)

	time.Sleep(30 * time.Millisecond)

	// 模拟删除：计数下降，MaxID不变
	store.mu.Lock()
	fp := store.fps[1]
	fp.MessageCount--
	store.fps[1] = fp
	store.mu.Unlock()

	select {
	case <-sub.C:
	case <-time.After(200 * time.Millisecond):
		t.Fatal("删除没有触发通知")
	}
}

// TestNotifier_IdleTeardown 最后一个订阅者退订后轮询器被拆除
func TestNotifier_IdleTeardown(t *testing.T) {
	store := newFakeStore()
	n := newTestNotifier(store)
	defer n.Close()

	sub1 := n.Subscribe(1)
	sub2 := n.Subscribe(1)
	assert.Equal(t, 1, n.ActiveRooms())

	n.Unsubscribe(sub1)
	assert.Equal(t, 1, n.ActiveRooms())

	n.Unsubscribe(sub2)
	assert.Equal(t, 0, n.ActiveRooms())

	// 重复退订是安全的
	n.Unsubscribe(sub2)
	assert.Equal(t, 0, n.ActiveRooms())
}

// TestNotifier_PerRoomIsolation 房间之间互不影响
func TestNotifier_PerRoomIsolation(t *testing.T) {
	store := newFakeStore()
	n := newTestNotifier(store)
	defer n.Close()

	sub1 := n.Subscribe(1)
	sub2 := n.Subscribe(2)
	defer n.Unsubscribe(sub1)
	defer n.Unsubscribe(sub2)
	assert.Equal(t, 2, n.ActiveRooms())

	time.Sleep(30 * time.Millisecond)
	store.bump(1)

	select {
	case <-sub1.C:
	case <-time.After(200 * time.Millisecond):
		t.Fatal("房间1没有收到通知")
	}

	select {
	case <-sub2.C:
		t.Fatal("房间2不应该收到房间1的通知")
	case <-time.After(50 * time.Millisecond):
	}
}

// TestNotifier_PollErrorRetries 查询失败被吞掉，恢复后继续工作
func TestNotifier_PollErrorRetries(t *testing.T) {
	store := newFakeStore()
	n := newTestNotifier(store)
	defer n.Close()

	sub := n.Subscribe(1)
	defer n.Unsubscribe(sub)

	time.Sleep(30 * time.Millisecond)

	store.setFails(true)
	time.Sleep(50 * time.Millisecond)
	store.setFails(false)
	store.bump(1)

	select {
	case <-sub.C:
	case <-time.After(200 * time.Millisecond):
		t.Fatal("查询恢复后没有收到通知")
	}
}

// TestNotifier_MultipleSubscribers 同房间所有订阅者都收到通知
func TestNotifier_MultipleSubscribers(t *testing.T) {
	store := newFakeStore()
	n := newTestNotifier(store)
	defer n.Close()

	sub1 := n.Subscribe(1)
	sub2 := n.Subscribe(1)
	defer n.Unsubscribe(sub1)
	defer n.Unsubscribe(sub2)

	time.Sleep(30 * time.Millisecond)
	store.bump(1)

	for _, sub := range []*Subscription{sub1, sub2} {
		select {
		case <-sub.C:
		case <-time.After(200 * time.Millisecond):
			t.Fatal("有订阅者没有收到通知")
		}
	}
}

// TestNotifier_Close 关闭后订阅通道全部关闭
func TestNotifier_Close(t *testing.T) {
	store := newFakeStore()
	n := newTestNotifier(store)

	sub := n.Subscribe(1)
	n.Close()

	_, open := <-sub.C
	assert.False(t, open)
	assert.Equal(t, 0, n.ActiveRooms())

	// 关闭后的订阅立即拿到已关闭的通道
	late := n.Subscribe(2)
	_, open = <-late.C
	assert.False(t, open)
}
