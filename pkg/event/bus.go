package event

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// New は新しい変更通知を生成する。
func New(family Family, op Operation, resourceID int64) Mutation {
	return Mutation{
		ID:         uuid.New().String(),
		Family:     family,
		Operation:  op,
		ResourceID: resourceID,
		OccurredAt: time.Now().UTC(),
	}
}

// Handler は変更通知を受け取る関数。
type Handler func(Mutation)

// Bus は変更通知をプロセス内の購読者へ同期的に配送する。
// 配送は購読順に行われ、Publishは全購読者の処理が終わるまで戻らない。
type Bus struct {
	mu       sync.RWMutex
	nextID   int
	handlers map[int]Handler
	order    []int
}

// NewBus は購読者のいないBusを生成する。
func NewBus() *Bus {
	return &Bus{handlers: make(map[int]Handler)}
}

// Subscribe はハンドラを登録し、登録を解除する関数を返す。
func (b *Bus) Subscribe(h Handler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.handlers[id] = h
	b.order = append(b.order, id)

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		delete(b.handlers, id)
		for i, v := range b.order {
			if v == id {
				b.order = append(b.order[:i], b.order[i+1:]...)
				break
			}
		}
	}
}

// Publish は変更通知を全購読者に配送する。nilのBusに対しては何もしない。
func (b *Bus) Publish(m Mutation) {
	if b == nil {
		return
	}

	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.order))
	for _, id := range b.order {
		handlers = append(handlers, b.handlers[id])
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(m)
	}
}
