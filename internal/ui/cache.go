package ui

import (
	"sync"
	"time"

	"github.com/nao1215/localservices/pkg/event"
)

// defaultViewTTL はビューキャッシュの既定の有効期間。
const defaultViewTTL = 30 * time.Second

// cachedEntry はキャッシュされた読み取り結果。
type cachedEntry struct {
	value    any
	storedAt time.Time
}

// viewCache はAPIの読み取り結果をリソースファミリー単位で保持する。
// 変更通知を受けたファミリーのエントリは破棄する。
type viewCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[event.Family]map[string]cachedEntry
	// gens はファミリーごとの世代番号。破棄のたびに進める。
	gens map[event.Family]uint64
	// epoch は全体の世代番号。purgeのたびに進める。
	epoch uint64
}

// stamp は読み込み開始時点の世代。
type stamp struct {
	epoch uint64
	gen   uint64
}

// newViewCache は空のキャッシュを生成する。
func newViewCache(ttl time.Duration) *viewCache {
	if ttl <= 0 {
		ttl = defaultViewTTL
	}
	return &viewCache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[event.Family]map[string]cachedEntry),
		gens:    make(map[event.Family]uint64),
	}
}

// subscribe は変更通知でキャッシュを破棄するようbusに登録する。
func (v *viewCache) subscribe(bus *event.Bus) func() {
	return bus.Subscribe(func(m event.Mutation) {
		v.invalidate(m.Invalidates()...)
	})
}

// get は有効期間内のエントリと、現在の世代を返す。
func (v *viewCache) get(family event.Family, key string) (any, stamp, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	st := stamp{epoch: v.epoch, gen: v.gens[family]}
	e, ok := v.entries[family][key]
	if !ok || v.now().Sub(e.storedAt) > v.ttl {
		return nil, st, false
	}
	return e.value, st, true
}

// put はエントリを保存する。読み込み中に破棄が起きていた場合（世代が変わっていた場合）は保存しない。
func (v *viewCache) put(family event.Family, key string, st stamp, value any) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.epoch != st.epoch || v.gens[family] != st.gen {
		return
	}
	if v.entries[family] == nil {
		v.entries[family] = make(map[string]cachedEntry)
	}
	v.entries[family][key] = cachedEntry{value: value, storedAt: v.now()}
}

// invalidate は指定したファミリーのエントリを破棄する。
func (v *viewCache) invalidate(families ...event.Family) {
	v.mu.Lock()
	defer v.mu.Unlock()

	for _, f := range families {
		delete(v.entries, f)
		v.gens[f]++
	}
}

// purge は全エントリを破棄する。利用者が切り替わったときに使う。
func (v *viewCache) purge() {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.epoch++
	v.entries = make(map[event.Family]map[string]cachedEntry)
}

// cached はキャッシュにあればそれを返し、なければloadで読み込んで保存する。
func cached[T any](v *viewCache, family event.Family, key string, load func() (T, error)) (T, error) {
	hit, st, ok := v.get(family, key)
	if ok {
		if t, ok := hit.(T); ok {
			return t, nil
		}
	}
	out, err := load()
	if err != nil {
		return out, err
	}
	v.put(family, key, st, out)
	return out, nil
}
