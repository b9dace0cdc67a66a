package store

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"builtf/backend/internal/logging"
)

// LiveQuery is a standing subscription over a filtered collection query.
// Every delivered snapshot fully replaces the in-memory list. The
// subscription is closed exactly once, on Stop or before a restart.
type LiveQuery struct {
	remote Remote

	mu      sync.Mutex
	path    string
	filter  Filter
	data    []Record
	loading bool
	err     string
	active  bool
	cancel  func()
	subs    map[int]func([]Record)
	nextSub int
}

func NewLiveQuery(remote Remote, path, field, op string, value any) *LiveQuery {
	return &LiveQuery{
		remote:  remote,
		path:    path,
		filter:  Filter{Field: field, Op: op, Value: value},
		loading: true,
		subs:    map[int]func([]Record){},
	}
}

func (q *LiveQuery) Data() []Record {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Record, len(q.data))
	copy(out, q.data)
	return out
}

func (q *LiveQuery) Loading() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.loading
}

func (q *LiveQuery) Err() string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.err
}

// Start opens the subscription. With any input missing the query is
// inactive: loading is cleared and no subscription is made. A running
// subscription is closed before a new one opens.
func (q *LiveQuery) Start(ctx context.Context) error {
	q.Stop()

	q.mu.Lock()
	if q.path == "" || q.filter.Field == "" || q.filter.Value == nil {
		q.loading = false
		q.mu.Unlock()
		return nil
	}
	q.loading = true
	q.err = ""
	path, filter := q.path, q.filter
	q.mu.Unlock()

	cancel, err := q.remote.Subscribe(ctx, path, filter, q.onSnapshot, q.onError)
	if err != nil {
		logging.L().Error("subscription failed", zap.String("collection", path), zap.Error(err))
		q.mu.Lock()
		q.err = err.Error()
		q.loading = false
		q.mu.Unlock()
		return err
	}

	once := new(sync.Once)
	q.mu.Lock()
	q.active = true
	q.cancel = func() { once.Do(cancel) }
	q.mu.Unlock()
	return nil
}

// Restart repoints the query at new inputs. The old subscription closes
// before the new one opens.
func (q *LiveQuery) Restart(ctx context.Context, path, field, op string, value any) error {
	q.Stop()
	q.mu.Lock()
	q.path = path
	q.filter = Filter{Field: field, Op: op, Value: value}
	q.mu.Unlock()
	return q.Start(ctx)
}

// Stop tears the subscription down. Idempotent: the underlying cancel runs
// at most once.
func (q *LiveQuery) Stop() {
	q.mu.Lock()
	cancel := q.cancel
	q.cancel = nil
	q.active = false
	q.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// OnSnapshot registers an observer called with every delivered snapshot and
// returns its unsubscribe. Register before Start to see the initial snapshot.
func (q *LiveQuery) OnSnapshot(fn func([]Record)) func() {
	q.mu.Lock()
	id := q.nextSub
	q.nextSub++
	q.subs[id] = fn
	q.mu.Unlock()
	return func() {
		q.mu.Lock()
		delete(q.subs, id)
		q.mu.Unlock()
	}
}

func (q *LiveQuery) onSnapshot(records []Record) {
	q.mu.Lock()
	q.data = records
	q.loading = false
	subs := make([]func([]Record), 0, len(q.subs))
	for _, fn := range q.subs {
		subs = append(subs, fn)
	}
	q.mu.Unlock()
	for _, fn := range subs {
		fn(records)
	}
}

func (q *LiveQuery) onError(err error) {
	q.mu.Lock()
	path := q.path
	q.err = err.Error()
	q.loading = false
	q.mu.Unlock()
	logging.L().Error("subscription error", zap.String("collection", path), zap.Error(err))
}
