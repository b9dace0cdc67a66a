package store

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

var fakeNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// fakeRemote is an in-memory Remote with call counters, injectable failures
// and synchronous snapshot delivery.
type fakeRemote struct {
	mu     sync.Mutex
	docs   map[string]map[string]any // full doc path -> fields
	order  []string
	nextID int
	calls  map[string]int
	failOn map[string]error

	subs    map[int]*fakeSub
	nextSub int
	cancels map[int]int
}

type fakeSub struct {
	id         int
	path       string
	filter     Filter
	onSnapshot func([]Record)
	onError    func(error)
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		docs:    map[string]map[string]any{},
		calls:   map[string]int{},
		failOn:  map[string]error{},
		subs:    map[int]*fakeSub{},
		cancels: map[int]int{},
	}
}

func (f *fakeRemote) callCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeRemote) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *fakeRemote) failWith(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failOn[op] = err
}

// seed inserts a document without touching counters or subscriptions.
func (f *fakeRemote) seed(docPath string, fields map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.insertLocked(docPath, fields)
}

func (f *fakeRemote) insertLocked(docPath string, fields map[string]any) {
	cp := make(map[string]any, len(fields))
	for k, v := range fields {
		if _, ok := v.(serverTimestamp); ok {
			cp[k] = fakeNow
			continue
		}
		cp[k] = v
	}
	if _, exists := f.docs[docPath]; !exists {
		f.order = append(f.order, docPath)
	}
	f.docs[docPath] = cp
}

func docID(docPath string) string {
	return docPath[strings.LastIndex(docPath, "/")+1:]
}

func parentOf(docPath string) string {
	return docPath[:strings.LastIndex(docPath, "/")]
}

func (f *fakeRemote) snapshotLocked(collectionPath string) []Record {
	var out []Record
	for _, p := range f.order {
		if parentOf(p) != collectionPath {
			continue
		}
		if fields, ok := f.docs[p]; ok {
			out = append(out, Normalize(docID(p), fields))
		}
	}
	return out
}

func matches(rec Record, filter Filter) bool {
	if filter.Op != "" && filter.Op != "==" {
		return false
	}
	return rec[filter.Field] == filter.Value
}

func (f *fakeRemote) GetAll(_ context.Context, collectionPath string) ([]Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["GetAll"]++
	if err := f.failOn["GetAll"]; err != nil {
		return nil, err
	}
	return f.snapshotLocked(collectionPath), nil
}

func (f *fakeRemote) GetDoc(_ context.Context, docPath string) (Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["GetDoc"]++
	if err := f.failOn["GetDoc"]; err != nil {
		return nil, err
	}
	fields, ok := f.docs[docPath]
	if !ok {
		return nil, ErrNotFound
	}
	return Normalize(docID(docPath), fields), nil
}

func (f *fakeRemote) Add(_ context.Context, collectionPath string, fields map[string]any) (string, error) {
	f.mu.Lock()
	f.calls["Add"]++
	if err := f.failOn["Add"]; err != nil {
		f.mu.Unlock()
		return "", err
	}
	f.nextID++
	id := fmt.Sprintf("doc%d", f.nextID)
	f.insertLocked(collectionPath+"/"+id, fields)
	f.mu.Unlock()
	f.notify(collectionPath)
	return id, nil
}

func (f *fakeRemote) Merge(_ context.Context, docPath string, fields map[string]any) error {
	f.mu.Lock()
	f.calls["Merge"]++
	if err := f.failOn["Merge"]; err != nil {
		f.mu.Unlock()
		return err
	}
	existing, ok := f.docs[docPath]
	if !ok {
		f.insertLocked(docPath, fields)
	} else {
		for k, v := range fields {
			if _, sv := v.(serverTimestamp); sv {
				existing[k] = fakeNow
				continue
			}
			existing[k] = v
		}
	}
	f.mu.Unlock()
	f.notify(parentOf(docPath))
	return nil
}

func (f *fakeRemote) Delete(_ context.Context, docPath string) error {
	f.mu.Lock()
	f.calls["Delete"]++
	if err := f.failOn["Delete"]; err != nil {
		f.mu.Unlock()
		return err
	}
	delete(f.docs, docPath)
	f.mu.Unlock()
	f.notify(parentOf(docPath))
	return nil
}

func (f *fakeRemote) Query(_ context.Context, collectionPath string, filter Filter) ([]Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["Query"]++
	if err := f.failOn["Query"]; err != nil {
		return nil, err
	}
	var out []Record
	for _, rec := range f.snapshotLocked(collectionPath) {
		if matches(rec, filter) {
			out = append(out, rec)
		}
	}
	return out, nil
}

// Subscribe delivers the initial snapshot synchronously, then again on every
// write under the collection. cancelCount tracks teardowns per subscription.
func (f *fakeRemote) Subscribe(_ context.Context, collectionPath string, filter Filter, onSnapshot func([]Record), onError func(error)) (func(), error) {
	f.mu.Lock()
	f.calls["Subscribe"]++
	if err := f.failOn["Subscribe"]; err != nil {
		f.mu.Unlock()
		return nil, err
	}
	f.nextSub++
	sub := &fakeSub{
		id:         f.nextSub,
		path:       collectionPath,
		filter:     filter,
		onSnapshot: onSnapshot,
		onError:    onError,
	}
	f.subs[sub.id] = sub
	initial := f.filteredLocked(sub)
	f.mu.Unlock()

	onSnapshot(initial)
	return func() {
		f.mu.Lock()
		f.cancels[sub.id]++
		delete(f.subs, sub.id)
		f.mu.Unlock()
	}, nil
}

func (f *fakeRemote) filteredLocked(sub *fakeSub) []Record {
	var out []Record
	for _, rec := range f.snapshotLocked(sub.path) {
		if matches(rec, sub.filter) {
			out = append(out, rec)
		}
	}
	return out
}

func (f *fakeRemote) notify(collectionPath string) {
	f.mu.Lock()
	type delivery struct {
		fn   func([]Record)
		recs []Record
	}
	var pending []delivery
	for _, sub := range f.subs {
		if sub.path == collectionPath {
			pending = append(pending, delivery{sub.onSnapshot, f.filteredLocked(sub)})
		}
	}
	f.mu.Unlock()
	for _, d := range pending {
		d.fn(d.recs)
	}
}

func (f *fakeRemote) emitError(err error) {
	f.mu.Lock()
	var fns []func(error)
	for _, sub := range f.subs {
		fns = append(fns, sub.onError)
	}
	f.mu.Unlock()
	for _, fn := range fns {
		fn(err)
	}
}

func (f *fakeRemote) cancelCount(subID int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cancels[subID]
}

func (f *fakeRemote) activeSubs() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

// fakeUploader records upload paths and hands back deterministic URLs.
type fakeUploader struct {
	mu    sync.Mutex
	paths []string
	err   error
}

func (u *fakeUploader) Upload(_ context.Context, objectPath string, r io.Reader, _ string) (string, error) {
	if u.err != nil {
		return "", u.err
	}
	_, _ = io.ReadAll(r)
	u.mu.Lock()
	u.paths = append(u.paths, objectPath)
	u.mu.Unlock()
	return "https://cdn.test/" + objectPath, nil
}

func (u *fakeUploader) uploaded() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := make([]string, len(u.paths))
	copy(out, u.paths)
	return out
}
