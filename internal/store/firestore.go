package store

import (
	"context"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
)

// firestoreRemote adapts a Firestore client to the Remote interface.
type firestoreRemote struct {
	fs *firestore.Client
}

func NewFirestoreRemote(fs *firestore.Client) Remote {
	return &firestoreRemote{fs: fs}
}

func (r *firestoreRemote) GetAll(ctx context.Context, collectionPath string) ([]Record, error) {
	it := r.fs.Collection(collectionPath).Documents(ctx)
	return collect(it)
}

func (r *firestoreRemote) GetDoc(ctx context.Context, docPath string) (Record, error) {
	snap, err := r.fs.Doc(docPath).Get(ctx)
	if snap != nil && !snap.Exists() {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return Normalize(snap.Ref.ID, snap.Data()), nil
}

func (r *firestoreRemote) Add(ctx context.Context, collectionPath string, fields map[string]any) (string, error) {
	ref, _, err := r.fs.Collection(collectionPath).Add(ctx, resolveSentinels(fields))
	if err != nil {
		return "", err
	}
	return ref.ID, nil
}

func (r *firestoreRemote) Merge(ctx context.Context, docPath string, fields map[string]any) error {
	_, err := r.fs.Doc(docPath).Set(ctx, resolveSentinels(fields), firestore.MergeAll)
	return err
}

func (r *firestoreRemote) Delete(ctx context.Context, docPath string) error {
	_, err := r.fs.Doc(docPath).Delete(ctx)
	return err
}

func (r *firestoreRemote) Query(ctx context.Context, collectionPath string, f Filter) ([]Record, error) {
	it := r.fs.Collection(collectionPath).Where(f.Field, f.Op, f.Value).Documents(ctx)
	return collect(it)
}

func (r *firestoreRemote) Subscribe(ctx context.Context, collectionPath string, f Filter, onSnapshot func([]Record), onError func(error)) (func(), error) {
	ctx, cancel := context.WithCancel(ctx)
	q := r.fs.Collection(collectionPath).Where(f.Field, f.Op, f.Value)
	it := q.Snapshots(ctx)

	go func() {
		defer it.Stop()
		for {
			snap, err := it.Next()
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				onError(err)
				return
			}
			docs, err := snap.Documents.GetAll()
			if err != nil {
				onError(err)
				return
			}
			records := make([]Record, 0, len(docs))
			for _, d := range docs {
				records = append(records, Normalize(d.Ref.ID, d.Data()))
			}
			onSnapshot(records)
		}
	}()

	return cancel, nil
}

func collect(it *firestore.DocumentIterator) ([]Record, error) {
	out := []Record{}
	for {
		doc, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		out = append(out, Normalize(doc.Ref.ID, doc.Data()))
	}
	return out, nil
}

func resolveSentinels(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		if _, ok := v.(serverTimestamp); ok {
			out[k] = firestore.ServerTimestamp
			continue
		}
		out[k] = v
	}
	return out
}
