package repository

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-bulletin-core/internal/models"
	"github.com/noah-isme/sma-bulletin-core/internal/store"
)

// FirestoreSource streams query snapshots from Firestore.
type FirestoreSource struct {
	client *firestore.Client
	logger *zap.Logger
}

// NewFirestoreSource wraps a Firestore client.
func NewFirestoreSource(client *firestore.Client, logger *zap.Logger) *FirestoreSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FirestoreSource{client: client, logger: logger}
}

// Listen delivers the current result of filter and every later change until
// ctx is cancelled (nil error) or the listener fails.
func (s *FirestoreSource) Listen(ctx context.Context, filter models.QueryFilter, onSnapshot store.SnapshotFunc) error {
	q := s.client.Collection(filter.Collection).Query
	for _, cond := range filter.Conditions {
		q = q.Where(cond.Field, cond.Op, cond.Value)
	}

	it := q.Snapshots(ctx)
	defer it.Stop()

	for {
		snap, err := it.Next()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("listen %s: %w", filter.Collection, err)
		}

		docs, err := snap.Documents.GetAll()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read %s snapshot: %w", filter.Collection, err)
		}

		out := make([]store.Document, len(docs))
		for i, d := range docs {
			out[i] = firestoreDoc{d}
		}
		s.logger.Debug("snapshot received", zap.String("collection", filter.Collection), zap.Int("documents", len(out)))
		if err := onSnapshot(out); err != nil {
			return err
		}
	}
}

type firestoreDoc struct {
	snap *firestore.DocumentSnapshot
}

func (d firestoreDoc) ID() string { return d.snap.Ref.ID }

func (d firestoreDoc) DataTo(dest interface{}) error { return d.snap.DataTo(dest) }
