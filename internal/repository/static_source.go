package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"reflect"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-bulletin-core/internal/models"
	"github.com/noah-isme/sma-bulletin-core/internal/store"
)

// StaticSource serves a fixed dataset, used when no backend is configured.
// Each Listen call delivers one snapshot honouring the filter conditions
// and then holds the subscription open until ctx is cancelled.
type StaticSource struct {
	collections map[string][]staticDoc
	logger      *zap.Logger
}

type staticDoc struct {
	id     string
	raw    json.RawMessage
	fields map[string]interface{}
}

func (d staticDoc) ID() string { return d.id }

func (d staticDoc) DataTo(dest interface{}) error { return json.Unmarshal(d.raw, dest) }

// NewStaticSource loads a seed file shaped as {"<collection>": [{...}, ...]}.
// An empty path yields empty collections. Records without an "id" get one.
func NewStaticSource(path string, logger *zap.Logger) (*StaticSource, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	src := &StaticSource{collections: map[string][]staticDoc{}, logger: logger}
	if path == "" {
		return src, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	if err := src.load(raw); err != nil {
		return nil, fmt.Errorf("parse seed file %s: %w", path, err)
	}
	return src, nil
}

// NewStaticSourceFromJSON builds a source from an in-memory seed document.
func NewStaticSourceFromJSON(raw []byte, logger *zap.Logger) (*StaticSource, error) {
	src, _ := NewStaticSource("", logger)
	if err := src.load(raw); err != nil {
		return nil, err
	}
	return src, nil
}

func (s *StaticSource) load(raw []byte) error {
	var seed map[string][]json.RawMessage
	if err := json.Unmarshal(raw, &seed); err != nil {
		return err
	}
	for name, records := range seed {
		docs := make([]staticDoc, 0, len(records))
		for _, rec := range records {
			fields := map[string]interface{}{}
			if err := json.Unmarshal(rec, &fields); err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			id, _ := fields["id"].(string)
			if id == "" {
				id = uuid.NewString()
			}
			docs = append(docs, staticDoc{id: id, raw: rec, fields: fields})
		}
		s.collections[name] = docs
		s.logger.Debug("seed collection loaded", zap.String("collection", name), zap.Int("records", len(docs)))
	}
	return nil
}

// Listen implements the record source contract.
func (s *StaticSource) Listen(ctx context.Context, filter models.QueryFilter, onSnapshot store.SnapshotFunc) error {
	docs := make([]store.Document, 0)
	for _, d := range s.collections[filter.Collection] {
		if matches(d.fields, filter.Conditions) {
			docs = append(docs, d)
		}
	}
	if err := onSnapshot(docs); err != nil {
		return err
	}
	<-ctx.Done()
	return nil
}

func matches(fields map[string]interface{}, conditions []models.Condition) bool {
	for _, cond := range conditions {
		value := fields[cond.Field]
		switch cond.Op {
		case models.OpEqual:
			if !equal(value, cond.Value) {
				return false
			}
		case models.OpIn:
			if !containsValue(cond.Value, value) {
				return false
			}
		case models.OpArrayContains:
			if !containsValue(value, cond.Value) {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// containsValue reports whether list (any slice) holds an element equal to v.
func containsValue(list, v interface{}) bool {
	rv := reflect.ValueOf(list)
	if rv.Kind() != reflect.Slice {
		return false
	}
	for i := 0; i < rv.Len(); i++ {
		if equal(rv.Index(i).Interface(), v) {
			return true
		}
	}
	return false
}

// equal compares JSON-decoded values with Go values; numbers compare as float64.
func equal(a, b interface{}) bool {
	if fa, ok := toFloat(a); ok {
		fb, ok := toFloat(b)
		return ok && fa == fb
	}
	return reflect.DeepEqual(a, b)
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
