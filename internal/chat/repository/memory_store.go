package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"chat_sync_service/internal/chat/domain"
	"chat_sync_service/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type memoryNode struct {
	fields   map[string]interface{}
	children []string // child keys in append order
}

type memorySub struct {
	onAppend func(domain.Record)
	onError  func(error)
}

// MemoryRemoteStore in-process RemoteStore. Appends are delivered to
// subscribers synchronously on the appending goroutine.
type MemoryRemoteStore struct {
	mu      sync.Mutex
	nodes   map[string]*memoryNode
	subs    map[string]map[uint64]*memorySub
	nextSub uint64
}

// NewMemoryRemoteStore create MemoryRemoteStore
func NewMemoryRemoteStore() *MemoryRemoteStore {
	return &MemoryRemoteStore{
		nodes: make(map[string]*memoryNode),
		subs:  make(map[string]map[uint64]*memorySub),
	}
}

func cleanPath(path string) string {
	return strings.Trim(path, "/")
}

func splitPath(path string) (parent, key string) {
	i := strings.LastIndex(path, "/")
	if i < 0 {
		return "", path
	}
	return path[:i], path[i+1:]
}

func copyFields(src map[string]interface{}) map[string]interface{} {
	dst := make(map[string]interface{}, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// node returns the node at path, creating it and linking it to its parent
func (s *MemoryRemoteStore) node(path string) *memoryNode {
	if n, ok := s.nodes[path]; ok {
		return n
	}
	n := &memoryNode{fields: map[string]interface{}{}}
	s.nodes[path] = n
	if path != "" {
		parent, key := splitPath(path)
		p := s.node(parent)
		p.children = append(p.children, key)
	}
	return n
}

func (s *MemoryRemoteStore) record(parent, key string) domain.Record {
	child := s.nodes[joinPath(parent, key)]
	return domain.Record{Key: key, Fields: copyFields(child.fields)}
}

func joinPath(parent, key string) string {
	if parent == "" {
		return key
	}
	return parent + "/" + key
}

// ReadPath returns the node at path, nil when absent
func (s *MemoryRemoteStore) ReadPath(ctx context.Context, path string) (*domain.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}
	path = cleanPath(path)

	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.nodes[path]
	if !ok {
		return nil, nil
	}
	_, key := splitPath(path)
	doc := &domain.Document{Key: key, Fields: copyFields(n.fields)}
	for _, k := range n.children {
		doc.Children = append(doc.Children, s.record(path, k))
	}
	return doc, nil
}

// ReadRange returns the last limit children of path by orderKey ascending.
// Children without orderKey sort first; ties keep append order.
func (s *MemoryRemoteStore) ReadRange(ctx context.Context, path, orderKey string, limit int) ([]domain.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}
	path = cleanPath(path)

	s.mu.Lock()
	n, ok := s.nodes[path]
	var records []domain.Record
	if ok {
		for _, k := range n.children {
			records = append(records, s.record(path, k))
		}
	}
	s.mu.Unlock()

	sort.SliceStable(records, func(i, j int) bool {
		return lessValue(records[i].Fields[orderKey], records[j].Fields[orderKey])
	})
	if limit > 0 && len(records) > limit {
		records = records[len(records)-limit:]
	}
	return records, nil
}

// Append adds a child with a generated key and notifies subscribers of path
func (s *MemoryRemoteStore) Append(ctx context.Context, path string, fields map[string]interface{}) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrStoreWriteFailed, err)
	}
	path = cleanPath(path)
	key := uuid.NewString()

	s.mu.Lock()
	child := s.node(joinPath(path, key))
	child.fields = copyFields(fields)
	rec := s.record(path, key)
	subs := make([]*memorySub, 0, len(s.subs[path]))
	for _, sub := range s.subs[path] {
		subs = append(subs, sub)
	}
	s.mu.Unlock()

	for _, sub := range subs {
		sub.onAppend(domain.Record{Key: rec.Key, Fields: copyFields(rec.Fields)})
	}
	return key, nil
}

// Update merges fields into the node at path, creating it when absent
func (s *MemoryRemoteStore) Update(ctx context.Context, path string, fields map[string]interface{}) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrStoreWriteFailed, err)
	}
	path = cleanPath(path)

	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.node(path)
	for k, v := range fields {
		n.fields[k] = v
	}
	return nil
}

// SubscribeAppends registers callbacks for children appended to path
func (s *MemoryRemoteStore) SubscribeAppends(ctx context.Context, path string, onAppend func(domain.Record), onError func(error)) (domain.CancelFunc, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrSubscriptionLost, err)
	}
	path = cleanPath(path)

	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	if s.subs[path] == nil {
		s.subs[path] = make(map[uint64]*memorySub)
	}
	s.subs[path][id] = &memorySub{onAppend: onAppend, onError: onError}
	s.mu.Unlock()

	logger.Log.Debug("memory store subscribed", zap.String("path", path), zap.Uint64("sub", id))

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs[path], id)
			s.mu.Unlock()
		})
	}, nil
}

// DropSubscriptions ends every subscription on path, reporting err to each
// as ErrSubscriptionLost.
func (s *MemoryRemoteStore) DropSubscriptions(path string, err error) {
	path = cleanPath(path)

	s.mu.Lock()
	subs := s.subs[path]
	delete(s.subs, path)
	s.mu.Unlock()

	if !errors.Is(err, domain.ErrSubscriptionLost) {
		err = fmt.Errorf("%w: %w", domain.ErrSubscriptionLost, err)
	}
	for _, sub := range subs {
		if sub.onError != nil {
			sub.onError(err)
		}
	}
}

// lessValue orders nil < numbers < strings < anything else
func lessValue(a, b interface{}) bool {
	ra, rb := rank(a), rank(b)
	if ra != rb {
		return ra < rb
	}
	switch ra {
	case 1:
		return toFloat(a) < toFloat(b)
	case 2:
		return a.(string) < b.(string)
	}
	return false
}

func rank(v interface{}) int {
	switch v.(type) {
	case nil:
		return 0
	case int, int32, int64, float32, float64, uint, uint32, uint64:
		return 1
	case string:
		return 2
	}
	return 3
}

func toFloat(v interface{}) float64 {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case float32:
		return float64(n)
	case float64:
		return n
	case uint:
		return float64(n)
	case uint32:
		return float64(n)
	case uint64:
		return float64(n)
	}
	return 0
}
