package data

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"sync"

	"github.com/juju/clock"

	"github.com/target/fuzzysearch/internal/core"
	"github.com/target/fuzzysearch/internal/domain/model"
)

// MemoryCorpusStore keeps corpora in process memory with sequential ids.
type MemoryCorpusStore struct {
	mu      sync.RWMutex
	corpora map[string]*model.Corpus
	order   []string
	nextID  int64
	clock   clock.Clock
}

// NewMemoryCorpusStore creates an empty store. A nil clock uses wall time.
func NewMemoryCorpusStore(clk clock.Clock) *MemoryCorpusStore {
	if clk == nil {
		clk = clock.WallClock
	}
	return &MemoryCorpusStore{corpora: make(map[string]*model.Corpus), clock: clk}
}

// Put stores text under a caller-chosen id, replacing any existing corpus.
// Seeding and tests use it; Create assigns ids itself.
func (s *MemoryCorpusStore) Put(id, name, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.corpora[id]; !ok {
		s.order = append(s.order, id)
	}
	s.corpora[id] = &model.Corpus{ID: id, Name: name, Text: text, CreatedAt: s.clock.Now().UTC()}
}

func (s *MemoryCorpusStore) Lookup(_ context.Context, id string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.corpora[id]
	if !ok {
		return "", fmt.Errorf("%w: %q", model.ErrCorpusNotFound, id)
	}
	return c.Text, nil
}

func (s *MemoryCorpusStore) Create(_ context.Context, req *model.CreateCorpusRequest) (*model.Corpus, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var id string
	for {
		s.nextID++
		id = strconv.FormatInt(s.nextID, 10)
		if _, taken := s.corpora[id]; !taken {
			break
		}
	}
	c := &model.Corpus{ID: id, Name: req.Name, Text: req.Text, CreatedAt: s.clock.Now().UTC()}
	s.corpora[id] = c
	s.order = append(s.order, id)
	out := *c
	return &out, nil
}

func (s *MemoryCorpusStore) List(_ context.Context, limit, offset int) ([]*model.CorpusSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := slices.Clone(s.order)
	if offset >= len(ids) {
		return []*model.CorpusSummary{}, nil
	}
	ids = ids[offset:]
	if limit >= 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	out := make([]*model.CorpusSummary, 0, len(ids))
	for _, id := range ids {
		c := s.corpora[id]
		out = append(out, &model.CorpusSummary{ID: c.ID, Name: c.Name, CreatedAt: c.CreatedAt})
	}
	return out, nil
}

var _ core.CorpusRepository = (*MemoryCorpusStore)(nil)
