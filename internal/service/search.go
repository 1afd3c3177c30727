package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/juju/clock"

	"github.com/target/fuzzysearch/internal/core"
	"github.com/target/fuzzysearch/internal/domain/match"
	"github.com/target/fuzzysearch/internal/domain/model"
)

// Corpus listing bounds.
const (
	DefaultCorpusPageSize = 50
	MaxCorpusPageSize     = 500
)

// SearchServiceOptions groups dependencies for SearchService.
type SearchServiceOptions struct {
	Corpora core.CorpusRepository // Required: corpus storage
	Logger  *slog.Logger          // Optional: structured logger
	Clock   clock.Clock           // Optional: times synchronous searches
}

// SearchService runs blocking searches and fronts corpus storage.
type SearchService struct {
	corpora core.CorpusRepository
	logger  *slog.Logger
	clock   clock.Clock
}

// NewSearchService constructs a new SearchService.
func NewSearchService(opts SearchServiceOptions) (*SearchService, error) {
	if opts.Corpora == nil {
		return nil, errors.New("CorpusRepository is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clk := opts.Clock
	if clk == nil {
		clk = clock.WallClock
	}
	return &SearchService{
		corpora: opts.Corpora,
		logger:  logger.With("component", "search_service"),
		clock:   clk,
	}, nil
}

// Search scores the corpus synchronously. Unlike a job, an unknown corpus or
// algorithm is returned to the caller as model.ErrCorpusNotFound or
// model.ErrUnknownAlgorithm.
func (s *SearchService) Search(ctx context.Context, params model.JobParameters) (model.SearchResult, error) {
	if err := params.Validate(); err != nil {
		return model.SearchResult{}, err
	}
	alg, err := model.ParseAlgorithm(params.Algorithm)
	if err != nil {
		return model.SearchResult{}, err
	}
	text, err := s.corpora.Lookup(ctx, params.CorpusID)
	if err != nil {
		if errors.Is(err, model.ErrCorpusNotFound) {
			return model.SearchResult{}, err
		}
		return model.SearchResult{}, fmt.Errorf("lookup corpus: %w", err)
	}

	start := s.clock.Now()
	results, err := match.Search(params.Word, text, alg)
	if err != nil {
		return model.SearchResult{}, err
	}
	elapsed := s.clock.Now().Sub(start)

	s.logger.DebugContext(ctx, "synchronous search", "corpus_id", params.CorpusID, "algorithm", alg, "elapsed", elapsed)
	return model.SearchResult{ExecutionTime: roundSeconds(elapsed.Seconds()), Results: results}, nil
}

// CreateCorpus stores a new corpus.
func (s *SearchService) CreateCorpus(ctx context.Context, req *model.CreateCorpusRequest) (*model.Corpus, error) {
	c, err := s.corpora.Create(ctx, req)
	if err != nil {
		var vErr *model.ValidationError
		if errors.As(err, &vErr) {
			return nil, err
		}
		return nil, fmt.Errorf("create corpus: %w", err)
	}
	s.logger.InfoContext(ctx, "corpus created", "corpus_id", c.ID, "name", c.Name, "bytes", len(c.Text))
	return c, nil
}

// ListCorpora returns a page of corpus summaries. Limit is clamped to
// [1, MaxCorpusPageSize]; zero selects DefaultCorpusPageSize.
func (s *SearchService) ListCorpora(ctx context.Context, limit, offset int) ([]*model.CorpusSummary, error) {
	switch {
	case limit <= 0:
		limit = DefaultCorpusPageSize
	case limit > MaxCorpusPageSize:
		limit = MaxCorpusPageSize
	}
	if offset < 0 {
		offset = 0
	}
	out, err := s.corpora.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list corpora: %w", err)
	}
	return out, nil
}
