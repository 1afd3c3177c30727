package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"

	"github.com/target/fuzzysearch/internal/core"
	"github.com/target/fuzzysearch/internal/data/pgxutil"
	"github.com/target/fuzzysearch/internal/domain/model"
	apperrors "github.com/target/fuzzysearch/internal/errors"
)

// CorpusRepo stores corpora in PostgreSQL. Ids are decimal renderings of a
// BIGSERIAL key.
type CorpusRepo struct {
	DB *sql.DB
}

// NewCorpusRepo creates a new CorpusRepo.
func NewCorpusRepo(db *sql.DB) *CorpusRepo {
	return &CorpusRepo{DB: db}
}

func (r *CorpusRepo) Lookup(ctx context.Context, id string) (string, error) {
	key, err := strconv.ParseInt(id, 10, 64)
	if err != nil || key < 1 {
		return "", fmt.Errorf("%w: %q", model.ErrCorpusNotFound, id)
	}

	var body string
	err = r.DB.QueryRowContext(ctx, `SELECT body FROM corpora WHERE id = $1`, key).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %q", model.ErrCorpusNotFound, id)
	}
	if err != nil {
		return "", fmt.Errorf("lookup corpus: %w", apperrors.MapDBError(err))
	}
	return body, nil
}

func (r *CorpusRepo) Create(ctx context.Context, req *model.CreateCorpusRequest) (*model.Corpus, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	c := &model.Corpus{Name: req.Name, Text: req.Text}
	err := r.DB.QueryRowContext(ctx, `
		INSERT INTO corpora (name, body) VALUES ($1, $2)
		RETURNING id::text, created_at
	`, req.Name, req.Text).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert corpus: %w", apperrors.MapDBError(err))
	}
	return c, nil
}

func (r *CorpusRepo) List(ctx context.Context, limit, offset int) ([]*model.CorpusSummary, error) {
	var out []*model.CorpusSummary
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			SELECT id::text AS id, name, created_at
			FROM corpora
			ORDER BY id
			LIMIT $1 OFFSET $2
		`, limit, offset)
		if err != nil {
			return err
		}
		out, err = pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[model.CorpusSummary])
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list corpora: %w", apperrors.MapDBError(err))
	}
	return out, nil
}

var _ core.CorpusRepository = (*CorpusRepo)(nil)
