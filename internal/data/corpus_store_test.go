package data

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/fuzzysearch/internal/core"
	"github.com/target/fuzzysearch/internal/domain/model"
	"github.com/target/fuzzysearch/internal/testutil"
)

func runCorpusContract(t *testing.T, repo core.CorpusRepository) {
	ctx := context.Background()

	first, err := repo.Create(ctx, &model.CreateCorpusRequest{Name: "poems", Text: "roses are red"})
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	second, err := repo.Create(ctx, &model.CreateCorpusRequest{Name: "prose", Text: "call me ishmael"})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	text, err := repo.Lookup(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "roses are red", text)

	_, err = repo.Lookup(ctx, "999999")
	assert.ErrorIs(t, err, model.ErrCorpusNotFound)
	_, err = repo.Lookup(ctx, "not-a-number")
	assert.ErrorIs(t, err, model.ErrCorpusNotFound)

	_, err = repo.Create(ctx, &model.CreateCorpusRequest{Name: "", Text: "x"})
	var vErr *model.ValidationError
	assert.ErrorAs(t, err, &vErr)

	list, err := repo.List(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, first.ID, list[0].ID)
	assert.Equal(t, "prose", list[1].Name)

	page, err := repo.List(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, second.ID, page[0].ID)
}

func TestMemoryCorpusStore(t *testing.T) {
	runCorpusContract(t, NewMemoryCorpusStore(nil))
}

func TestMemoryCorpusStore_PutDoesNotCollideWithCreate(t *testing.T) {
	s := NewMemoryCorpusStore(nil)
	s.Put("1", "seed", "alpha beta")

	c, err := s.Create(context.Background(), &model.CreateCorpusRequest{Name: "new", Text: "gamma"})
	require.NoError(t, err)
	assert.Equal(t, "2", c.ID)

	text, err := s.Lookup(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, "alpha beta", text)
}

func TestCorpusRepo(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	runCorpusContract(t, NewCorpusRepo(testutil.SetupTestDB(t)))
}
