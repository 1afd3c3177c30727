package migrate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPendingIsOrderedAndEmbedded(t *testing.T) {
	files, err := Pending()
	require.NoError(t, err)
	assert.Equal(t, []string{"0001_corpora.sql", "0002_search_jobs.sql"}, files)

	for _, f := range files {
		body, err := migrationsFS.ReadFile("migrations/" + f)
		require.NoError(t, err)
		assert.NotEmpty(t, body)
	}
}
