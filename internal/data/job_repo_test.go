package data

import (
	"context"
	"testing"

	"github.com/juju/clock/testclock"
	"github.com/stretchr/testify/assert"

	"github.com/target/fuzzysearch/internal/domain/model"
	"github.com/target/fuzzysearch/internal/testutil"
)

func TestJobRepo(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	runJobStoreContract(t, func(t *testing.T, clk *testclock.Clock) jobStoreUnderTest {
		return NewJobRepo(testutil.SetupTestDB(t), RepoConfig{Clock: clk})
	})
}

func TestJobRepo_MalformedIDIsNotFound(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	repo := NewJobRepo(testutil.SetupTestDB(t), RepoConfig{})

	_, err := repo.Get(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, model.ErrJobNotFound)
}
