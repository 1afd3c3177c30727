package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/juju/clock/testclock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	domainauth "github.com/target/fuzzysearch/internal/domain/auth"
	"github.com/target/fuzzysearch/internal/domain/model"
	"github.com/target/fuzzysearch/internal/mocks"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func validParams() model.JobParameters {
	return model.JobParameters{Word: "kitten", Algorithm: "levenshtein", CorpusID: "7"}
}

func newTestJobService(t *testing.T, store *mocks.MockJobStore, queue *mocks.MockJobQueue) *JobService {
	t.Helper()
	return MustNewJobService(JobServiceOptions{
		Store: store,
		Queue: queue,
		Clock: testclock.NewClock(testNow),
		NewID: func() string { return "job-123" },
	})
}

func TestNewJobService(t *testing.T) {
	ctrl := gomock.NewController(t)

	t.Run("success", func(t *testing.T) {
		svc, err := NewJobService(JobServiceOptions{
			Store: mocks.NewMockJobStore(ctrl),
			Queue: mocks.NewMockJobQueue(ctrl),
		})
		require.NoError(t, err)
		assert.NotNil(t, svc.newID)
		assert.NotNil(t, svc.clock)
	})

	t.Run("reports every missing dependency", func(t *testing.T) {
		svc, err := NewJobService(JobServiceOptions{})
		require.Error(t, err)
		assert.Nil(t, svc)
		assert.Contains(t, err.Error(), "JobStore is required")
		assert.Contains(t, err.Error(), "JobQueue is required")
	})

	t.Run("must panics", func(t *testing.T) {
		assert.Panics(t, func() { MustNewJobService(JobServiceOptions{}) })
	})
}

func TestJobService_Submit(t *testing.T) {
	who := domainauth.Identity{UserID: "alice"}

	t.Run("creates pending record then enqueues", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		store := mocks.NewMockJobStore(ctrl)
		queue := mocks.NewMockJobQueue(ctrl)
		svc := newTestJobService(t, store, queue)

		gomock.InOrder(
			store.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
				func(_ context.Context, rec *model.JobRecord) error {
					assert.Equal(t, "job-123", rec.ID)
					assert.Equal(t, model.JobStatePending, rec.State)
					assert.Equal(t, "alice", rec.SubmittedBy)
					assert.Equal(t, testNow, rec.CreatedAt)
					assert.Equal(t, validParams(), rec.Params)
					return nil
				}),
			queue.EXPECT().Enqueue(gomock.Any(), "job-123").Return(nil),
		)

		rec, err := svc.Submit(context.Background(), who, validParams())
		require.NoError(t, err)
		assert.Equal(t, "job-123", rec.ID)
		assert.Equal(t, model.JobStatePending, rec.State)
	})

	t.Run("structural validation only", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		svc := newTestJobService(t, mocks.NewMockJobStore(ctrl), mocks.NewMockJobQueue(ctrl))

		params := validParams()
		params.Word = "  "
		_, err := svc.Submit(context.Background(), who, params)
		var vErr *model.ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, "word", vErr.Field)
	})

	t.Run("unknown algorithm is accepted at submit time", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		store := mocks.NewMockJobStore(ctrl)
		queue := mocks.NewMockJobQueue(ctrl)
		svc := newTestJobService(t, store, queue)

		store.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
		queue.EXPECT().Enqueue(gomock.Any(), "job-123").Return(nil)

		params := validParams()
		params.Algorithm = "soundex"
		_, err := svc.Submit(context.Background(), who, params)
		require.NoError(t, err)
	})

	t.Run("store failure is returned without enqueue", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		store := mocks.NewMockJobStore(ctrl)
		svc := newTestJobService(t, store, mocks.NewMockJobQueue(ctrl))

		boom := errors.New("store down")
		store.EXPECT().Create(gomock.Any(), gomock.Any()).Return(boom)

		_, err := svc.Submit(context.Background(), who, validParams())
		assert.ErrorIs(t, err, boom)
	})

	t.Run("enqueue failure fails the record", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		store := mocks.NewMockJobStore(ctrl)
		queue := mocks.NewMockJobQueue(ctrl)
		svc := newTestJobService(t, store, queue)

		boom := errors.New("broker down")
		store.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
		queue.EXPECT().Enqueue(gomock.Any(), "job-123").Return(boom)
		store.EXPECT().Fail(gomock.Any(), "job-123", model.ErrorCodeInternal, gomock.Any()).Return(true, nil)

		rec, err := svc.Submit(context.Background(), who, validParams())
		assert.ErrorIs(t, err, boom)
		assert.Nil(t, rec)
	})
}

func TestJobService_Status(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockJobStore(ctrl)
	svc := newTestJobService(t, store, mocks.NewMockJobQueue(ctrl))
	ctx := context.Background()

	running := model.NewJobRecord("job-1", validParams(), "alice", testNow)
	running.State = model.JobStateRunning
	running.Progress = 40
	running.ProgressLabel = "4/10"

	store.EXPECT().Get(gomock.Any(), "job-1").Return(running, nil)
	st, err := svc.Status(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, model.JobStateRunning, st.State)
	require.NotNil(t, st.Progress)
	assert.Equal(t, 40, *st.Progress)
	assert.Equal(t, "4/10", st.ProgressLabel)

	store.EXPECT().Get(gomock.Any(), "missing").Return(nil, model.ErrJobNotFound)
	_, err = svc.Status(ctx, "missing")
	assert.ErrorIs(t, err, model.ErrJobNotFound)

	boom := errors.New("timeout")
	store.EXPECT().Get(gomock.Any(), "job-2").Return(nil, boom)
	_, err = svc.Status(ctx, "job-2")
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, model.ErrJobNotFound)
}
