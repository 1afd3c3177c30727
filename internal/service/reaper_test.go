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

	"github.com/target/fuzzysearch/config"
	"github.com/target/fuzzysearch/internal/mocks"
)

func testReaperConfig() config.ReaperConfig {
	return config.ReaperConfig{
		Interval:   time.Minute,
		StaleAfter: 30 * time.Minute,
		Retention:  24 * time.Hour,
		BatchSize:  2,
	}
}

func TestNewReaperService(t *testing.T) {
	_, err := NewReaperService(ReaperServiceOptions{Config: testReaperConfig()})
	assert.ErrorContains(t, err, "JobReaperStore is required")

	ctrl := gomock.NewController(t)
	_, err = NewReaperService(ReaperServiceOptions{Store: mocks.NewMockJobReaperStore(ctrl)})
	assert.ErrorContains(t, err, "interval must be positive")
}

func TestReaperService_RunOnce(t *testing.T) {
	ctx := context.Background()

	t.Run("drains full batches", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		store := mocks.NewMockJobReaperStore(ctrl)
		svc, err := NewReaperService(ReaperServiceOptions{
			Store:  store,
			Config: testReaperConfig(),
			Clock:  testclock.NewClock(testNow),
		})
		require.NoError(t, err)

		staleCutoff := testNow.Add(-30 * time.Minute)
		retentionCutoff := testNow.Add(-24 * time.Hour)
		gomock.InOrder(
			store.EXPECT().FailStale(gomock.Any(), staleCutoff, 2).Return(2, nil),
			store.EXPECT().FailStale(gomock.Any(), staleCutoff, 2).Return(1, nil),
		)
		store.EXPECT().DeleteCompletedBefore(gomock.Any(), retentionCutoff, 2).Return(0, nil)

		require.NoError(t, svc.RunOnce(ctx))
	})

	t.Run("continues after a step error", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		store := mocks.NewMockJobReaperStore(ctrl)
		svc, err := NewReaperService(ReaperServiceOptions{Store: store, Config: testReaperConfig()})
		require.NoError(t, err)

		boom := errors.New("db down")
		store.EXPECT().FailStale(gomock.Any(), gomock.Any(), 2).Return(0, boom)
		store.EXPECT().DeleteCompletedBefore(gomock.Any(), gomock.Any(), 2).Return(1, nil)

		err = svc.RunOnce(ctx)
		assert.ErrorIs(t, err, boom)
		assert.Contains(t, err.Error(), "fail stale jobs")
	})
}

func TestReaperService_RunTicksUntilCancelled(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockJobReaperStore(ctrl)
	cfg := testReaperConfig()
	cfg.Interval = 5 * time.Nanosecond // too short for jitter
	clk := testclock.NewClock(testNow)
	svc, err := NewReaperService(ReaperServiceOptions{Store: store, Config: cfg, Clock: clk})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	passes := make(chan struct{}, 10)
	store.EXPECT().FailStale(gomock.Any(), gomock.Any(), gomock.Any()).Return(0, nil).AnyTimes()
	store.EXPECT().DeleteCompletedBefore(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(context.Context, time.Time, int) (int, error) {
			passes <- struct{}{}
			return 0, nil
		}).AnyTimes()

	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	<-passes
	require.NoError(t, clk.WaitAdvance(cfg.Interval, time.Second, 1))
	<-passes

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("reaper did not stop")
	}
}
