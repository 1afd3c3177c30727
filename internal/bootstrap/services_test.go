package bootstrap

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/fuzzysearch/config"
	"github.com/target/fuzzysearch/internal/adapters/queue"
	"github.com/target/fuzzysearch/internal/data"
	domainauth "github.com/target/fuzzysearch/internal/domain/auth"
	"github.com/target/fuzzysearch/internal/domain/model"
)

func memoryConfig(services string) *config.AppConfig {
	cfg := &config.AppConfig{
		Services: services,
		Auth: config.AuthConfig{
			Mode:   config.AuthModeStatic,
			Static: config.StaticAuthConfig{Tokens: []string{"tok=alice"}},
		},
		Worker: config.WorkerConfig{Concurrency: 2},
		Reaper: config.ReaperConfig{Interval: time.Minute},
	}
	cfg.Sanitize()
	return cfg
}

func TestGetEnabledServices(t *testing.T) {
	tests := []struct {
		name     string
		services string
		want     []string
	}{
		{name: "canonical order", services: "reaper,http,worker", want: []string{"http", "worker", "reaper"}},
		{name: "single", services: "worker", want: []string{"worker"}},
		{name: "invalid", services: "scheduler", want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetEnabledServices(&config.AppConfig{Services: tt.services}))
		})
	}
	assert.Empty(t, GetEnabledServices(nil))
}

func TestValidateServiceConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.AppConfig)
		wantErr string
	}{
		{name: "single process memory", mutate: func(*config.AppConfig) {}},
		{
			name:    "no services",
			mutate:  func(c *config.AppConfig) { c.Services = "" },
			wantErr: "invalid service configuration",
		},
		{
			name:    "split deployment with memory store",
			mutate:  func(c *config.AppConfig) { c.Services = "worker" },
			wantErr: "memory job store",
		},
		{
			name: "split deployment with memory queue",
			mutate: func(c *config.AppConfig) {
				c.Services = "http"
				c.JobStore.Backend = config.JobStoreBackendRedis
			},
			wantErr: "memory queue",
		},
		{
			name: "split deployment with shared backends",
			mutate: func(c *config.AppConfig) {
				c.Services = "worker"
				c.JobStore.Backend = config.JobStoreBackendPostgres
				c.Queue.Backend = config.QueueBackendAMQP
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := memoryConfig("http,worker")
			tt.mutate(cfg)
			err := ValidateServiceConfig(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
	assert.Error(t, ValidateServiceConfig(nil))
}

func TestBuildBackends_RequireConnections(t *testing.T) {
	logger := discardLogger()
	empty := &Infrastructure{}

	_, err := BuildJobStore(config.JobStoreConfig{Backend: config.JobStoreBackendRedis}, empty, logger)
	assert.ErrorContains(t, err, "redis connection")
	_, err = BuildJobStore(config.JobStoreConfig{Backend: config.JobStoreBackendPostgres}, nil, logger)
	assert.ErrorContains(t, err, "database connection")

	_, err = BuildQueue(config.QueueConfig{Backend: config.QueueBackendRedis}, empty, logger)
	assert.ErrorContains(t, err, "redis connection")
	_, err = BuildQueue(config.QueueConfig{Backend: config.QueueBackendAMQP}, empty, logger)
	assert.ErrorContains(t, err, "amqp connection")

	_, err = BuildCorpora(context.Background(), config.CorpusConfig{Backend: config.CorpusBackendPostgres}, empty)
	assert.ErrorContains(t, err, "database connection")
	_, err = BuildCorpora(context.Background(), config.CorpusConfig{Backend: config.CorpusBackendS3}, empty)
	assert.ErrorContains(t, err, "bucket is required")
}

func TestBuildBackends_Memory(t *testing.T) {
	store, err := BuildJobStore(config.JobStoreConfig{}, nil, discardLogger())
	require.NoError(t, err)
	assert.IsType(t, &data.MemoryJobStore{}, store)

	q, err := BuildQueue(config.QueueConfig{}, nil, discardLogger())
	require.NoError(t, err)
	assert.IsType(t, &queue.Memory{}, q)

	corpora, err := BuildCorpora(context.Background(), config.CorpusConfig{}, nil)
	require.NoError(t, err)
	assert.IsType(t, &data.MemoryCorpusStore{}, corpora)
}

func TestNewServices_Memory(t *testing.T) {
	cfg := memoryConfig("http,worker")
	cfg.Observability.Metrics.Enabled = true
	c, err := NewServices(context.Background(), &ServiceDeps{
		Config: cfg,
		Infra:  &Infrastructure{},
		Logger: discardLogger(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	assert.NotNil(t, c.Jobs)
	assert.NotNil(t, c.Search)
	assert.NotNil(t, c.Worker)
	assert.NotNil(t, c.Verifier)
	assert.NotNil(t, c.Prometheus)
	assert.Empty(t, c.HealthProbes, "in-memory backends have no connections to probe")
}

func TestNewServices_WorkerOnlySkipsVerifier(t *testing.T) {
	cfg := memoryConfig("worker")
	cfg.Auth.Mode = config.AuthModeOIDC
	c, err := NewServices(context.Background(), &ServiceDeps{Config: cfg, Logger: discardLogger()})
	require.NoError(t, err)
	assert.Nil(t, c.Verifier)
	assert.Nil(t, c.Prometheus)
}

func TestRunServices_WorkerExecutesSubmittedJobs(t *testing.T) {
	logger := discardLogger()
	cfg := memoryConfig("worker,reaper")
	c, err := NewServices(context.Background(), &ServiceDeps{Config: cfg, Logger: logger})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- RunServices(ctx, &ServiceOrchestrationConfig{Config: cfg, Services: c, Logger: logger})
	}()

	corpus, err := c.Search.CreateCorpus(ctx, &model.CreateCorpusRequest{Name: "pets", Text: "kitten sitting mitten"})
	require.NoError(t, err)

	rec, err := c.Jobs.Submit(ctx, domainauth.Identity{UserID: "alice"}, model.JobParameters{
		Word:      "kitten",
		Algorithm: "levenshtein",
		CorpusID:  corpus.ID,
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		st, err := c.Jobs.Status(context.Background(), rec.ID)
		return err == nil && st.State.Terminal()
	}, 5*time.Second, 5*time.Millisecond)

	st, err := c.Jobs.Status(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStateSucceeded, st.State)
	require.NotNil(t, st.Result)
	assert.Equal(t, "kitten", st.Result.Results[0].Word)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("services did not stop")
	}
}

func TestRunServices_RequiresConfig(t *testing.T) {
	assert.Error(t, RunServices(context.Background(), nil))
	assert.Error(t, RunServices(context.Background(), &ServiceOrchestrationConfig{Config: memoryConfig("http")}))
}
