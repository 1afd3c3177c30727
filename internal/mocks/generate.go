// Package mocks provides gomock implementations of the repository, queue and
// identity ports.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	store := mocks.NewMockJobStore(ctrl)
//	store.EXPECT().Get(gomock.Any(), "job-1").Return(rec, nil)
package mocks

//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=job_store_mock.go github.com/target/fuzzysearch/internal/core JobStore
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=job_reaper_store_mock.go github.com/target/fuzzysearch/internal/core JobReaperStore
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=job_queue_mock.go github.com/target/fuzzysearch/internal/core JobQueue
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=corpus_repository_mock.go github.com/target/fuzzysearch/internal/core CorpusRepository

// IdentityVerifier lives in ports alongside the session store.
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=identity_verifier_mock.go github.com/target/fuzzysearch/internal/ports IdentityVerifier
