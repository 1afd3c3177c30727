package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/target/fuzzysearch/internal/domain/model"
	apperrors "github.com/target/fuzzysearch/internal/errors"
)

type customErr struct{}

func (*customErr) Error() string { return "custom" }

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: ""},
		{name: "wrapped sentinel", err: fmt.Errorf("lookup: %w", model.ErrCorpusNotFound), want: "corpus_not_found"},
		{name: "canceled", err: fmt.Errorf("reserve: %w", context.Canceled), want: "canceled"},
		{name: "app error", err: apperrors.Wrap(errors.New("x"), apperrors.ErrCodeUnavailable, "db down"), want: "unavailable"},
		{name: "concrete type", err: fmt.Errorf("outer: %w", &customErr{}), want: "errors_customerr"},
		{name: "plain", err: errors.New("boom"), want: "errors_errorstring"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}
