package errors

import (
	"context"
	goerrors "errors"
	"reflect"
	"strings"

	"github.com/target/fuzzysearch/internal/domain/model"
	apperrors "github.com/target/fuzzysearch/internal/errors"
)

var sentinelClasses = []struct {
	err   error
	class string
}{
	{model.ErrCorpusNotFound, "corpus_not_found"},
	{model.ErrUnknownAlgorithm, "unknown_algorithm"},
	{model.ErrJobNotFound, "job_not_found"},
	{model.ErrAuthenticationFailed, "authentication_failed"},
	{context.Canceled, "canceled"},
	{context.DeadlineExceeded, "deadline_exceeded"},
}

// Classify returns a low-cardinality label for err suitable for metrics and
// logs. Known sentinels and application error codes map to fixed names;
// anything else falls back to the innermost concrete type in snake_case.
func Classify(err error) string {
	if err == nil {
		return ""
	}
	for _, s := range sentinelClasses {
		if goerrors.Is(err, s.err) {
			return s.class
		}
	}
	if code := apperrors.GetCode(err); code != "" {
		return string(code)
	}

	for {
		unwrapped := goerrors.Unwrap(err)
		if unwrapped == nil {
			break
		}
		err = unwrapped
	}

	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return "unknown"
	}

	name := strings.ToLower(strings.ReplaceAll(t.String(), "*", ""))
	name = strings.ReplaceAll(name, ".", "_")
	if name == "" {
		return "unknown"
	}
	return name
}
