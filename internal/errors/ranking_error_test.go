package errors_test

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/paveg/movers/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRankingError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *errors.RankingError
		expected string
	}{
		{
			name: "Error with field",
			err: &errors.RankingError{
				Op:      "Aggregate",
				Field:   "region",
				Message: "field does not exist",
			},
			expected: "Aggregate failed on field 'region': field does not exist",
		},
		{
			name: "Error without field",
			err: &errors.RankingError{
				Op:      "CompareAndRank",
				Message: "limit must be positive, got 0",
			},
			expected: "CompareAndRank failed: limit must be positive, got 0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestRankingError_Unwrap(t *testing.T) {
	cause := stderrors.New("underlying error")
	err := errors.NewInternalError("RankByAxis", cause)

	assert.Equal(t, cause, err.Unwrap())
	assert.ErrorIs(t, err, cause)
}

func TestRankingError_Is(t *testing.T) {
	err1 := errors.NewUnknownFieldError("Aggregate", "zone")
	err2 := errors.NewUnknownFieldError("Aggregate", "zone")
	err3 := errors.NewUnknownFieldError("RankByAxis", "zone")

	assert.True(t, err1.Is(err2))
	assert.False(t, err1.Is(err3))
	assert.False(t, err1.Is(stderrors.New("different error")))
}

func TestRankingError_KindSentinels(t *testing.T) {
	t.Run("invalid argument kinds match the sentinel", func(t *testing.T) {
		for _, err := range []error{
			errors.NewUnknownFieldError("Aggregate", "x"),
			errors.NewInvalidArgumentError("Aggregate", "no metrics"),
			errors.NewInvalidLimitError("CompareAndRank", -1),
			errors.NewUnsupportedTypeError("Aggregate", "name", "utf8"),
			errors.NewValidationError("RankByAxis", "weekday", "axis listed in group key"),
		} {
			assert.ErrorIs(t, err, errors.ErrInvalidArgument)
			assert.NotErrorIs(t, err, errors.ErrInternal)
		}
	})

	t.Run("wrapped errors keep their kind", func(t *testing.T) {
		wrapped := fmt.Errorf("job weekday-sales: %w", errors.NewInvalidLimitError("CompareAndRank", 0))
		require.ErrorIs(t, wrapped, errors.ErrInvalidArgument)

		var re *errors.RankingError
		require.ErrorAs(t, wrapped, &re)
		assert.Equal(t, errors.KindInvalidArgument, re.Kind)
	})

	t.Run("internal kind", func(t *testing.T) {
		err := errors.NewInternalError("Derive", stderrors.New("boom"))
		assert.ErrorIs(t, err, errors.ErrInternal)
		assert.Equal(t, "internal", err.Kind.String())
	})
}

func TestNewInvalidLimitError(t *testing.T) {
	err := errors.NewInvalidLimitError("CompareAndRank", 0)

	assert.Equal(t, "CompareAndRank", err.Op)
	assert.Empty(t, err.Field)
	assert.Equal(t, "limit must be positive, got 0", err.Message)
	assert.Equal(t, "invalid argument", err.Kind.String())
}
