package apperror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Is(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
		want   bool
	}{
		{"validation matches", Validation("op", "bad"), ErrValidation, true},
		{"conflict matches", Conflict("op", "decided"), ErrConflict, true},
		{"not found matches", NotFound("op", "missing"), ErrNotFound, true},
		{"authorization matches", Authorization("op", "denied"), ErrAuthorization, true},
		{"kinds differ", Conflict("op", "decided"), ErrNotFound, false},
		{"wrapped by fmt", fmt.Errorf("service: %w", Conflict("op", "x")), ErrConflict, true},
		{"plain error", errors.New("boom"), ErrConflict, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errors.Is(tt.err, tt.target))
		})
	}
}

func TestError_Message(t *testing.T) {
	err := Wrap(KindNotFound, "closure.get", errors.New("sql: no rows"), "closure missing")
	assert.Equal(t, "closure.get: closure missing: sql: no rows", err.Error())

	assert.Equal(t, "end must be after start", Validation("", "end must be after start").Error())
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindConflict, KindOf(fmt.Errorf("wrap: %w", Conflict("op", "x"))))
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
	assert.True(t, IsValidation(Validation("op", "x")))
	assert.True(t, IsAuthorization(Authorization("op", "x")))
	assert.True(t, IsNotFound(NotFound("op", "x")))
	assert.False(t, IsConflict(nil))
}
