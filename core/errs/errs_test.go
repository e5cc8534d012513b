package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"validation", Validation("", map[string]string{"email": "invalid"}), KindValidation},
		{"business", BusinessLogic("duplicate email"), KindBusinessLogic},
		{"wrapped", fmt.Errorf("create user: %w", NotFound("user not found")), KindNotFound},
		{"plain", errors.New("boom"), KindUnclassified},
		{"nil", nil, KindUnclassified},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestValidation_CopiesFields(t *testing.T) {
	fields := map[string]string{"email": "invalid"}
	err := Validation("", fields)
	fields["email"] = "changed"

	assert.Equal(t, "Validation failed", err.Message)
	assert.Equal(t, "invalid", err.Fields["email"])
}

func TestWrap_Unwraps(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(KindBusinessLogic, "cannot save", cause)

	require.ErrorIs(t, err, cause)
	assert.Equal(t, "cannot save: disk full", err.Error())
	assert.True(t, Is(err, KindBusinessLogic))
	assert.False(t, Is(nil, KindBusinessLogic))
}

func TestKind_String(t *testing.T) {
	seen := make(map[string]bool)
	for _, k := range Kinds {
		s := k.String()
		assert.False(t, seen[s], "duplicate kind name %q", s)
		seen[s] = true
	}
	assert.Equal(t, "unclassified", Kind(99).String())
}
