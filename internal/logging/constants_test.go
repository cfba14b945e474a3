package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFieldConstants(t *testing.T) {
	assert.Equal(t, "user", FieldUser)
	assert.Equal(t, "identity", FieldIdentity)
	assert.Equal(t, "category", FieldCategory)
	assert.Equal(t, "state", FieldState)
	assert.Equal(t, "count", FieldCount)
	assert.Equal(t, "file_path", FieldFile)
	assert.Equal(t, "error", FieldError)
}
