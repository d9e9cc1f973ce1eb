package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskEmail(t *testing.T) {
	assert.Equal(t, "j…@e….com", MaskEmail("John@Example.com"))
	assert.Equal(t, "a@e….org", MaskEmail("a@ex.org"))
	assert.Equal(t, "***", MaskEmail("bob"))
	assert.Equal(t, "", MaskEmail("  "))
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "", MaskSecret(""))
	assert.Equal(t, "***", MaskSecret("abc123"))
	assert.Equal(t, "tw…id", MaskSecret("tw-client-id"))
}
