package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSumSHA256Hex(t *testing.T) {
	assert.Equal(t,
		"e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		SumSHA256Hex(nil))
	assert.Len(t, SumSHA256Hex([]byte("persona.png")), 64)
}

func TestCleanString(t *testing.T) {
	assert.Equal(t, "Ada Lovelace", CleanString("  Ada Lovelace \n"))
	assert.Equal(t, "ada@uni.edu", CleanString(" Ada@Uni.EDU ", true))
}
