package services

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

var joinCodeShape = regexp.MustCompile(`^[A-Z0-9]{6}$`)

func TestGenerateJoinCode(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		code := generateJoinCode()
		assert.Regexp(t, joinCodeShape, code)
		seen[code] = true
	}
	// 200 draws from a 36^6 space colliding down to a handful would mean
	// the generator is broken.
	assert.Greater(t, len(seen), 190)
}

func TestFallbackJoinCode(t *testing.T) {
	code := fallbackJoinCode()
	assert.Regexp(t, joinCodeShape, code)
}
