package services

import (
	"crypto/rand"
	"fmt"
	"strings"
	"time"
)

const (
	joinCodeLength   = 6
	joinCodeCharset  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	joinCodeAttempts = 5
)

// generateJoinCode returns a 6-character uppercase alphanumeric team
// join code.
func generateJoinCode() string {
	buf := make([]byte, joinCodeLength)
	rand.Read(buf)

	var sb strings.Builder
	sb.Grow(joinCodeLength)
	for _, b := range buf {
		sb.WriteByte(joinCodeCharset[int(b)%len(joinCodeCharset)])
	}
	return sb.String()
}

// fallbackJoinCode is used when generated codes keep colliding: a
// timestamp suffix makes further collisions within a match practically
// impossible.
func fallbackJoinCode() string {
	suffix := fmt.Sprintf("%d", time.Now().UnixNano())
	code := generateJoinCode()[:2] + suffix[len(suffix)-4:]
	return strings.ToUpper(code)
}
