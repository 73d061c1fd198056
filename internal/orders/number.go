package orders

import (
	"crypto/rand"
	"fmt"
	"time"
)

const orderNumberAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// GenerateOrderNumber returns SH-<UTC timestamp>-<6 random characters>.
func GenerateOrderNumber(now time.Time) (string, error) {
	suffix := make([]byte, 6)
	if _, err := rand.Read(suffix); err != nil {
		return "", fmt.Errorf("read random suffix: %w", err)
	}
	for i, b := range suffix {
		suffix[i] = orderNumberAlphabet[int(b)%len(orderNumberAlphabet)]
	}
	return fmt.Sprintf("SH-%s-%s", now.UTC().Format("20060102150405"), suffix), nil
}
