package workers

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"fellowship/contexts/governance/election-engine/ports"
)

func hashPayload(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

func resolveNow(clock ports.Clock) time.Time {
	now := time.Now().UTC()
	if clock != nil {
		now = clock.Now().UTC()
	}
	return now
}
