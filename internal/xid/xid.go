package xid

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

func New(prefix string) string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
	}
	return fmt.Sprintf("%s-%d-%s", prefix, time.Now().UnixNano(), hex.EncodeToString(buf))
}

// ItemCode builds the external identifier for one serialized product unit,
// in the form P{productID}I{seq}-{8 hex chars}.
func ItemCode(productID string, seq int) string {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("P%sI%d-%08x", productID, seq, time.Now().UnixNano()&0xffffffff)
	}
	return fmt.Sprintf("P%sI%d-%s", productID, seq, hex.EncodeToString(buf))
}
