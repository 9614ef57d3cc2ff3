package wishlist

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// Entry is a saved product. The raw payload is kept as submitted so the
// client gets back exactly what it saved.
type Entry struct {
	ID      string          `json:"id"`
	Product json.RawMessage `json:"product"`
	SavedAt time.Time       `json:"savedAt"`
}

func storageKey(userID string) string {
	if userID == "" {
		return "wishlist:default"
	}
	return "wishlist:" + userID
}

// Identity derives a stable identity for a product payload. An explicit
// non-empty "id" field wins; otherwise the payload is re-marshaled into a
// canonical form (object keys sorted) and hashed, so the same product saved
// with differently ordered fields toggles the same entry.
func Identity(product json.RawMessage) (string, error) {
	var decoded any
	if err := json.Unmarshal(product, &decoded); err != nil {
		return "", fmt.Errorf("decoding product payload: %w", err)
	}

	if obj, ok := decoded.(map[string]any); ok {
		if id, ok := obj["id"].(string); ok && id != "" {
			return id, nil
		}
	}

	canonical, err := json.Marshal(decoded)
	if err != nil {
		return "", fmt.Errorf("canonicalizing product payload: %w", err)
	}

	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}
