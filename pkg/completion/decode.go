package completion

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DecodeLenient unmarshals a model response into out with a fixed fallback
// order: strict parse first, then a parse with literal newlines stripped
// (models frequently emit JSON with raw newlines inside string values, which
// strict parsing rejects), then failure. It never guesses beyond that.
func DecodeLenient(content string, out any) error {
	content = strings.TrimSpace(content)
	if err := json.Unmarshal([]byte(content), out); err == nil {
		return nil
	}

	stripped := strings.ReplaceAll(content, "\r", "")
	stripped = strings.ReplaceAll(stripped, "\n", "")
	if err := json.Unmarshal([]byte(stripped), out); err != nil {
		return fmt.Errorf("lenient decode: %w", err)
	}
	return nil
}
