package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bryanwahyu/datasense/internal/domain/fields"
)

// Description is the model's answer for one field.
type Description struct {
	Description      string                  `json:"description"`
	BusinessCategory fields.BusinessCategory `json:"businessCategory"`
}

// ParseDescription strips markdown fences from a model reply and decodes the
// {description, businessCategory} object. Unknown categories become "other".
func ParseDescription(raw string) (Description, error) {
	cleaned := strings.ReplaceAll(raw, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	cleaned = strings.TrimSpace(cleaned)

	var out struct {
		Description      string `json:"description"`
		BusinessCategory string `json:"businessCategory"`
	}
	if err := json.Unmarshal([]byte(cleaned), &out); err != nil {
		return Description{}, fmt.Errorf("decode description: %w", err)
	}
	desc := strings.TrimSpace(out.Description)
	if desc == "" {
		return Description{}, fmt.Errorf("decode description: empty description")
	}
	return Description{
		Description:      desc,
		BusinessCategory: fields.ParseBusinessCategory(strings.ToLower(strings.TrimSpace(out.BusinessCategory))),
	}, nil
}

// SplitSQL separates a reply into the prose before a ```sql block, the SQL
// itself and whatever follows the block.
func SplitSQL(reply string) (content, sql, suffix string, ok bool) {
	before, after, found := strings.Cut(reply, "```sql")
	if !found {
		return reply, "", "", false
	}
	code, rest, _ := strings.Cut(after, "```")
	return strings.TrimSpace(before), strings.TrimSpace(code), strings.TrimSpace(rest), true
}
