package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/datasense/internal/domain/fields"
)

func TestParseDescription(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		wantDesc string
		wantCat  fields.BusinessCategory
		wantErr  bool
	}{
		{
			name:     "bare json",
			raw:      `{"description":"Unique customer identifier.","businessCategory":"identifier"}`,
			wantDesc: "Unique customer identifier.",
			wantCat:  fields.CategoryIdentifier,
		},
		{
			name:     "fenced json",
			raw:      "```json\n{\"description\":\"Customer email.\",\"businessCategory\":\"contact\"}\n```",
			wantDesc: "Customer email.",
			wantCat:  fields.CategoryContact,
		},
		{
			name:     "unknown category",
			raw:      `{"description":"Something.","businessCategory":"astrology"}`,
			wantDesc: "Something.",
			wantCat:  fields.CategoryOther,
		},
		{
			name:     "missing category",
			raw:      `{"description":"Something."}`,
			wantDesc: "Something.",
			wantCat:  fields.CategoryOther,
		},
		{name: "prose", raw: "Sure! Here is the description.", wantErr: true},
		{name: "empty description", raw: `{"description":"  ","businessCategory":"other"}`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDescription(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantDesc, got.Description)
			assert.Equal(t, tt.wantCat, got.BusinessCategory)
		})
	}
}

func TestSplitSQL(t *testing.T) {
	content, sql, suffix, ok := SplitSQL("Try this:\n```sql\nSELECT 1;\n```\nDone.")
	assert.True(t, ok)
	assert.Equal(t, "Try this:", content)
	assert.Equal(t, "SELECT 1;", sql)
	assert.Equal(t, "Done.", suffix)

	content, _, _, ok = SplitSQL("No query needed.")
	assert.False(t, ok)
	assert.Equal(t, "No query needed.", content)
}
