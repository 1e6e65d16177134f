package prompt

import (
	"fmt"
	"strings"

	"github.com/bryanwahyu/datasense/internal/domain/ai"
	"github.com/bryanwahyu/datasense/internal/domain/fields"
)

// FieldSystemPrompt asks for one JSON object describing a single column.
func FieldSystemPrompt() string {
	return `You are a data documentation expert. Generate a concise 1-sentence business description for a database field.
Respond with ONLY a valid JSON object, no markdown, no explanation:
{"description": "one sentence business description", "businessCategory": "one of: identifier, contact, financial, temporal, status, demographic, behavioral, other"}`
}

// FieldUserPrompt renders what is known about the column.
func FieldUserPrompt(fc ai.FieldContext) string {
	samples := "none"
	if len(fc.SampleValues) > 0 {
		samples = strings.Join(fc.SampleValues, ", ")
	}
	patterns := "none"
	if len(fc.Patterns) > 0 {
		ps := make([]string, len(fc.Patterns))
		for i, p := range fc.Patterns {
			ps[i] = string(p)
		}
		patterns = strings.Join(ps, ", ")
	}
	return fmt.Sprintf(`Field name: %s
Data type: %s
Sample values: %s
From file: %s
Is primary key: %t
Patterns detected: %s`, fc.FieldName, fc.DetectedType, samples, fc.FileName, fc.IsPrimaryKey, patterns)
}

// ChatSystemPrompt frames the assistant and appends the dictionary, if any.
func ChatSystemPrompt(fileName string, dict []fields.Analysis) string {
	var b strings.Builder
	b.WriteString(`You are DataSense AI's intelligent data assistant. You help users understand their database schema, generate SQL queries, and analyze data quality.

You have access to the user's data dictionary and can:
1. Answer questions about specific fields and their meaning
2. Generate SQL queries based on the schema
3. Identify data quality issues and suggest improvements
4. Explain relationships between fields
5. Provide data modeling recommendations

When generating SQL, always wrap it in ` + "```sql" + ` code blocks.
Keep responses concise and practical. Always reference actual field names from the dictionary when relevant.
`)
	if len(dict) == 0 {
		return b.String()
	}

	fmt.Fprintf(&b, "\n\nDATA DICTIONARY CONTEXT:\nFile: %s\nTotal Fields: %d\n\nFields:\n", fileName, len(dict))
	for i, f := range dict {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "- %s (%s): %s | Quality: %d%%", f.FieldName, f.DetectedType, f.Description, f.QualityScore)
	}
	return b.String()
}
