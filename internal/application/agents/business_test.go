package agents

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/datasense/internal/domain/ai"
	"github.com/bryanwahyu/datasense/internal/domain/fields"
	"github.com/bryanwahyu/datasense/internal/domain/sessions"
)

type fakeAI struct {
	mu      sync.Mutex
	replies map[string]string
	errs    map[string]error
	panics  map[string]bool
	seen    []ai.FieldContext
}

func (f *fakeAI) DescribeField(_ context.Context, fc ai.FieldContext) (string, error) {
	f.mu.Lock()
	f.seen = append(f.seen, fc)
	f.mu.Unlock()
	if f.panics[fc.FieldName] {
		panic("boom")
	}
	if err := f.errs[fc.FieldName]; err != nil {
		return "", err
	}
	return f.replies[fc.FieldName], nil
}

func (f *fakeAI) Chat(context.Context, ai.ChatRequest) (string, error) {
	return "", errors.New("not used")
}

func TestBusinessAgent_Run(t *testing.T) {
	store, id := newStoreWithSession(t)
	client := &fakeAI{
		replies: map[string]string{
			"customer_id": "```json\n{\"description\": \"Unique customer identifier.\", \"businessCategory\": \"Identifier\"}\n```",
			"city":        `not json at all`,
			"amount":      `{"description": "Order amount.", "businessCategory": "money"}`,
		},
		errs: map[string]error{
			"email": errors.New("connection reset"),
		},
		panics: map[string]bool{"state": true},
	}
	in := []fields.Analysis{
		{Sample: fields.Sample{FieldName: "customer_id", DetectedType: fields.TypeInteger, SampleValues: []string{"1", "2", "3", "4", "5"}}, IsPrimaryKey: true},
		{Sample: fields.Sample{FieldName: "email", DetectedType: fields.TypeEmail}, Patterns: []fields.Pattern{fields.PatternEmail}},
		{Sample: fields.Sample{FieldName: "city", DetectedType: fields.TypeString}},
		{Sample: fields.Sample{FieldName: "state", DetectedType: fields.TypeString}, Patterns: []fields.Pattern{fields.PatternCategorical}},
		{Sample: fields.Sample{FieldName: "amount", DetectedType: fields.TypeDecimal}},
	}

	out, err := (&BusinessAgent{Store: store, AI: client}).Run(context.Background(), id, in, "customers.csv")
	require.NoError(t, err)
	require.Len(t, out, len(in))

	assert.Equal(t, "Unique customer identifier.", out[0].Description)
	assert.Equal(t, fields.CategoryIdentifier, out[0].BusinessCategory)

	assert.Equal(t, "Email address field used for contact or identification.", out[1].Description)
	assert.Equal(t, fields.CategoryOther, out[1].BusinessCategory)

	assert.Equal(t, "Field containing city information.", out[2].Description)
	assert.Equal(t, "Categorical field representing state classification.", out[3].Description)

	assert.Equal(t, "Order amount.", out[4].Description)
	assert.Equal(t, fields.CategoryOther, out[4].BusinessCategory)

	for i, f := range out {
		assert.NotEmpty(t, f.Description)
		assert.Equal(t, in[i].FieldName, f.FieldName)
		assert.Empty(t, in[i].Description)
	}

	require.Len(t, client.seen, 5)
	assert.Equal(t, []string{"1", "2", "3"}, client.seen[0].SampleValues)
	assert.Equal(t, "customers.csv", client.seen[0].FileName)
	assert.True(t, client.seen[0].IsPrimaryKey)

	s, _ := store.Get(id)
	sage := s.AgentStatus[sessions.AgentSage]
	assert.Equal(t, sessions.AgentComplete, sage.Status)
	var msgs []string
	for _, l := range sage.Logs {
		msgs = append(msgs, l.Msg)
	}
	assert.Contains(t, msgs, "⚠ Fallback description for: email")
	assert.Contains(t, msgs, "✓ customer_id: Unique customer identifier....")
	assert.Equal(t, "Business context complete. 5 fields described. Handoff → GUARDIAN", msgs[len(msgs)-1])
}

func TestBusinessAgent_NoClientUsesFallback(t *testing.T) {
	store, id := newStoreWithSession(t)
	in := []fields.Analysis{{Sample: fields.Sample{FieldName: "created_at", DetectedType: fields.TypeDatetime}}}

	out, err := (&BusinessAgent{Store: store}).Run(context.Background(), id, in, "x.csv")
	require.NoError(t, err)
	assert.Equal(t, "Timestamp recording when the created at event occurred.", out[0].Description)
}

func TestBusinessAgent_CancelledContext(t *testing.T) {
	store, id := newStoreWithSession(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	client := &fakeAI{errs: map[string]error{"a": context.Canceled}}

	_, err := (&BusinessAgent{Store: store, AI: client}).Run(ctx, id, fields.FromSamples([]fields.Sample{{FieldName: "a"}}), "x.csv")
	require.ErrorIs(t, err, context.Canceled)

	s, _ := store.Get(id)
	assert.Equal(t, sessions.AgentError, s.AgentStatus[sessions.AgentSage].Status)
}

func TestFallbackDescription(t *testing.T) {
	tests := []struct {
		name string
		in   fields.Analysis
		want string
	}{
		{"primary key wins", fields.Analysis{Sample: fields.Sample{FieldName: "id", DetectedType: fields.TypeInteger}, IsPrimaryKey: true, IsForeignKey: true}, "Unique identifier for each record in this dataset."},
		{"foreign key", fields.Analysis{Sample: fields.Sample{FieldName: "store_id", DetectedType: fields.TypeInteger}, IsForeignKey: true}, "Reference key linking to a related entity."},
		{"datetime", fields.Analysis{Sample: fields.Sample{FieldName: "order_date", DetectedType: fields.TypeDatetime}}, "Timestamp recording when the order date event occurred."},
		{"boolean", fields.Analysis{Sample: fields.Sample{FieldName: "is_active", DetectedType: fields.TypeBoolean}}, "Boolean flag indicating the is active state."},
		{"numeric", fields.Analysis{Sample: fields.Sample{FieldName: "list_price", DetectedType: fields.TypeDecimal}}, "Numerical value representing the list price."},
		{"phone pattern", fields.Analysis{Sample: fields.Sample{FieldName: "phone", DetectedType: fields.TypeString}, Patterns: []fields.Pattern{fields.PatternPhone}}, "Phone number used for contact or verification."},
		{"generic", fields.Analysis{Sample: fields.Sample{FieldName: "street", DetectedType: fields.TypeString}}, "Field containing street information."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FallbackDescription(tt.in))
		})
	}
}
