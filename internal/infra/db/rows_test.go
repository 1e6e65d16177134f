package db

import (
	"database/sql"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/datasense/internal/domain/fields"
	"github.com/bryanwahyu/datasense/internal/domain/projects"
)

// rowOf feeds insert arguments back through Scan the way a driver would.
type rowOf []any

func (r rowOf) Scan(dest ...any) error {
	if len(dest) != len(r) {
		return fmt.Errorf("scan: %d destinations for %d columns", len(dest), len(r))
	}
	for i, d := range dest {
		if sc, ok := d.(sql.Scanner); ok {
			if err := sc.Scan(r[i]); err != nil {
				return err
			}
			continue
		}
		v := reflect.ValueOf(d).Elem()
		v.Set(reflect.ValueOf(r[i]).Convert(v.Type()))
	}
	return nil
}

func TestFieldArgs_ColumnsAndNormalisation(t *testing.T) {
	id := uuid.New()
	f := fields.Analysis{
		Sample: fields.Sample{
			FieldName:    "email",
			DetectedType: fields.TypeEmail,
			NullRate:     0.5,
			UniqueRate:   87.6,
			UniqueCount:  9,
			TotalRows:    10,
		},
	}

	args, err := FieldArgs(id, f)
	require.NoError(t, err)
	require.Len(t, args, FieldColumnCount)

	assert.Equal(t, id.String(), args[0])
	assert.Nil(t, args[2], "empty table name is stored as NULL")
	assert.Equal(t, "pending", args[8], "missing status defaults to pending")
	assert.Equal(t, 50, args[12])
	assert.Equal(t, 88, args[13])
	assert.Equal(t, "[]", args[16])
	assert.Equal(t, "[]", args[17])
	assert.Nil(t, args[20])
}

func TestScanField_RestoresStoredDictionaryEntry(t *testing.T) {
	f := fields.Analysis{
		Sample: fields.Sample{
			FieldName:    "customers.email",
			TableName:    "customers",
			DetectedType: fields.TypeEmail,
			NullRate:     10,
			UniqueRate:   100,
			UniqueCount:  9,
			TotalRows:    10,
			SampleValues: []string{"a@x.io", "b@x.io"},
		},
		Patterns:         []fields.Pattern{fields.PatternEmail},
		Description:      "Customer contact address",
		BusinessCategory: fields.CategoryContact,
		QualityScore:     90,
		Confidence:       85,
		Status:           fields.StatusApproved,
		Issues:           []string{"10% null values"},
		HasPII:           true,
		PIIType:          "email",
		PIIRiskLevel:     fields.RiskHigh,
		GDPRCategory:     "Contact Information",
		PIIConfidence:    100,
	}

	args, err := FieldArgs(uuid.New(), f)
	require.NoError(t, err)

	got, err := ScanField(rowOf(args))
	require.NoError(t, err)
	assert.Equal(t, f, got)
}

func TestScanField_NullListsBecomeEmpty(t *testing.T) {
	args, err := FieldArgs(uuid.New(), fields.Analysis{Sample: fields.Sample{FieldName: "x", DetectedType: fields.TypeString}})
	require.NoError(t, err)
	args[16], args[17], args[18] = nil, nil, nil

	got, err := ScanField(rowOf(args))
	require.NoError(t, err)
	assert.NotNil(t, got.Patterns)
	assert.Empty(t, got.SampleValues)
	assert.Empty(t, got.Issues)
}

func TestProjectArgs_ScanProject(t *testing.T) {
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	p := &projects.Project{
		ProjectID:   uuid.New(),
		FileName:    "shop (3 tables)",
		SourceType:  projects.SourcePostgres,
		TotalFields: 12,
		AvgQuality:  81,
		Status:      "complete",
		Metadata:    map[string]any{"tables": []any{"a", "b", "c"}},
		CreatedAt:   created,
	}

	args, err := ProjectArgs(p)
	require.NoError(t, err)
	require.Len(t, args, ProjectColumnCount)

	got, err := ScanProject(rowOf(args))
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestProjectArgs_NilMetadataAndZeroTime(t *testing.T) {
	args, err := ProjectArgs(&projects.Project{ProjectID: uuid.New(), SourceType: projects.SourceCSV})
	require.NoError(t, err)
	assert.Nil(t, args[6])
	assert.False(t, args[7].(time.Time).IsZero())
}

func TestScanProject_BadID(t *testing.T) {
	_, err := ScanProject(rowOf{"nope", "f", "csv", 1, 1, "complete", nil, time.Now()})
	assert.Error(t, err)
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "$1, $2, $3", Placeholders(3, 1))
	assert.Equal(t, "$4", Placeholders(1, 4))
	assert.Equal(t, "?, ?", QuestionMarks(2))
	assert.Equal(t, "", QuestionMarks(0))
}
