// Package sampler turns CSV files, Excel workbooks and Postgres tables into
// per-column summaries for the analysis pipeline.
package sampler

import (
	"regexp"
	"strings"

	"github.com/bryanwahyu/datasense/internal/domain/fields"
)

const (
	// MaxRows is how many data rows are read from any source.
	MaxRows = 100
	// typeProbeSize values are inspected when inferring a column type.
	typeProbeSize = 20
	maxSamples    = 5
)

var (
	integerRe = regexp.MustCompile(`^-?\d+$`)
	decimalRe = regexp.MustCompile(`^-?\d+\.?\d*$`)
	emailRe   = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	dateRes   = []*regexp.Regexp{
		regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`),
		regexp.MustCompile(`^\d{2}/\d{2}/\d{4}`),
		regexp.MustCompile(`^\d{4}/\d{2}/\d{2}`),
	}
	booleanWords = map[string]bool{
		"true": true, "false": true, "1": true, "0": true,
		"yes": true, "no": true, "t": true, "f": true,
	}
)

// Profile summarises rows column by column. Empty strings count as nulls.
// Rows shorter than columns are padded with nulls; rows past MaxRows are ignored.
func Profile(columns []string, rows [][]string) []fields.Sample {
	if len(rows) > MaxRows {
		rows = rows[:MaxRows]
	}
	total := len(rows)
	out := make([]fields.Sample, 0, len(columns))
	for c, name := range columns {
		values := make([]string, 0, total)
		for _, r := range rows {
			if c < len(r) && r[c] != "" {
				values = append(values, r[c])
			}
		}
		unique := distinct(values)
		nullCount := total - len(values)

		samples := unique
		if len(samples) > maxSamples {
			samples = samples[:maxSamples]
		}
		out = append(out, fields.Sample{
			FieldName:    strings.TrimSpace(name),
			DetectedType: DetectType(values),
			NullCount:    nullCount,
			NullRate:     fields.Round1(float64(nullCount) / float64(max(total, 1)) * 100),
			UniqueCount:  len(unique),
			UniqueRate:   fields.Round1(float64(len(unique)) / float64(max(len(values), 1)) * 100),
			SampleValues: append([]string{}, samples...),
			TotalRows:    total,
			IsNullable:   nullCount > 0,
		})
	}
	return out
}

func distinct(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// DetectType infers a column type from its non-null values, checking only the
// first few. The first rule that holds wins: boolean, integer, decimal, then
// datetime and email if any probed value looks like one.
func DetectType(values []string) fields.DetectedType {
	if len(values) == 0 {
		return fields.TypeUnknown
	}
	probe := values
	if len(probe) > typeProbeSize {
		probe = probe[:typeProbeSize]
	}

	switch {
	case all(probe, func(v string) bool { return booleanWords[strings.ToLower(v)] }):
		return fields.TypeBoolean
	case all(probe, func(v string) bool { return integerRe.MatchString(strings.TrimSpace(v)) }):
		return fields.TypeInteger
	case all(probe, func(v string) bool { return decimalRe.MatchString(strings.TrimSpace(v)) }):
		return fields.TypeDecimal
	case some(probe, looksLikeDate):
		return fields.TypeDatetime
	case some(probe, emailRe.MatchString):
		return fields.TypeEmail
	}
	return fields.TypeString
}

func looksLikeDate(v string) bool {
	for _, re := range dateRes {
		if re.MatchString(v) {
			return true
		}
	}
	return false
}

func all(values []string, pred func(string) bool) bool {
	for _, v := range values {
		if !pred(v) {
			return false
		}
	}
	return true
}

func some(values []string, pred func(string) bool) bool {
	for _, v := range values {
		if pred(v) {
			return true
		}
	}
	return false
}
