package fields

// DetectedType enum hasil inferensi sampler
type DetectedType string

const (
	TypeInteger  DetectedType = "integer"
	TypeDecimal  DetectedType = "decimal"
	TypeBoolean  DetectedType = "boolean"
	TypeDatetime DetectedType = "datetime"
	TypeEmail    DetectedType = "email"
	TypeString   DetectedType = "string"
	TypeUnknown  DetectedType = "unknown"
)

// IsNumeric reports whether the type is integer or decimal.
func (t DetectedType) IsNumeric() bool {
	return t == TypeInteger || t == TypeDecimal
}

// Pattern tags detected by the schema stage
type Pattern string

const (
	PatternEmail       Pattern = "email"
	PatternPhone       Pattern = "phone"
	PatternISODate     Pattern = "iso_date"
	PatternURL         Pattern = "url"
	PatternCategorical Pattern = "categorical"
)

// BusinessCategory enum
type BusinessCategory string

const (
	CategoryIdentifier  BusinessCategory = "identifier"
	CategoryContact     BusinessCategory = "contact"
	CategoryFinancial   BusinessCategory = "financial"
	CategoryTemporal    BusinessCategory = "temporal"
	CategoryStatus      BusinessCategory = "status"
	CategoryDemographic BusinessCategory = "demographic"
	CategoryBehavioral  BusinessCategory = "behavioral"
	CategoryOther       BusinessCategory = "other"
)

// ParseBusinessCategory maps free text to a known category, defaulting to other.
func ParseBusinessCategory(s string) BusinessCategory {
	switch c := BusinessCategory(s); c {
	case CategoryIdentifier, CategoryContact, CategoryFinancial, CategoryTemporal,
		CategoryStatus, CategoryDemographic, CategoryBehavioral, CategoryOther:
		return c
	}
	return CategoryOther
}

// ReviewStatus enum
type ReviewStatus string

const (
	StatusApproved ReviewStatus = "approved"
	StatusPending  ReviewStatus = "pending"
	StatusRejected ReviewStatus = "rejected"
)

// Valid reports whether s is one of the three review states.
func (s ReviewStatus) Valid() bool {
	return s == StatusApproved || s == StatusPending || s == StatusRejected
}

// RiskLevel of a detected PII field
type RiskLevel string

const (
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// Sample is one column summary produced by a sampler. Rates are percentages.
type Sample struct {
	FieldName    string       `json:"fieldName"`
	TableName    string       `json:"tableName,omitempty"`
	DetectedType DetectedType `json:"detectedType"`
	NullCount    int          `json:"nullCount"`
	NullRate     float64      `json:"nullRate"`
	UniqueCount  int          `json:"uniqueCount"`
	UniqueRate   float64      `json:"uniqueRate"`
	SampleValues []string     `json:"sampleValues"`
	TotalRows    int          `json:"totalRows"`
	IsNullable   bool         `json:"isNullable"`
}

// Analysis accumulates what each pipeline stage learns about a field.
// Stages only add to it; values set by an earlier stage are never reset.
type Analysis struct {
	Sample

	// schema stage
	IsPrimaryKey bool      `json:"isPrimaryKey"`
	IsForeignKey bool      `json:"isForeignKey"`
	Patterns     []Pattern `json:"patterns"`

	// business stage
	Description      string           `json:"description"`
	BusinessCategory BusinessCategory `json:"businessCategory,omitempty"`

	// quality stage
	QualityScore   int          `json:"qualityScore"`
	Confidence     int          `json:"confidence"`
	Status         ReviewStatus `json:"status,omitempty"`
	Issues         []string     `json:"issues"`
	HasPII         bool         `json:"hasPII"`
	PIIType        string       `json:"piiType,omitempty"`
	PIIDescription string       `json:"piiDescription,omitempty"`
	PIIRiskLevel   RiskLevel    `json:"piiRiskLevel,omitempty"`
	GDPRCategory   string       `json:"gdprCategory,omitempty"`
	PIIConfidence  int          `json:"piiConfidence,omitempty"`
}

// HasPattern reports whether p was detected on the field.
func (a *Analysis) HasPattern(p Pattern) bool {
	for _, x := range a.Patterns {
		if x == p {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so the next stage can enrich it without touching the input.
func (a Analysis) Clone() Analysis {
	out := a
	out.SampleValues = append([]string(nil), a.SampleValues...)
	out.Patterns = append([]Pattern(nil), a.Patterns...)
	out.Issues = append([]string(nil), a.Issues...)
	return out
}

// FromSamples seeds the accumulator list at pipeline start.
func FromSamples(samples []Sample) []Analysis {
	out := make([]Analysis, len(samples))
	for i, s := range samples {
		s.SampleValues = append([]string(nil), s.SampleValues...)
		out[i] = Analysis{Sample: s}
	}
	return out
}

// CloneAll deep-copies a dictionary.
func CloneAll(in []Analysis) []Analysis {
	if in == nil {
		return nil
	}
	out := make([]Analysis, len(in))
	for i := range in {
		out[i] = in[i].Clone()
	}
	return out
}
