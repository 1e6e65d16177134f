package agents

import (
	"math"
	"regexp"
	"strings"

	"github.com/bryanwahyu/datasense/internal/domain/fields"
)

const (
	// nameOnlyConfidence is reported when a field name matches a rule that has
	// no value validator, or when there are no samples to validate.
	nameOnlyConfidence = 85
	// valueConfirmRatio is the share of samples that must pass a rule's validator.
	valueConfirmRatio = 0.6
)

// PIIRule describes one category of personal data.
type PIIRule struct {
	Type         string
	NamePatterns []string
	Value        *regexp.Regexp // optional
	Description  string
	GDPRCategory string
	Risk         fields.RiskLevel
}

// PIIRules in priority order; the first rule that matches wins.
var PIIRules = []PIIRule{
	{
		Type:         "email",
		NamePatterns: []string{"email", "e_mail", "mail", "contact_email"},
		Value:        regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`),
		Description:  "Email Address",
		GDPRCategory: "Contact Information",
		Risk:         fields.RiskHigh,
	},
	{
		Type:         "phone",
		NamePatterns: []string{"phone", "mobile", "tel", "telephone", "contact_number", "cell"},
		Value:        regexp.MustCompile(`^[+]?[(]?[0-9]{1,4}[)]?[-\s.]?[(]?[0-9]{1,4}[)]?[-\s.]?[0-9]{1,9}$`),
		Description:  "Phone Number",
		GDPRCategory: "Contact Information",
		Risk:         fields.RiskHigh,
	},
	{
		Type:         "ssn",
		NamePatterns: []string{"ssn", "social_security", "social_security_number", "national_id"},
		Value:        regexp.MustCompile(`^\d{3}-?\d{2}-?\d{4}$`),
		Description:  "Social Security Number",
		GDPRCategory: "Government ID",
		Risk:         fields.RiskCritical,
	},
	{
		Type:         "dateOfBirth",
		NamePatterns: []string{"dob", "date_of_birth", "birth_date", "birthdate", "birthday"},
		Description:  "Date of Birth",
		GDPRCategory: "Personal Identifier",
		Risk:         fields.RiskHigh,
	},
	{
		Type:         "firstName",
		NamePatterns: []string{"first_name", "firstname", "given_name", "forename"},
		Description:  "First Name",
		GDPRCategory: "Personal Identifier",
		Risk:         fields.RiskMedium,
	},
	{
		Type:         "lastName",
		NamePatterns: []string{"last_name", "lastname", "surname", "family_name"},
		Description:  "Last Name",
		GDPRCategory: "Personal Identifier",
		Risk:         fields.RiskMedium,
	},
	{
		Type:         "address",
		NamePatterns: []string{"address", "street", "street_address", "residence", "home_address", "billing_address", "shipping_address"},
		Description:  "Physical Address",
		GDPRCategory: "Location Data",
		Risk:         fields.RiskHigh,
	},
	{
		Type:         "postalCode",
		NamePatterns: []string{"postal_code", "zip_code", "zipcode", "postcode", "zip"},
		Value:        regexp.MustCompile(`^\d{5}(-\d{4})?$`),
		Description:  "Postal/ZIP Code",
		GDPRCategory: "Location Data",
		Risk:         fields.RiskMedium,
	},
	{
		Type:         "creditCard",
		NamePatterns: []string{"credit_card", "card_number", "cc_number", "payment_card"},
		Value:        regexp.MustCompile(`^\d{4}[-\s]?\d{4}[-\s]?\d{4}[-\s]?\d{4}$`),
		Description:  "Credit Card Number",
		GDPRCategory: "Financial Data",
		Risk:         fields.RiskCritical,
	},
	{
		Type:         "ipAddress",
		NamePatterns: []string{"ip_address", "ip", "ipv4", "ipv6"},
		Value:        regexp.MustCompile(`^(?:[0-9]{1,3}\.){3}[0-9]{1,3}$`),
		Description:  "IP Address",
		GDPRCategory: "Technical Identifier",
		Risk:         fields.RiskMedium,
	},
	{
		Type:         "passport",
		NamePatterns: []string{"passport", "passport_number", "passport_id"},
		Description:  "Passport Number",
		GDPRCategory: "Government ID",
		Risk:         fields.RiskCritical,
	},
}

// MatchKind tags how a PII rule matched.
type MatchKind int

const (
	NoMatch MatchKind = iota
	NameOnly
	ValueConfirmed
)

// PIIMatch is the outcome of evaluating the rule table against one field.
type PIIMatch struct {
	Kind       MatchKind
	Rule       *PIIRule
	Confidence int
}

// Detected reports whether any rule matched.
func (m PIIMatch) Detected() bool { return m.Kind != NoMatch }

var nameSeparators = strings.NewReplacer("_", "", " ", "", "-", "")

func normalizeName(s string) string {
	return nameSeparators.Replace(strings.ToLower(s))
}

// DetectPII evaluates PIIRules in order against a field name and its samples.
// It is pure: identical input always yields the identical match.
func DetectPII(fieldName string, samples []string) PIIMatch {
	name := normalizeName(fieldName)
	for i := range PIIRules {
		rule := &PIIRules[i]
		if !rule.matchesName(name) {
			continue
		}
		if rule.Value == nil || len(samples) == 0 {
			return PIIMatch{Kind: NameOnly, Rule: rule, Confidence: nameOnlyConfidence}
		}
		valid := 0
		for _, v := range samples {
			if v != "" && v != "NULL" && rule.Value.MatchString(v) {
				valid++
			}
		}
		ratio := float64(valid) / float64(len(samples))
		if ratio >= valueConfirmRatio {
			return PIIMatch{Kind: ValueConfirmed, Rule: rule, Confidence: int(math.Round(ratio * 100))}
		}
	}
	return PIIMatch{Kind: NoMatch}
}

func (r *PIIRule) matchesName(normalized string) bool {
	for _, p := range r.NamePatterns {
		np := normalizeName(p)
		if strings.Contains(normalized, np) || strings.Contains(np, normalized) {
			return true
		}
	}
	return false
}
