package render

import (
	"regexp"
	"strings"
	"time"
)

// CertificateData is the flat recipient/certificate record consumed by the
// placeholder resolver. Absent fields are empty strings; the resolver never
// dereferences anything.
type CertificateData struct {
	RecipientName   string
	RecipientEmail  string
	AwardTitle      string
	ContingentName  string
	TeamName        string
	ICNumber        string
	ContestCode     string
	ContestName     string
	InstitutionName string
	EventName       string
	UniqueCode      string
	SerialNumber    string
	IssuedAt        time.Time // zero value means "now" at resolution time
}

const issueDateLayout = "02 January 2006"

var contingentWord = regexp.MustCompile(`(?i)\bcontingent\b`)

// cleanContingentName strips the literal word "contingent" so templates can
// print "SELANGOR" rather than "SELANGOR CONTINGENT".
func cleanContingentName(name string) string {
	return strings.TrimSpace(contingentWord.ReplaceAllString(name, ""))
}

// Resolve maps a placeholder key to its value on the record. The mapping is
// a closed table: unknown keys resolve to the empty string, never an error,
// so a malformed template cannot crash a batch. Values are uppercased, the
// convention for printed certificates.
func Resolve(key string, data CertificateData) string {
	key = strings.TrimSpace(strings.Trim(key, "{}"))

	var value string
	switch key {
	case "recipient_name":
		value = data.RecipientName
	case "recipient_email":
		value = data.RecipientEmail
	case "award_title":
		value = data.AwardTitle
	case "contingent_name":
		value = cleanContingentName(data.ContingentName)
	case "team_name":
		value = data.TeamName
	case "ic_number":
		value = data.ICNumber
	case "contest_code":
		value = data.ContestCode
	case "contest_name":
		value = data.ContestName
	case "institution_name":
		value = data.InstitutionName
	case "event_name":
		value = data.EventName
	case "unique_code":
		value = data.UniqueCode
	case "serial_number":
		value = data.SerialNumber
	case "issue_date":
		at := data.IssuedAt
		if at.IsZero() {
			at = time.Now()
		}
		value = at.Format(issueDateLayout)
	default:
		return ""
	}

	return strings.ToUpper(value)
}

// resolveText produces the final drawable string for an element. Static
// content passes through untouched; dynamic content is prefix + resolved
// value. An empty result means the element is skipped entirely.
func resolveText(el Element, data CertificateData) string {
	switch e := el.(type) {
	case StaticText:
		return e.Content
	case DynamicText:
		value := Resolve(e.Placeholder, data)
		if value == "" && e.Prefix == "" {
			return ""
		}
		return e.Prefix + value
	default:
		return ""
	}
}
