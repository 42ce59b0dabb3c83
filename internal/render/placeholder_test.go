package render

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func sampleData() CertificateData {
	return CertificateData{
		RecipientName:   "Nur Aisyah binti Ahmad",
		RecipientEmail:  "aisyah@example.com",
		AwardTitle:      "Gold Medal",
		ContingentName:  "Selangor Contingent",
		TeamName:        "Team Cyclotron",
		ICNumber:        "050214-10-1234",
		ContestCode:     "RBT01",
		ContestName:     "Robotics Challenge",
		InstitutionName: "SMK Bandar Utama",
		EventName:       "National Finals",
		UniqueCode:      "CERT-1700000000000-AB12CD34",
		SerialNumber:    "CT25/PART/T5/000042",
		IssuedAt:        time.Date(2025, 8, 14, 10, 0, 0, 0, time.UTC),
	}
}

func TestResolveKnownKeys(t *testing.T) {
	data := sampleData()

	cases := map[string]string{
		"recipient_name":   "NUR AISYAH BINTI AHMAD",
		"recipient_email":  "AISYAH@EXAMPLE.COM",
		"award_title":      "GOLD MEDAL",
		"team_name":        "TEAM CYCLOTRON",
		"ic_number":        "050214-10-1234",
		"contest_code":     "RBT01",
		"contest_name":     "ROBOTICS CHALLENGE",
		"institution_name": "SMK BANDAR UTAMA",
		"event_name":       "NATIONAL FINALS",
		"unique_code":      "CERT-1700000000000-AB12CD34",
		"serial_number":    "CT25/PART/T5/000042",
		"issue_date":       "14 AUGUST 2025",
	}

	for key, want := range cases {
		assert.Equal(t, want, Resolve(key, data), "key %q", key)
	}
}

func TestResolveStripsContingentWord(t *testing.T) {
	data := sampleData()
	assert.Equal(t, "SELANGOR", Resolve("contingent_name", data))

	data.ContingentName = "Contingent Perak"
	assert.Equal(t, "PERAK", Resolve("contingent_name", data))

	// Only the whole word is stripped.
	data.ContingentName = "Contingental"
	assert.Equal(t, "CONTINGENTAL", Resolve("contingent_name", data))
}

func TestResolveUnknownKeyFallsBackToEmpty(t *testing.T) {
	data := sampleData()
	assert.Equal(t, "", Resolve("nonexistent_key", data))
	assert.Equal(t, "", Resolve("", data))
	assert.Equal(t, "", Resolve("RECIPIENT_NAME", data)) // keys are case-sensitive

	// An empty record resolves everything known to empty, never panics.
	assert.Equal(t, "", Resolve("recipient_name", CertificateData{}))
	assert.Equal(t, "", Resolve("award_title", CertificateData{}))
}

func TestResolveTrimsBraces(t *testing.T) {
	data := sampleData()
	assert.Equal(t, "TEAM CYCLOTRON", Resolve("{{team_name}}", data))
	assert.Equal(t, "TEAM CYCLOTRON", Resolve(" team_name ", data))
}

func TestResolveIssueDateDefaultsToNow(t *testing.T) {
	data := sampleData()
	data.IssuedAt = time.Time{}

	got := Resolve("issue_date", data)
	want := time.Now().Format(issueDateLayout)
	assert.Equal(t, want, got, "unissued certificates stamp today's date")

	// Sanity: the format is a long date, all caps.
	assert.NotContains(t, got, "/")
}

func TestResolveTextDynamicPrefix(t *testing.T) {
	data := sampleData()

	el := DynamicText{Placeholder: "serial_number", Prefix: "No: "}
	assert.Equal(t, "No: CT25/PART/T5/000042", resolveText(el, data))

	// Prefix alone still draws when the value is empty.
	el = DynamicText{Placeholder: "award_title", Prefix: "Award: "}
	assert.Equal(t, "Award: GOLD MEDAL", resolveText(el, data))
	data.AwardTitle = ""
	assert.Equal(t, "Award: ", resolveText(el, data))

	// No prefix and no value means the element is skipped.
	el = DynamicText{Placeholder: "award_title"}
	assert.Equal(t, "", resolveText(el, data))
}

func TestResolveTextStatic(t *testing.T) {
	el := StaticText{Content: "This is to certify that"}
	assert.Equal(t, "This is to certify that", resolveText(el, CertificateData{}))

	assert.Equal(t, "", resolveText(StaticText{}, CertificateData{}))
}
