package certificates

import (
	"time"
)

// Certificate lifecycle status
const (
	StatusDraft      = "DRAFT"
	StatusReady      = "READY"
	StatusSent       = "SENT"
	StatusDownloaded = "DOWNLOADED"
)

// Certificate is one rendered instance of a template for a recipient.
// Identity for regeneration is (TemplateID, ICNumber): regenerating keeps
// UniqueCode and SerialNumber and replaces only content and file reference.
// The core never deletes certificates.
type Certificate struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	TemplateID     uint       `gorm:"not null;index:idx_cert_identity" json:"template_id"`
	RecipientID    uint       `gorm:"index" json:"recipient_id"`
	RecipientName  string     `gorm:"not null" json:"recipient_name"`
	RecipientEmail string     `json:"recipient_email"`
	ICNumber       string     `gorm:"column:ic_number;index:idx_cert_identity" json:"ic_number"`
	ContingentName string     `json:"contingent_name"`
	TeamName       string     `json:"team_name"`
	ContestName    string     `json:"contest_name"`
	StateName      string     `json:"state_name"`
	AwardTitle     *string    `json:"award_title"`
	UniqueCode     string     `gorm:"uniqueIndex;not null" json:"unique_code"`
	SerialNumber   *string    `json:"serial_number"`
	Status         string     `gorm:"not null;default:'DRAFT'" json:"status"`
	FilePath       string     `json:"file_path"`
	IssuedAt       *time.Time `json:"issued_at"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func (Certificate) TableName() string {
	return "certificates"
}

// SerialCounter holds the last allocated sequence for one
// (template, target type, year) scope. Mutated only inside the allocator's
// transaction.
type SerialCounter struct {
	ID           uint      `gorm:"primaryKey"`
	TemplateID   uint      `gorm:"not null;uniqueIndex:idx_serial_scope"`
	TargetType   string    `gorm:"not null;uniqueIndex:idx_serial_scope"`
	Year         int       `gorm:"not null;uniqueIndex:idx_serial_scope"`
	LastSequence int64     `gorm:"not null;default:0"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (SerialCounter) TableName() string {
	return "certificate_serials"
}

// BatchError records one recipient's failure inside a batch.
type BatchError struct {
	RecipientID uint   `json:"recipient_id"`
	Message     string `json:"message"`
}

// BatchResult aggregates one batch invocation. It is returned to the caller
// and never persisted. Generated counts new certificates, Updated counts
// regenerations.
type BatchResult struct {
	Generated int          `json:"generated"`
	Updated   int          `json:"updated"`
	Failed    int          `json:"failed"`
	Errors    []BatchError `json:"errors,omitempty"`
}

// Succeeded reports how many recipients completed.
func (r *BatchResult) Succeeded() int {
	return r.Generated + r.Updated
}
