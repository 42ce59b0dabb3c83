package templates

import (
	"time"

	"gorm.io/datatypes"
)

// Template lifecycle status
const (
	StatusActive   = "ACTIVE"
	StatusInactive = "INACTIVE"
)

// Target types scope serial numbering to an audience category.
const (
	TargetGeneral               = "GENERAL"
	TargetEventParticipant      = "EVENT_PARTICIPANT"
	TargetEventWinner           = "EVENT_WINNER"
	TargetNonContestParticipant = "NON_CONTEST_PARTICIPANT"
	TargetQuizParticipant       = "QUIZ_PARTICIPANT"
	TargetQuizWinner            = "QUIZ_WINNER"
)

// ValidTargetTypes enumerates every accepted target type.
var ValidTargetTypes = []string{
	TargetGeneral,
	TargetEventParticipant,
	TargetEventWinner,
	TargetNonContestParticipant,
	TargetQuizParticipant,
	TargetQuizWinner,
}

// CertTemplate is a reusable layout plus base-document definition. The
// rendering core never mutates it; operators create and edit templates
// through the handler.
type CertTemplate struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	TemplateName  string         `gorm:"not null" json:"template_name"`
	BasePDFPath   string         `gorm:"not null" json:"base_pdf_path"`
	Configuration datatypes.JSON `json:"configuration"`
	TargetType    string         `gorm:"not null;default:'GENERAL'" json:"target_type"`
	Status        string         `gorm:"not null;default:'ACTIVE'" json:"status"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

func (CertTemplate) TableName() string {
	return "cert_templates"
}
