package recipients

import "time"

// Recipient is the flat display-data record the batch orchestrator hands to
// the renderer. Upstream registration systems populate it; the certificate
// core only reads. Absent fields stay empty strings so placeholder
// resolution degrades to blank text instead of failing.
type Recipient struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	Name            string    `gorm:"not null" json:"name"`
	Email           string    `json:"email"`
	ICNumber        string    `gorm:"column:ic_number;index" json:"ic_number"`
	ContingentName  string    `json:"contingent_name"`
	TeamName        string    `json:"team_name"`
	ContestCode     string    `json:"contest_code"`
	ContestName     string    `json:"contest_name"`
	InstitutionName string    `json:"institution_name"`
	StateName       string    `json:"state_name"`
	EventName       string    `json:"event_name"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (Recipient) TableName() string {
	return "recipients"
}
