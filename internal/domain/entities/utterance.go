package entities

import (
	"time"

	"github.com/google/uuid"
)

// SilenceSpeaker is the reserved speaker id of synthetic SilentSlot utterances
const SilenceSpeaker = "__silence__"

// SpeakerRole is the classified role of a speaker
type SpeakerRole string

const (
	SpeakerRoleAdult SpeakerRole = "adult"
	SpeakerRoleChild SpeakerRole = "child"
)

// Utterance is one contiguous speech segment of one speaker within a recording
type Utterance struct {
	ID            uuid.UUID     `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	RecordingID   uuid.UUID     `json:"recording_id" gorm:"type:uuid;not null;index:idx_utterances_recording_order,priority:1"`
	Speaker       string        `json:"speaker" gorm:"type:varchar(50);not null"`
	Text          string        `json:"text" gorm:"type:text;not null;default:''"`
	StartTime     float64       `json:"start_time" gorm:"not null"`
	EndTime       float64       `json:"end_time" gorm:"not null"`
	Order         int           `json:"order" gorm:"column:order_index;not null;index:idx_utterances_recording_order,priority:2"`
	Role          *SpeakerRole  `json:"role,omitempty" gorm:"type:varchar(10)"`
	Tag           *BehaviorCode `json:"tag,omitempty" gorm:"type:varchar(8)"`
	SimplifiedTag *string       `json:"simplified_tag,omitempty" gorm:"type:varchar(20)"`
	Feedback      *string       `json:"feedback,omitempty" gorm:"type:text"`
	CreatedAt     time.Time     `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt     time.Time     `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (Utterance) TableName() string {
	return "utterances"
}

// IsSilence reports whether this is a synthetic SilentSlot
func (u *Utterance) IsSilence() bool {
	return u.Speaker == SilenceSpeaker
}

// IsAdult reports whether the role classifier labelled the speaker as an adult
func (u *Utterance) IsAdult() bool {
	return u.Role != nil && *u.Role == SpeakerRoleAdult
}

// Duration returns the segment length in seconds
func (u *Utterance) Duration() float64 {
	return u.EndTime - u.StartTime
}

// ApplyCode writes a behavioral code and its coaching feedback onto the utterance
func (u *Utterance) ApplyCode(code BehaviorCode, feedback string) {
	c := code
	simplified := code.Simplified()
	u.Tag = &c
	u.SimplifiedTag = &simplified
	if feedback != "" {
		u.Feedback = &feedback
	} else {
		u.Feedback = nil
	}
}

// ClearCoding drops role-dependent fields before a fresh coding pass
func (u *Utterance) ClearCoding() {
	u.Tag = nil
	u.SimplifiedTag = nil
	u.Feedback = nil
}
