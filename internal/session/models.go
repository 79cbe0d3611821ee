// internal/session/models.go

package session

import (
	"github.com/weekender/weekender-bot/internal/notification"
	"github.com/weekender/weekender-bot/internal/profile"
)

// Step is where a user is inside a multi-message dialog
type Step string

const (
	StepIdle Step = ""

	// Questionnaire
	StepAge        Step = "age"
	StepGender     Step = "gender"
	StepStatus     Step = "status"
	StepTarget     Step = "target"
	StepDistrict   Step = "district"
	StepProfession Step = "profession"
	StepAbout      Step = "about"
	StepInterests  Step = "interests"

	// Residents
	StepFindUser  Step = "find_user"
	StepAgeRanges Step = "age_ranges"

	// Support
	StepSupport      Step = "support"
	StepSupportReply Step = "support_reply"

	// Admin mailing
	StepMailingAge      Step = "mailing_age"
	StepMailingDistrict Step = "mailing_district"
	StepMailingTarget   Step = "mailing_target"
	StepMailingGender   Step = "mailing_gender"
	StepMailingText     Step = "mailing_text"
	StepMailingPreview  Step = "mailing_preview"
)

// EditMode narrows which questionnaire answers are saved
type EditMode string

const (
	EditFull          EditMode = ""
	EditOnlyInterests EditMode = "only_interests"
)

// MailingDraft is an admin mailing being composed
type MailingDraft struct {
	Segment notification.Segment `json:"segment"`
	Mailing notification.Mailing `json:"mailing"`
}

// State is everything the bot remembers between messages of one user
type State struct {
	Step          Step          `json:"step"`
	Draft         profile.Draft `json:"draft"`
	EditMode      EditMode      `json:"edit_mode,omitempty"`
	AgeRanges     []string      `json:"age_ranges,omitempty"`
	Mailing       *MailingDraft `json:"mailing,omitempty"`
	ReplyTicketID int64         `json:"reply_ticket_id,omitempty"`
}

// Reset returns the state to idle, keeping nothing
func (s *State) Reset() {
	*s = State{}
}
