package model

import "time"

// Survey keys submitted by the survey form.
const (
	SurveyHairType       = "hairType"
	SurveyHairTexture    = "hairTexture"
	SurveyPorosity       = "porosity"
	SurveyScalpCondition = "scalpCondition"
	SurveyProductUse     = "productUse"
	SurveyStylingHabits  = "stylingHabits"
	SurveyHairGoals      = "hairGoals"
	SurveyLifestyle      = "lifestyle"
)

// SurveyKeys lists the known survey questions in form order.
var SurveyKeys = []string{
	SurveyHairType,
	SurveyHairTexture,
	SurveyPorosity,
	SurveyScalpCondition,
	SurveyProductUse,
	SurveyStylingHabits,
	SurveyHairGoals,
	SurveyLifestyle,
}

// Survey maps a question key to the user's free-text answer.
// Answers are not validated; unknown keys are kept as submitted.
type Survey map[string]string

// Get returns the answer for key, or "" when it was not supplied.
func (s Survey) Get(key string) string {
	if s == nil {
		return ""
	}
	return s[key]
}

// Resource is a reference recommended alongside a care plan.
type Resource struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// CarePlan is the normalized output of the generative model.
//
// Either the plan fields are populated, or Error and RawResponse describe why
// generation failed. Ingredients and Instructions come from the same source
// list: every name in Ingredients is a key in Instructions.
type CarePlan struct {
	Ingredients   []string          `json:"ingredients,omitempty"`
	Instructions  map[string]string `json:"instructions,omitempty"`
	WashFrequency string            `json:"washFrequency,omitempty"`
	Tips          []string          `json:"tips,omitempty"`
	Resources     []Resource        `json:"resources,omitempty"`

	Error       string `json:"error,omitempty"`
	RawResponse string `json:"rawResponse,omitempty"`
}

// IsError reports whether the plan is the error variant.
func (p *CarePlan) IsError() bool {
	return p.Error != ""
}

// Instruction returns the usage text for an ingredient, or fallback when none is recorded.
func (p *CarePlan) Instruction(name, fallback string) string {
	if text, ok := p.Instructions[name]; ok && text != "" {
		return text
	}
	return fallback
}

// CarePlanRecord is a stored care plan generated from one survey submission.
type CarePlanRecord struct {
	ID               string     `json:"id"`
	UserID           string     `json:"user_id"`
	SurveyData       Survey     `json:"survey_data"`
	CarePlan         CarePlan   `json:"care_plan"`
	CreatedAt        time.Time  `json:"created_at"`
	LastReminderSent *time.Time `json:"last_reminder_sent,omitempty"`
}

// ReminderAnchor returns the time the next reminder is measured from:
// the last reminder if one was sent, otherwise the creation time.
func (r *CarePlanRecord) ReminderAnchor() time.Time {
	if r.LastReminderSent != nil {
		return *r.LastReminderSent
	}
	return r.CreatedAt
}

// PlanWithUser is a care plan joined with its owner.
// User is nil when the owning row no longer exists.
type PlanWithUser struct {
	Record *CarePlanRecord
	User   *User
}

// ProgressEntry is one step of a user's hair-care progress log.
type ProgressEntry struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Step      int       `json:"step"`
	Title     string    `json:"title"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
