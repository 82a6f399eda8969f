package api

import "time"

type AdvisorySection struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Type    string `json:"type"`
}

type AdvisoryReport struct {
	Id            string            `json:"id"`
	ClinicId      string            `json:"clinic_id"`
	TriggerType   string            `json:"trigger_type"`
	ResponseCount int               `json:"response_count"`
	Sections      []AdvisorySection `json:"sections"`
	Summary       string            `json:"summary"`
	Priority      *int              `json:"priority,omitempty"`
	GeneratedAt   time.Time         `json:"generated_at"`
}

type AdvisoryProgress struct {
	Current             int             `json:"current"`
	Threshold           int             `json:"threshold"`
	Percentage          int             `json:"percentage"`
	TotalResponses      int             `json:"total_responses"`
	CanGenerate         bool            `json:"can_generate"`
	DaysSinceLastReport *int            `json:"days_since_last_report,omitempty"`
	LastReport          *AdvisoryReport `json:"last_report,omitempty"`
}

type ResponseEvent struct {
	ThresholdCrossed bool `json:"threshold_crossed"`
}

type Error struct {
	Error string `json:"error"`
}
