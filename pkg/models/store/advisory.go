package store

import "time"

type AdvisoryState struct {
	ClinicID           string
	ResponsesSinceLast int
	Threshold          int
	TotalResponses     int
	LastGeneratedAt    *time.Time
}

// Section is the JSON shape persisted inside advisory_reports.sections.
type Section struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Type    string `json:"type"`
}

type AdvisoryReport struct {
	ID            string
	ClinicID      string
	TriggerType   string
	ResponseCount int
	Sections      []Section
	Summary       string
	Priority      *int
	GeneratedAt   time.Time
}
