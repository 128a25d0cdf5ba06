package dto

// ImportSummary reports the outcome of one spreadsheet ingestion.
type ImportSummary struct {
	ExamsCreated int      `json:"examsCreated"`
	StaffCreated int      `json:"staffCreated"`
	Skipped      []string `json:"skipped,omitempty"`
}
