package models

import "encoding/json"

// RiskItem is one finding reported by the assessment model.
type RiskItem struct {
	Level       string `json:"level"`
	Category    string `json:"category"`
	Description string `json:"description"`
}

// AssessmentResult is the parsed output of the assessment model.
type AssessmentResult struct {
	Counts  RiskCounts
	Summary string
	// Raw is the validated JSON object returned by the model.
	Raw   json.RawMessage
	Risks []RiskItem
	Model string
}
