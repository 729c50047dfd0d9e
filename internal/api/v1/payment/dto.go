package payment

import "github.com/openwork-hackathon/team-clawctor/internal/models"

type AuthorizeRequest struct {
	// PaymentRef is the caller's settlement reference, e.g. an on-chain transaction hash.
	PaymentRef string  `json:"payment_ref" binding:"required,max=256"`
	Amount     float64 `json:"amount" binding:"required,gt=0"`
}

type AuthorizeResponse struct {
	TaskID       string              `json:"task_id"`
	ReportStatus models.ReportStatus `json:"report_status"`
}
