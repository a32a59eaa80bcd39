package domain

// PaymentConfirmation is the card processor callback payload.
type PaymentConfirmation struct {
	Succeeded     bool                `json:"succeeded"`
	TransactionID string              `json:"transaction_id"`
	Amount        float64             `json:"amount"`
	Method        string              `json:"method"`
	Error         *PaymentFailureInfo `json:"error,omitempty"`
}

type PaymentFailureInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
