package models

// PaymentRedirect carries the gateway parameters the client needs to finish
// an online payment (redirect / client-side confirmation).
type PaymentRedirect struct {
	PaymentIntentID string  `json:"paymentIntentId"`
	ClientSecret    string  `json:"clientSecret"`
	Amount          float64 `json:"amount"`
	Currency        string  `json:"currency"`
}
