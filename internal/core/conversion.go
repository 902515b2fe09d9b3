package core

import "time"

// ConversionRequest asks for the EUR value of one line item revision.
type ConversionRequest struct {
	DraftID     string    `json:"draftId"`
	Category    Category  `json:"category"`
	ItemID      string    `json:"itemId"`
	Revision    int64     `json:"revision"`
	Amount      float64   `json:"amount"`
	Currency    string    `json:"currency"`
	RequestedAt time.Time `json:"requestedAt"`
}

// ConversionResult carries a resolved conversion back to the draft. It is
// applied only while the item still has the same revision.
type ConversionResult struct {
	DraftID   string   `json:"draftId"`
	Category  Category `json:"category"`
	ItemID    string   `json:"itemId"`
	Revision  int64    `json:"revision"`
	AmountEUR float64  `json:"amountEUR"`
	Rate      float64  `json:"exchangeRate"`
	RateDate  string   `json:"rateDate,omitempty"`
}

// Key identifies the item the request belongs to, independent of revision.
func (r ConversionRequest) Key() string {
	return r.DraftID + "/" + string(r.Category) + "/" + r.ItemID
}
