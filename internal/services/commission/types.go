package commission

// Breakdown is the priced view of one payment, in XAF.
type Breakdown struct {
	BaseAmount       int64   `json:"baseAmount"`
	CommissionAmount int64   `json:"commissionAmount"`
	TotalAmount      int64   `json:"totalAmount"`
	CommissionRate   float64 `json:"commissionRate"`
	FeePayer         string  `json:"feePayer"`
	Currency         string  `json:"currency"`
}

// NetAmount is what the merchant balance gains on success.
func (b *Breakdown) NetAmount() int64 {
	return b.BaseAmount - b.CommissionAmount
}
