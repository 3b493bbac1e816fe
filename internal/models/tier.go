package models

// RefundPolicy describes when a tier deposit becomes refundable.
// A nil policy means the deposit is never refundable.
type RefundPolicy struct {
	MeetupsRequired int `json:"meetups_required" yaml:"meetups_required"`
	MonthsRequired  int `json:"months_required" yaml:"months_required"`
}

type Tier struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	DepositAmount int64         `json:"deposit_amount"`
	Benefits      []string      `json:"benefits"`
	RefundPolicy  *RefundPolicy `json:"refund_policy,omitempty"`
}

// Refundable reports whether the tier carries any refund policy.
func (t Tier) Refundable() bool {
	return t.RefundPolicy != nil
}
