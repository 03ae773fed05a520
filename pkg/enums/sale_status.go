package enums

// SaleStatus tracks the lifecycle of a sale. A sale is minted pending and
// settles exactly once into success or failed; both are terminal.
type SaleStatus string

const (
	SaleStatusPending SaleStatus = "pending"
	SaleStatusSuccess SaleStatus = "success"
	SaleStatusFailed  SaleStatus = "failed"
)

// String implements fmt.Stringer.
func (s SaleStatus) String() string {
	return string(s)
}

// IsTerminal reports whether the status admits no further transition.
func (s SaleStatus) IsTerminal() bool {
	return s == SaleStatusSuccess || s == SaleStatusFailed
}
