package disease

const (
	highBookingProbability   = 0.30
	mediumBookingProbability = 0.60
)

// ShouldBook reports whether an in-person visit is recommended.
func ShouldBook(severity Severity, probability float64) bool {
	switch severity {
	case High:
		return probability >= highBookingProbability
	case Medium:
		return probability >= mediumBookingProbability
	default:
		return false
	}
}
