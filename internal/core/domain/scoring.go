package domain

// RiskLevel maps an Umbrella Investigate risk score (0-100) to the label shown
// on cards. This is a pure domain function with no I/O dependencies.
func RiskLevel(score int) string {
	switch {
	case score >= 90:
		return "critical"
	case score >= 70:
		return "high"
	case score >= 40:
		return "medium"
	case score > 0:
		return "low"
	default:
		return "none"
	}
}

// DomainStatusLabel maps Investigate's categorization status.
func DomainStatusLabel(status int) string {
	switch status {
	case -1:
		return "Malicious"
	case 1:
		return "Benign"
	default:
		return "Unclassified"
	}
}
