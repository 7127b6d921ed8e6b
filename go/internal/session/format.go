package session

import "fmt"

// Urgency classifies remaining time for presentation.
type Urgency int

const (
	UrgencyNormal Urgency = iota
	UrgencyWarning
	UrgencyCritical
)

func (u Urgency) String() string {
	switch u {
	case UrgencyCritical:
		return "critical"
	case UrgencyWarning:
		return "warning"
	default:
		return "normal"
	}
}

// UrgencyFor returns Critical at 10 seconds or less, Warning up to 30
// seconds and Normal above that.
func UrgencyFor(seconds int) Urgency {
	switch {
	case seconds <= 10:
		return UrgencyCritical
	case seconds <= 30:
		return UrgencyWarning
	default:
		return UrgencyNormal
	}
}

// FormatTime renders seconds as MM:SS. Minutes are not capped at 59.
// Negative values are rendered as -MM:SS.
func FormatTime(seconds int) string {
	sign := ""
	if seconds < 0 {
		sign = "-"
		seconds = -seconds
	}
	return fmt.Sprintf("%s%02d:%02d", sign, seconds/60, seconds%60)
}

// PreviewTotal is the total session length for a setup.
func PreviewTotal(totalQuestions, secondsPerQuestion int) int {
	return totalQuestions * secondsPerQuestion
}
