package session

import (
	"fmt"
	"strings"

	"github.com/timez-app/timez/go/internal/models"
)

// Report renders the plain-text results summary meant for sharing.
func Report(state models.SessionState) string {
	stats := ComputeStats(state.Records)

	var b strings.Builder
	b.WriteString("TimeZ Session Results\n\n")
	fmt.Fprintf(&b, "Total Questions: %d\n", state.TotalQuestions)
	fmt.Fprintf(&b, "Completed: %d\n", stats.CompletedCount)
	fmt.Fprintf(&b, "Skipped: %d\n", stats.SkippedCount)
	fmt.Fprintf(&b, "Timeout: %d\n", stats.TimeoutCount)
	fmt.Fprintf(&b, "Total Time: %s\n", FormatTime(stats.TotalTimeSpent))
	if stats.PendingCount > 0 {
		fmt.Fprintf(&b, "Unanswered: %d\n", stats.PendingCount)
	}
	b.WriteString("\nGenerated by TimeZ - Study Timer\n")
	return b.String()
}
