package session

import "github.com/timez-app/timez/go/internal/models"

// ComputeStats derives aggregate figures from a list of records. Pending
// records only count towards PendingCount.
func ComputeStats(records []models.QuestionRecord) models.SessionStats {
	var stats models.SessionStats
	for _, r := range records {
		stats.ExtensionsGranted += r.ExtensionsGranted
		switch r.Status {
		case models.QuestionStatusDone:
			stats.CompletedCount++
		case models.QuestionStatusSkipped:
			stats.SkippedCount++
		case models.QuestionStatusTimedOut:
			stats.TimeoutCount++
		default:
			stats.PendingCount++
			continue
		}
		stats.TotalTimeSpent += r.TimeSpentSeconds
	}
	return stats
}
