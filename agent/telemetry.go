package agent

import "fmt"

// FormatTelemetry renders the per-tick status line.
func FormatTelemetry(s EpisodeState) string {
	return fmt.Sprintf("Episode: %d | Steps: %d | Reward: %.2f", s.EpisodeID, s.StepCount, s.CumulativeReward)
}
