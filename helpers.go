package main

import (
	"fmt"
	"time"
)

// formatDuration renders d coarsely, like "3 seconds" or "1.5 hours".
func formatDuration(d time.Duration) string {
	switch {
	case d < time.Minute*2:
		return fmt.Sprintf("%0.f seconds", d.Seconds())
	case d < time.Hour*2:
		return fmt.Sprintf("%0.f minutes", d.Minutes())
	case d < time.Hour*48:
		return fmt.Sprintf("%0.1f hours", d.Hours())
	default:
		return fmt.Sprintf("%0.f days", d.Hours()/24)
	}
}
