package conversations

import (
	"fmt"
	"time"
)

// RelativeLabel buckets how long ago t was relative to now: under a minute
// "Just now", then minutes, hours and days, falling back to the calendar date
// after a week.
func RelativeLabel(t, now time.Time) string {
	age := now.Sub(t)
	switch {
	case age < time.Minute:
		return "Just now"
	case age < time.Hour:
		return fmt.Sprintf("%dm ago", int(age.Minutes()))
	case age < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(age.Hours()))
	case age < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(age.Hours()/24))
	default:
		return t.Format("Jan 2, 2006")
	}
}
