package daterange

import "time"

const layoutISO = "2006-01-02"

// Window is an inclusive date interval handed to one scrape job.
type Window struct {
	Start time.Time
	End   time.Time
}

func Parse(s string) (time.Time, error) {
	return time.Parse(layoutISO, s)
}

func Format(t time.Time) string {
	return t.Format(layoutISO)
}

// Forward splits [start, end] into contiguous windows of spanDays,
// oldest first, with the remainder as the final window. A span wider
// than the interval yields a single window.
func Forward(start, end time.Time, spanDays int) []Window {
	if spanDays < 1 {
		spanDays = 1
	}
	var windows []Window
	cur := start
	stop := end.AddDate(0, 0, -spanDays)
	for cur.Before(stop) {
		next := cur.AddDate(0, 0, spanDays)
		windows = append(windows, Window{Start: cur, End: next})
		cur = next.AddDate(0, 0, 1)
	}
	return append(windows, Window{Start: cur, End: end})
}

// Backward mirrors Forward starting from the newest dates.
func Backward(start, end time.Time, spanDays int) []Window {
	if spanDays < 1 {
		spanDays = 1
	}
	var windows []Window
	cur := end
	stop := start.AddDate(0, 0, spanDays)
	for cur.After(stop) {
		prev := cur.AddDate(0, 0, -spanDays)
		windows = append(windows, Window{Start: prev, End: cur})
		cur = prev.AddDate(0, 0, -1)
	}
	return append(windows, Window{Start: start, End: cur})
}

// Split picks the direction; anything other than "forward" walks backward.
func Split(direction string, start, end time.Time, spanDays int) []Window {
	if direction == "forward" {
		return Forward(start, end, spanDays)
	}
	return Backward(start, end, spanDays)
}
