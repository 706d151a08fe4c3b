// Package output provides formatters for CLI output.
package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"

	"wip/internal/service"
)

// FormatTask formats a pending task line.
// Format: "{N:>4}  {BODY}\n" (4-wide right-aligned number, two spaces, body)
func FormatTask(w io.Writer, num int, task service.PendingTask) {
	fmt.Fprintf(w, "%4d  %s\n", num, normalizeBody(task.Body))
}

// FormatProducts prints one product per row: name, then URL.
func FormatProducts(w io.Writer, products []service.Product) {
	table := uitable.New()
	table.Separator = "  "
	for _, p := range products {
		name := p.Name
		if strings.TrimSpace(name) == "" {
			name = "(untitled)"
		}
		table.AddRow(name, p.URL)
	}
	fmt.Fprintln(w, table)
}

// FormatViewer prints the viewer summary the tray menu used to show.
func FormatViewer(w io.Writer, snap service.ViewerSnapshot, now time.Time) {
	table := uitable.New()
	table.Separator = "  "

	user := "@" + snap.Username
	if snap.FirstName != "" {
		user += " (" + snap.FirstName + ")"
	}
	table.AddRow("User:", user)

	if snap.Streaking {
		table.AddRow("Today:", color.GreenString("You shipped today."))
	} else {
		table.AddRow("Time left:", color.YellowString(TimeLeft(now)))
	}
	table.AddRow("Current streak:", snap.CurrentStreak)
	table.AddRow("Best streak:", snap.BestStreak)
	table.AddRow("Completed:", snap.CompletedTodos)
	fmt.Fprintln(w, table)
}

// FormatCycle prints one line per scheduled refresh.
func FormatCycle(w io.Writer, at time.Time, snap service.ViewerSnapshot, err error) {
	stamp := at.Format("15:04")
	if err != nil {
		fmt.Fprintf(w, "%s  %s  %v\n", stamp, color.RedString("error"), err)
		return
	}
	state := color.YellowString("todo")
	if snap.Streaking {
		state = color.GreenString("done")
	}
	fmt.Fprintf(w, "%s  %s  streak %d (best %d)\n", stamp, state, snap.CurrentStreak, snap.BestStreak)
}

// TimeLeft returns the time until the next UTC midnight, when the
// day's streak closes, as "H hours, M minutes".
func TimeLeft(now time.Time) string {
	now = now.UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, time.UTC)
	minutes := int(midnight.Sub(now) / time.Minute)
	hours := minutes / 60 % 24
	minutes %= 60
	return fmt.Sprintf("%d %s, %d %s", hours, plural(hours, "hour"), minutes, plural(minutes, "minute"))
}

func plural(n int, unit string) string {
	if n == 1 {
		return unit
	}
	return unit + "s"
}

// normalizeBody normalizes a task body for display.
// - Empty or whitespace-only bodies become "(untitled)"
// - Newlines are replaced with spaces
func normalizeBody(body string) string {
	body = strings.ReplaceAll(body, "\r", " ")
	body = strings.ReplaceAll(body, "\n", " ")

	if strings.TrimSpace(body) == "" {
		return "(untitled)"
	}
	return body
}
