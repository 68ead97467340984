package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/iliyamo/auditorium-netlock/internal/reconciler"
)

var (
	onStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#22C55E")).Bold(true)
	offStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#6C7086"))
	headerStyle = lipgloss.NewStyle().Bold(true).Underline(true)
)

// renderRooms writes one line per room.  Cells are padded before styling so
// colour codes do not break the columns.
func renderRooms(w io.Writer, rooms []reconciler.Room) {
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("%-6s %-12s %-4s %-22s %-10s %s", "ROOM", "LABEL", "NET", "UNLOCK AT (UTC)", "REMAINING", "REASON")))
	for _, r := range rooms {
		state := onStyle.Render(fmt.Sprintf("%-4s", "on"))
		if !r.Enabled {
			state = offStyle.Render(fmt.Sprintf("%-4s", "off"))
		}
		until, left := "-", "-"
		switch {
		case r.UnlockAt != nil:
			until = r.UnlockAt.UTC().Format(time.RFC3339)
			left = formatRemaining(r.Remaining)
		case !r.Enabled:
			until, left = "indefinite", "∞"
		}
		label := r.Label
		if r.Predicted {
			label += " *"
		}
		fmt.Fprintf(w, "%-6d %-12s %s %-22s %-10s %s\n", r.RoomID, truncate(label, 12), state, until, left, r.Reason)
	}
}

func formatRemaining(d time.Duration) string {
	if d <= 0 {
		return "0s"
	}
	d = d.Round(time.Second)
	h := int(d / time.Hour)
	m := int(d % time.Hour / time.Minute)
	s := int(d % time.Minute / time.Second)
	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm%02ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n-1])) + "…"
}
