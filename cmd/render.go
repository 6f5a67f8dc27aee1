package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/iksnae/council-session/internal"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	idStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")).
		Italic(true)

	countStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	dateStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	folderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("135")).
			Italic(true)

	// Transcript styles
	sessionHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("212")).
				Padding(0, 1)

	sessionMetaStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("243"))

	userMessageStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("39")).
				Bold(true).
				Padding(0, 1)

	memberMessageStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("135")).
				Bold(true).
				Padding(0, 1)

	chairmanMessageStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("214")).
				Bold(true).
				Padding(0, 1)

	systemMessageStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("243")).
				Italic(true).
				Padding(0, 1)

	errorMessageStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("196")).
				Padding(0, 1)

	messageContentStyle = lipgloss.NewStyle().
				Padding(0, 2)

	timestampStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)
)

// printSessionHeader writes the title block shown above a transcript
func printSessionHeader(w io.Writer, s *internal.Session) {
	title := s.Title
	if title == "" {
		title = "Untitled"
	}
	fmt.Fprintln(w, sessionHeaderStyle.Render(title))
	meta := fmt.Sprintf("ID: %s • Mode: %s • Rounds: %d", s.ID, s.Mode(), len(s.Rounds))
	if s.CreatedAt != "" {
		meta += " • Created: " + formatCreated(s.CreatedAt)
	}
	if s.IsShared {
		meta += " • Shared"
	}
	fmt.Fprintln(w, sessionMetaStyle.Render(meta))
	fmt.Fprintln(w)
}

// printMessage renders one transcript entry
func printMessage(w io.Writer, msg internal.DisplayMessage) {
	content := strings.TrimSpace(msg.Content)

	switch msg.Kind {
	case internal.KindSystem, internal.KindVoting:
		fmt.Fprintln(w, systemMessageStyle.Render(content))
		fmt.Fprintln(w)
		return
	case internal.KindError:
		label := "Error"
		if msg.ModelName != "" {
			label = msg.ModelName + " failed"
		}
		fmt.Fprintln(w, errorMessageStyle.Render(fmt.Sprintf("✗ %s: %s", label, content)))
		fmt.Fprintln(w)
		return
	}

	var header string
	switch msg.Kind {
	case internal.KindUser:
		header = userMessageStyle.Render("You")
	case internal.KindChairman:
		header = chairmanMessageStyle.Render("Chairman")
	case internal.KindChat:
		header = memberMessageStyle.Render(msg.ModelName)
		if msg.ReplyTo != "" {
			header += timestampStyle.Render("→ " + msg.ReplyTo)
		}
	default:
		header = memberMessageStyle.Render(msg.ModelName)
	}
	if msg.LatencyMs > 0 {
		header += " " + timestampStyle.Render(fmt.Sprintf("(%.1fs)", float64(msg.LatencyMs)/1000))
	}
	if d := msg.Disagreement; d != nil && d.HasDisagreement {
		header += " " + errorMessageStyle.Render(fmt.Sprintf("disputed, mean rank %.1f", d.MeanRank))
	}
	fmt.Fprintln(w, header)

	if content == "" {
		fmt.Fprintln(w, messageContentStyle.Foreground(lipgloss.Color("240")).Render("(empty message)"))
	} else {
		fmt.Fprintln(w, messageContentStyle.Render(wrapText(content, 80)))
	}
	fmt.Fprintln(w)
}

// formatCreated shortens a server timestamp relative to now
func formatCreated(ts string) string {
	if ts == "" {
		return "—"
	}
	t, err := parseTimestamp(ts)
	if err != nil {
		if len(ts) >= 10 {
			return ts[:10]
		}
		return ts
	}
	diff := time.Since(t)
	switch {
	case diff < 24*time.Hour:
		return t.Format("Today 15:04")
	case diff < 7*24*time.Hour:
		return t.Format("Mon 15:04")
	case diff < 365*24*time.Hour:
		return t.Format("Jan 02 15:04")
	default:
		return t.Format("2006-01-02")
	}
}

// parseTimestamp accepts RFC 3339 and the zone-less ISO form the service
// emits
func parseTimestamp(ts string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
		return t, nil
	}
	return time.ParseInLocation("2006-01-02T15:04:05.999999", ts, time.UTC)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}

func wrapText(text string, width int) string {
	lines := strings.Split(text, "\n")
	var wrapped []string

	for _, line := range lines {
		if len(line) <= width {
			wrapped = append(wrapped, line)
			continue
		}

		words := strings.Fields(line)
		currentLine := ""
		for _, word := range words {
			switch {
			case currentLine == "":
				currentLine = word
			case len(currentLine)+len(word)+1 > width:
				wrapped = append(wrapped, currentLine)
				currentLine = word
			default:
				currentLine += " " + word
			}
		}
		if currentLine != "" {
			wrapped = append(wrapped, currentLine)
		}
	}

	return strings.Join(wrapped, "\n")
}
