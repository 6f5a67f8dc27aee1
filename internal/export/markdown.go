package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/iksnae/council-session/internal"
)

// MarkdownExporter exports transcripts in Markdown format
type MarkdownExporter struct{}

// Export exports a transcript to Markdown format
func (e *MarkdownExporter) Export(t *internal.Transcript, w io.Writer) error {
	s := t.Session
	title := s.Title
	if title == "" {
		title = "Session " + s.ID
	}
	_, _ = fmt.Fprintf(w, "# %s\n\n", title)

	_, _ = fmt.Fprintf(w, "**Session:** %s  \n", s.ID)
	_, _ = fmt.Fprintf(w, "**Mode:** %s  \n", s.Mode())
	if s.CreatedAt != "" {
		_, _ = fmt.Fprintf(w, "**Created:** %s  \n", s.CreatedAt)
	}
	_, _ = fmt.Fprintf(w, "**Rounds:** %d\n\n", len(s.Rounds))

	_, _ = fmt.Fprintf(w, "---\n\n")

	for _, msg := range t.Messages {
		writeMessage(w, msg)
	}

	return nil
}

func writeMessage(w io.Writer, msg internal.DisplayMessage) {
	content := escapeMarkdown(msg.Content)
	switch msg.Kind {
	case internal.KindUser:
		_, _ = fmt.Fprintf(w, "## Question\n\n%s\n\n", content)
	case internal.KindSystem:
		_, _ = fmt.Fprintf(w, "_%s_\n\n", msg.Content)
	case internal.KindCouncil:
		_, _ = fmt.Fprintf(w, "### %s%s\n\n%s\n\n", msg.ModelName, latency(msg), content)
		if d := msg.Disagreement; d != nil && d.HasDisagreement {
			_, _ = fmt.Fprintf(w, "> Reviewers disagreed on this response (mean rank %.2f, score %.2f)\n\n", d.MeanRank, d.DisagreementScore)
		}
	case internal.KindChat:
		speaker := msg.ModelName
		if msg.ReplyTo != "" {
			speaker += " → " + msg.ReplyTo
		}
		_, _ = fmt.Fprintf(w, "**%s:**%s\n\n%s\n\n", speaker, latency(msg), content)
	case internal.KindVoting:
		_, _ = fmt.Fprintf(w, "### Peer review\n\n%s\n\n", msg.Content)
		for _, r := range msg.Reviews {
			ranks := make([]string, 0, len(r.Rankings))
			for _, rk := range r.Rankings {
				ranks = append(ranks, fmt.Sprintf("#%d→%d", rk.ResponseNum, rk.Rank))
			}
			_, _ = fmt.Fprintf(w, "- %s: %s\n", r.ReviewerModel, strings.Join(ranks, ", "))
		}
		if len(msg.Reviews) > 0 {
			_, _ = fmt.Fprintln(w)
		}
	case internal.KindChairman:
		_, _ = fmt.Fprintf(w, "### Chairman\n\n%s\n\n", content)
	case internal.KindError:
		label := "Error"
		if msg.ModelName != "" {
			label = msg.ModelName + " failed"
		}
		_, _ = fmt.Fprintf(w, "> **%s:** %s\n\n", label, msg.Content)
	}
}

func latency(msg internal.DisplayMessage) string {
	if msg.LatencyMs <= 0 {
		return ""
	}
	return fmt.Sprintf(" (%.1fs)", float64(msg.LatencyMs)/1000)
}

// escapeMarkdown escapes markdown special characters
func escapeMarkdown(text string) string {
	// Basic escaping - preserve code blocks
	lines := strings.Split(text, "\n")
	var result []string
	inCodeBlock := false

	for _, line := range lines {
		if strings.HasPrefix(line, "```") {
			inCodeBlock = !inCodeBlock
			result = append(result, line)
		} else if inCodeBlock {
			result = append(result, line)
		} else {
			// Escape markdown syntax outside code blocks
			line = strings.ReplaceAll(line, "**", "\\*\\*")
			line = strings.ReplaceAll(line, "__", "\\_\\_")
			result = append(result, line)
		}
	}

	return strings.Join(result, "\n")
}

// Extension returns the file extension for this format
func (e *MarkdownExporter) Extension() string {
	return "md"
}
