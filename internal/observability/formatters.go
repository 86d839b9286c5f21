// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/jonathan/persona-shift/internal/pipeline"
	"github.com/jonathan/persona-shift/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// barWidth is the width of the progress bar
	barWidth = 30
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %s │\n", pad(title, boxWidth-4))
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(strings.TrimRight(content, "\n"), "\n") {
		fmt.Fprintf(p.out, "│ %s │\n", pad(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// pad truncates or right-pads s to exactly width runes
func pad(s string, width int) string {
	if n := utf8.RuneCountInString(s); n > width {
		runes := []rune(s)
		return string(runes[:width-3]) + "..."
	} else if n < width {
		return s + strings.Repeat(" ", width-n)
	}
	return s
}

// PrintRefinement outputs the refined profession list and context.
func (p *Printer) PrintRefinement(refined *types.RefinedInput) {
	if refined == nil {
		return
	}

	var sb strings.Builder
	for i, field := range refined.Professions {
		sb.WriteString(fmt.Sprintf("%2d. %s\n", i+1, field))
	}
	if refined.Context != "" {
		sb.WriteString("\nContext:\n")
		sb.WriteString(refined.Context)
	}

	p.printBox(fmt.Sprintf("REFINED INPUT (%d professions)", len(refined.Professions)), sb.String())
}

// PrintPersona outputs one generated persona. The image payload is summarized, not printed.
func (p *Printer) PrintPersona(index int, persona *types.Persona) {
	if persona == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Title:       %s\n", persona.Title))
	sb.WriteString(fmt.Sprintf("Personality: %s\n", persona.Personality))
	if len(persona.Skills) > 0 {
		sb.WriteString("Skills:\n")
		for _, skill := range persona.Skills {
			sb.WriteString(fmt.Sprintf("  • %s\n", skill))
		}
	}
	sb.WriteString("\n")
	for _, line := range wrap(persona.Bio, boxWidth-4) {
		sb.WriteString(line + "\n")
	}
	sb.WriteString(fmt.Sprintf("\nImage: %s", describeDataURL(persona.ImageURL)))

	p.printBox(fmt.Sprintf("#%d %s", index+1, strings.ToUpper(persona.JobField)), sb.String())
}

// PrintProgress outputs a one-line progress update for an event.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintProgress(event pipeline.ProgressEvent) {
	switch event.Type {
	case pipeline.EventPhase, pipeline.EventProgress:
		label := event.State.Label
		if label == "" {
			label = string(event.State.Phase)
		}
		fmt.Fprintf(p.out, "%s %3d%% %s\n", bar(event.State.Progress), event.State.Progress, label)
	case pipeline.EventComplete:
		fmt.Fprintf(p.out, "%s 100%% %d personas ready\n", bar(100), event.State.CompletedCount)
	case pipeline.EventFailed:
		fmt.Fprintf(p.out, "✗ %s (%d/%d completed)\n", event.Message, event.State.CompletedCount, event.State.Target)
	}
}

// PrintSummary outputs the final list of personas.
func (p *Printer) PrintSummary(state types.PipelineState, personas []types.Persona) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Status:    %s\n", state.Phase))
	sb.WriteString(fmt.Sprintf("Completed: %d/%d\n", len(personas), state.Target))
	if len(personas) > 0 {
		sb.WriteString("\n")
	}
	for i, persona := range personas {
		sb.WriteString(fmt.Sprintf("%2d. %s: %s\n", i+1, persona.JobField, persona.Title))
	}
	p.printBox("PERSONAS", sb.String())
}

func bar(progress int) string {
	progress = max(0, min(100, progress))
	filled := progress * barWidth / 100
	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled) + "]"
}

// describeDataURL reports the MIME type and payload size of a data URL
func describeDataURL(url string) string {
	header, payload, ok := strings.Cut(url, ",")
	if !ok || !strings.HasPrefix(header, "data:") {
		return "(none)"
	}
	mime := strings.TrimSuffix(strings.TrimPrefix(header, "data:"), ";base64")
	return fmt.Sprintf("%s, ~%d KB", mime, len(payload)*3/4/1024)
}

// wrap splits text into lines of at most width runes on word boundaries
func wrap(text string, width int) []string {
	var lines []string
	var line strings.Builder
	for _, word := range strings.Fields(text) {
		if line.Len() > 0 && utf8.RuneCountInString(line.String())+1+utf8.RuneCountInString(word) > width {
			lines = append(lines, line.String())
			line.Reset()
		}
		if line.Len() > 0 {
			line.WriteString(" ")
		}
		line.WriteString(word)
	}
	if line.Len() > 0 {
		lines = append(lines, line.String())
	}
	return lines
}
