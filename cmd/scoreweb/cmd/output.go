package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"gopkg.in/yaml.v3"

	"github.com/corey/scoreweb/internal/app"
	"github.com/corey/scoreweb/internal/ports"
)

// Output formats.
const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

func checkFormat(format string) error {
	switch format {
	case formatTable, formatJSON, formatYAML:
		return nil
	}
	return fmt.Errorf("unknown format %q (want table, json or yaml)", format)
}

// outputOptions controls how a run is printed.
type outputOptions struct {
	Format string
	Color  bool
	Counts bool // include per-keyword counts in table output
	Top    int  // print at most Top documents; 0 prints all
}

// styles is the palette for table output. With color disabled every style
// renders its input unchanged.
type styles struct {
	bold, accent, muted, good, warn lipgloss.Style
}

func newStyles(w io.Writer, color bool) styles {
	r := lipgloss.NewRenderer(w)
	if color {
		r.SetColorProfile(termenv.ANSI256)
	} else {
		r.SetColorProfile(termenv.Ascii)
	}
	return styles{
		bold:   r.NewStyle().Bold(true),
		accent: r.NewStyle().Foreground(lipgloss.Color("#A78BFA")),
		muted:  r.NewStyle().Foreground(lipgloss.Color("#6C7086")),
		good:   r.NewStyle().Foreground(lipgloss.Color("2")),
		warn:   r.NewStyle().Foreground(lipgloss.Color("3")),
	}
}

// runView is the JSON/YAML shape of a run.
type runView struct {
	Run           string    `json:"run" yaml:"run"`
	Root          string    `json:"root" yaml:"root"`
	CreatedAt     string    `json:"created_at" yaml:"created_at"`
	Engine        string    `json:"engine" yaml:"engine"`
	CaseSensitive bool      `json:"case_sensitive" yaml:"case_sensitive"`
	Keywords      []string  `json:"keywords" yaml:"keywords"`
	MaxScore      *float64  `json:"max_score" yaml:"max_score"`
	Documents     []docView `json:"documents" yaml:"documents"`
	Failed        []string  `json:"failed,omitempty" yaml:"failed,omitempty"`
}

type docView struct {
	Rank     int      `json:"rank" yaml:"rank"`
	Document string   `json:"document" yaml:"document"`
	Percent  *float64 `json:"percent" yaml:"percent"` // null without a baseline
	Score    float64  `json:"score" yaml:"score"`

	// Counts follows the run's keyword order, one pair per keyword, so
	// repeated keywords keep their own slots.
	Counts []keywordCount `json:"counts,omitempty" yaml:"counts,omitempty"`
}

type keywordCount struct {
	Keyword string `json:"keyword" yaml:"keyword"`
	Count   int    `json:"count" yaml:"count"`
}

func newRunView(run *ports.Run, top int) runView {
	v := runView{
		Run:           run.ID,
		Root:          run.Root,
		CreatedAt:     time.Unix(run.CreatedAt, 0).UTC().Format(time.RFC3339),
		Engine:        run.Engine,
		CaseSensitive: run.CaseSensitive,
		Keywords:      run.Keywords,
		Documents:     []docView{},
		Failed:        run.Failed,
	}
	if run.HasMax {
		max := run.MaxScore
		v.MaxScore = &max
	}
	for i, e := range limitEntries(run.Entries, top) {
		d := docView{Rank: i + 1, Document: e.ID, Score: e.Score}
		if run.HasBaseline() {
			pct := e.Percent
			d.Percent = &pct
		}
		if len(e.Counts) == len(run.Keywords) {
			d.Counts = make([]keywordCount, len(e.Counts))
			for k, kw := range run.Keywords {
				d.Counts[k] = keywordCount{Keyword: kw, Count: e.Counts[k]}
			}
		}
		v.Documents = append(v.Documents, d)
	}
	return v
}

func limitEntries(entries []ports.RunEntry, top int) []ports.RunEntry {
	if top > 0 && top < len(entries) {
		return entries[:top]
	}
	return entries
}

// writeRun prints a run in the requested format.
func writeRun(w io.Writer, run *ports.Run, opts outputOptions) error {
	switch opts.Format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(newRunView(run, opts.Top))
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(newRunView(run, opts.Top)); err != nil {
			return err
		}
		return enc.Close()
	case formatTable, "":
		_, err := io.WriteString(w, formatRunTable(run, opts, newStyles(w, opts.Color)))
		return err
	default:
		return fmt.Errorf("unknown format %q (want table, json or yaml)", opts.Format)
	}
}

// formatRunTable renders a run for the terminal.
//
//	⚡ 3 documents │ 16 keywords │ kmp │ 4ms
//	   1  iot.html        100.0%   5.1234
//	   2  robots.html      42.7%   2.1876
func formatRunTable(run *ports.Run, opts outputOptions, st styles) string {
	var sb strings.Builder
	sb.WriteString(st.bold.Render(fmt.Sprintf("⚡ %d documents", len(run.Entries))))
	sb.WriteString(fmt.Sprintf(" │ %d keywords │ %s │ %dms\n", len(run.Keywords), run.Engine, run.ElapsedMs))

	entries := limitEntries(run.Entries, opts.Top)
	if len(entries) == 0 {
		sb.WriteString(st.muted.Render("  no documents"))
		sb.WriteString("\n")
	}

	width := 0
	for _, e := range entries {
		if n := utf8.RuneCountInString(e.ID); n > width {
			width = n
		}
	}

	baseline := run.HasBaseline()
	for i, e := range entries {
		sb.WriteString(fmt.Sprintf("  %3d  ", i+1))
		sb.WriteString(st.accent.Render(e.ID))
		sb.WriteString(strings.Repeat(" ", width-utf8.RuneCountInString(e.ID)))

		if baseline {
			pct := fmt.Sprintf("%6.1f%%", e.Percent)
			if e.Percent >= 50 {
				pct = st.good.Render(pct)
			}
			sb.WriteString("  " + pct)
		}
		sb.WriteString("  " + st.muted.Render(fmt.Sprintf("%8.4f", e.Score)))

		if opts.Counts && len(e.Counts) == len(run.Keywords) {
			var parts []string
			for k, kw := range run.Keywords {
				if e.Counts[k] > 0 {
					parts = append(parts, fmt.Sprintf("%s:%d", kw, e.Counts[k]))
				}
			}
			if len(parts) > 0 {
				sb.WriteString("  " + st.muted.Render(strings.Join(parts, " ")))
			}
		}
		sb.WriteString("\n")
	}

	if len(run.Entries) > len(entries) {
		sb.WriteString(st.muted.Render(fmt.Sprintf("  … %d more", len(run.Entries)-len(entries))))
		sb.WriteString("\n")
	}
	if !baseline && len(run.Entries) > 0 {
		sb.WriteString(st.warn.Render("  no document scored above zero; percentages unavailable"))
		sb.WriteString("\n")
	}
	for _, id := range run.Failed {
		sb.WriteString(st.warn.Render(fmt.Sprintf("  ✗ unreadable: %s", id)))
		sb.WriteString("\n")
	}
	return sb.String()
}

// formatHistory renders run summaries, newest first.
func formatHistory(runs []ports.RunSummary, st styles) string {
	var sb strings.Builder
	sb.WriteString(st.bold.Render(fmt.Sprintf("⚡ %d runs", len(runs))))
	sb.WriteString("\n")
	for _, r := range runs {
		when := time.Unix(r.CreatedAt, 0).Local().Format("2006-01-02 15:04:05")
		sb.WriteString(fmt.Sprintf("  %s  %s  %3d docs  ", st.accent.Render(r.ID), when, r.Documents))
		top := r.Top
		if top == "" {
			top = "-"
		}
		sb.WriteString(top)
		sb.WriteString("  " + st.muted.Render(r.Root))
		sb.WriteString("\n")
	}
	return sb.String()
}

// formatConfig renders the effective configuration and workspace paths.
func formatConfig(cfg *app.Config, paths *app.Paths, configFound bool, st styles) string {
	var sb strings.Builder
	sb.WriteString(st.bold.Render("⚡ scoreweb config"))
	sb.WriteString("\n")

	source := paths.Config
	if !configFound {
		source += st.muted.Render(" (not found, using defaults)")
	}
	sb.WriteString(fmt.Sprintf("  Config:     %s\n", source))
	sb.WriteString(fmt.Sprintf("  History:    %s\n", paths.DB))
	sb.WriteString(fmt.Sprintf("  Engine:     %s\n", cfg.Engine))
	sb.WriteString(fmt.Sprintf("  Case:       %s\n", map[bool]string{true: "sensitive", false: "insensitive (ASCII)"}[cfg.CaseSensitive]))
	sb.WriteString(fmt.Sprintf("  Recursive:  %v\n", cfg.Recursive))
	if len(cfg.Extensions) > 0 {
		sb.WriteString(fmt.Sprintf("  Extensions: %s\n", strings.Join(cfg.Extensions, " ")))
	} else {
		sb.WriteString("  Extensions: all files\n")
	}
	sb.WriteString(fmt.Sprintf("  Keywords:   %s\n", strings.Join(cfg.Keywords, ", ")))
	return sb.String()
}
