package app

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"pdf-quickcheck/scan"
)

// noInflaterHint mirrors the viewer note shown when streams cannot be unpacked.
const noInflaterHint = "FlateDecode-Entpackung nicht verfügbar: komprimierte Streams wurden nicht untersucht."

// createSeparator creates a separator line that fits the terminal width
func createSeparator(width int) string {
	if width > 120 {
		width = 120 // Maximum reasonable width
	}
	if width < 20 {
		width = 20
	}
	return separatorStyle.Render(strings.Repeat("━", width))
}

// scoreStyle picks the pill colour for a risk level.
func scoreStyle(level scan.Level) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true).Padding(0, 1).Foreground(lipgloss.Color("#1a1b26"))
	switch level {
	case scan.LevelHigh:
		return base.Background(lipgloss.Color("#f7768e"))
	case scan.LevelMedium:
		return base.Background(lipgloss.Color("#e0af68"))
	default:
		return base.Background(lipgloss.Color("#9ece6a"))
	}
}

// displayLocator turns bare www. hosts into clickable https:// links. The
// result data keeps the locator as found.
func displayLocator(u string) string {
	if len(u) >= 4 && strings.EqualFold(u[:4], "www.") {
		return "https://" + u
	}
	return u
}

// metaLines renders the file facts block shared by the report and the viewer.
func metaLines(r *scan.Result) []string {
	f := r.Meta.Flate
	lines := []string{
		fmt.Sprintf("File: %s (%s)", r.Meta.Name, FormatBytes(uint64(r.Meta.SizeBytes))),
		"SHA-256: " + r.Meta.SHA256,
		"PDF-Version: " + r.Meta.PDFVersion,
		fmt.Sprintf("FlateDecode: Streams gefunden: %d · entpackt: %d · Bytes: %s",
			f.StreamsFound, f.StreamsInflated, FormatBytes(uint64(f.BytesInflated))),
	}
	if !f.DecompressionAvailable {
		lines = append(lines, warningStyle.Render("Hinweis: "+noInflaterHint))
	}
	if f.Truncated {
		lines = append(lines, warningStyle.Render("Hinweis: Stream-Analyse vorzeitig beendet (Limit oder Zeitüberschreitung)."))
	}
	return lines
}

// indicatorLines renders one line per indicator plus its hint.
func indicatorLines(r *scan.Result, width int) []string {
	var lines []string
	for _, ind := range r.Indicators {
		mark := separatorStyle.Render("○")
		label := infoStyle.Render(ind.Label)
		if ind.Hit {
			mark = errorStyle.Render("●")
			label = warningStyle.Render(ind.Label)
		}
		lines = append(lines, fmt.Sprintf("%s %s  %s", mark, label, separatorStyle.Render(ind.Note())))
		lines = append(lines, wrapTextWithIndent("    ", infoStyle.Render(ind.Hint), width))
	}
	return lines
}

// writeReport prints one analysis as plain text.
func writeReport(w io.Writer, r *scan.Result, width int) {
	inner := max(width-4, 20)

	fmt.Fprintln(w, createSeparator(width))
	for _, l := range metaLines(r) {
		fmt.Fprintln(w, l)
	}
	fmt.Fprintln(w, "Score: "+scoreStyle(r.Level()).Render(r.Score.Label))
	fmt.Fprintln(w)

	fmt.Fprintln(w, subHeaderStyle.Render("INDICATORS"))
	for _, l := range indicatorLines(r, inner) {
		fmt.Fprintln(w, l)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, subHeaderStyle.Render(fmt.Sprintf("URLS (%d)", len(r.URLs))))
	if len(r.URLs) == 0 {
		fmt.Fprintln(w, infoStyle.Render("  -"))
	}
	for _, u := range r.URLs {
		fmt.Fprintln(w, "  "+displayLocator(u))
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, subHeaderStyle.Render("CONTEXT"))
	if len(r.Context) == 0 {
		fmt.Fprintln(w, wrapTextWithIndent("  ", infoStyle.Render(scan.NoContextHint), inner))
	}
	for _, c := range r.Context {
		fmt.Fprintln(w, wrapTextWithIndent("  ", c, inner))
	}
}

// FormatBytes renders a size as B, KB, MB or GB; one decimal above bytes.
func FormatBytes(b uint64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := uint64(unit), 0
	for n := b / unit; n >= unit && exp < 2; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(b)/float64(div), "KMG"[exp])
}
