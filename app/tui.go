package app

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/sys/unix"

	"pdf-quickcheck/config"
	"pdf-quickcheck/export"
	"pdf-quickcheck/scan"
)

var startWall time.Time
var latestProgress progressMsg
var haveLatestProgress bool
var progressMu sync.Mutex

// progressMsg updates the top progress line while loading.
// Format in View: "⏳ {Stage} [num/total]: filename"
type progressMsg struct {
	Stage string
	Count int
	Total int
	Path  string
}

// Styles (shared with the CLI usage output and the plain report)
var (
	appStyle = lipgloss.NewStyle().
			Padding(1, 2).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#7aa2f7"))

	subHeaderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7dcfff")).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#a9b1d6"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#9ece6a")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#e0af68")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#f7768e")).
			Bold(true)

	separatorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#565f89"))
)

type model struct {
	// Results and paging
	results       []scan.BatchResult
	currentPage   int
	totalPages    int
	contentScroll int

	// progress totals
	totalFiles int

	// Session and timing
	analysisTime time.Duration
	workers      int
	quitting     bool
	loading      bool
	failed       bool
	warnings     []string
	inputErr     error

	// Window size
	width  int
	height int

	// Run parameters
	cfg    *config.Config
	paths  []string
	logger *slog.Logger
	ctx    context.Context
	cancel context.CancelFunc

	// UI state
	memUsageText string // e.g., " • RAM: XXX MB • CPU: YY%"
	statusText   string // last export message

	// Background progress (optional)
	progressText string // e.g., "⏳ Processing..."
}

func newModel(ctx context.Context, cfg *config.Config, paths []string, logger *slog.Logger) model {
	ctx, cancel := context.WithCancel(ctx)
	return model{
		results: []scan.BatchResult{},
		loading: true,
		cfg:     cfg,
		paths:   paths,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (m model) Init() tea.Cmd {
	// Start polling progress and kick off the background analysis immediately.
	return tea.Batch(pollProgress(), m.runAnalysis(), m.memUsageTick())
}

func (m model) quit() (tea.Model, tea.Cmd) {
	m.quitting = true
	m.cancel()
	return m, tea.Quit
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		// While loading, only allow quit
		if m.loading {
			switch msg.String() {
			case "q", "ctrl+c":
				return m.quit()
			}
			return m, nil
		}

		switch msg.String() {
		case "q", "ctrl+c":
			return m.quit()
		case "enter", "n", " ":
			if m.currentPage < m.totalPages-1 {
				m.currentPage++
			}
			m.contentScroll = 0
			m.statusText = ""
			return m, nil
		case "p":
			if m.currentPage > 0 {
				m.currentPage--
			}
			m.contentScroll = 0
			m.statusText = ""
			return m, nil

		case "e":
			m.statusText = m.exportCurrent("json")
			return m, nil
		case "c":
			m.statusText = m.exportCurrent("csv")
			return m, nil

		case "home":
			m.currentPage = 0
			m.contentScroll = 0
			return m, nil
		case "end":
			m.currentPage = max(m.totalPages-1, 0)
			m.contentScroll = 0
			return m, nil
		case "up", "k":
			m.contentScroll--
			return m, nil
		case "down", "j":
			m.contentScroll++
			return m, nil
		case "pgup":
			m.contentScroll -= 5
			return m, nil
		case "pgdown":
			m.contentScroll += 5
			return m, nil
		}
		return m, nil

	case analysisDoneMsg:
		// Analysis completed: store results, compute pages, stop loading
		m.results = msg.results
		m.totalFiles = msg.files
		m.warnings = msg.warnings
		m.inputErr = msg.err
		m.analysisTime = msg.analysisTime
		m.workers = msg.workers
		m.totalPages = max(len(m.results), 1)
		m.loading = false
		m.failed = msg.err != nil
		for _, br := range m.results {
			if br.Error != nil {
				m.failed = true
			}
		}
		return m, nil

	case memUsageMsg:
		m.memUsageText = msg.Text
		return m, m.memUsageTick()

	case progressTick:
		// Periodic poll: read the most recent progress snapshot (mutex-protected)
		progressMu.Lock()
		lp := latestProgress
		hv := haveLatestProgress
		progressMu.Unlock()

		if hv {
			m.totalFiles = lp.Total
			m.progressText = formatProgress(lp)
		}
		if !m.loading {
			return m, nil
		}
		return m, pollProgress()
	}
	return m, nil
}

func formatProgress(p progressMsg) string {
	stage := p.Stage
	if stage != "" {
		stage = strings.ToUpper(stage[:1]) + stage[1:]
	}
	return fmt.Sprintf("%s [%d/%d]: %s", stage, p.Count, p.Total, p.Path)
}

// exportCurrent writes the shown result into the export directory using the
// default file name.
func (m model) exportCurrent(format string) string {
	if len(m.results) == 0 {
		return ""
	}
	br := m.results[m.currentPage]
	if br.Result == nil {
		return errorStyle.Render("Nothing to export for this document")
	}
	path, err := export.WriteFile(m.cfg.Export.Dir, export.DefaultStem, format, br.Result)
	if err != nil {
		return errorStyle.Render("Export failed: " + err.Error())
	}
	return successStyle.Render("Saved " + path)
}

func (m model) View() string {
	width := m.width
	height := m.height
	if width <= 0 {
		width = 120
	}
	if height <= 0 {
		height = 30
	}

	if m.quitting {
		return "Goodbye!\n"
	}

	// Build header lines
	var headerLines []string
	headerLines = append(headerLines, "")
	headerLines = append(headerLines, logo())
	headerLines = append(headerLines, "")

	headerLines = append(headerLines, subHeaderStyle.Render(wrapTextWithIndent("🔍 Checking: ", strings.Join(m.paths, " "), width-4)))

	if !m.loading {
		headerLines = append(headerLines, successStyle.Render(fmt.Sprintf("📋 Analysed: %d documents", len(m.results))))
	}

	// Target description
	targetDesc := config.GetInputTypeDescription(!m.cfg.SkipMail)
	targetStyled := lipgloss.NewStyle().Foreground(lipgloss.Color("75"))
	headerLines = append(headerLines, targetStyled.Render(wrapTextWithIndent("📁 Target: ", targetDesc, width-4)))

	// Engine line with workers + RAM/CPU live
	workers := "auto"
	if m.workers > 0 {
		workers = fmt.Sprint(m.workers)
	} else if m.cfg.Workers > 0 {
		workers = fmt.Sprint(m.cfg.Workers)
	}
	engine := fmt.Sprintf("⚙️ Engine: Workers %s%s", workers, m.memUsageText)
	engineStyled := lipgloss.NewStyle().Foreground(lipgloss.Color("#bb9af7"))
	headerLines = append(headerLines, engineStyled.Render(engine))

	// Elapsed time (freeze after completion)
	var seconds float64
	if m.loading {
		seconds = time.Since(startWall).Seconds()
	} else {
		seconds = m.analysisTime.Seconds()
	}
	elapsed := fmt.Sprintf("⏱️ Analysed: %.2f s • Documents: %d from %d files", seconds, len(m.results), m.totalFiles)
	elapsedStyled := lipgloss.NewStyle().Foreground(lipgloss.Color("#e0af68"))
	headerLines = append(headerLines, elapsedStyled.Render(elapsed))

	searchInfo := strings.Join(headerLines, "\n")
	headerHeight := strings.Count(searchInfo, "\n") + 1
	progressHeight := 1 // always reserve progress line space to keep box position stable
	bottomStatusHeight := 1
	footerHeight := 1

	// Top progress line while loading (above the box)
	var parts []string
	parts = append(parts, searchInfo)
	if m.loading {
		txt := "⏳ Processing"
		if m.progressText != "" {
			txt = "⏳ " + m.progressText
		}
		progressStyled := lipgloss.NewStyle().Foreground(lipgloss.Color("#7dcfff"))
		parts = append(parts, progressStyled.Render(txt))
	} else {
		parts = append(parts, "")
	}

	innerWidth := max((width-4)-6, 10)

	// Main content box
	var boxContent string
	switch {
	case m.loading:
		boxContent = "Analysing..."
	case len(m.results) == 0:
		boxContent = m.emptyContent(innerWidth)
	default:
		boxContent = m.pageContent(m.results[m.currentPage], innerWidth)
	}

	boxOuterWidth := width - 4
	chromeHeight := 4
	contentHeight := max(height-headerHeight-progressHeight-bottomStatusHeight-footerHeight-chromeHeight, 1)

	// Window the box content according to contentScroll to enable vertical scrolling
	lines := strings.Split(boxContent, "\n")
	maxStart := max(len(lines)-contentHeight, 0)
	start := min(max(m.contentScroll, 0), maxStart)
	end := min(start+contentHeight, len(lines))
	window := strings.Join(lines[start:end], "\n")
	parts = append(parts, appStyle.Width(boxOuterWidth).Height(contentHeight).Render(window))

	// Export status under the box
	parts = append(parts, m.statusText)

	// Footer line
	quitInstruction := lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")).
		Align(lipgloss.Center).
		Render("🔚 n/ENTER: next • p: previous • ↑/↓ scroll • e: save JSON • c: save CSV • q: quit")
	parts = append(parts, quitInstruction)

	return strings.Join(parts, "\n")
}

func (m model) emptyContent(width int) string {
	var b strings.Builder
	b.WriteString("No PDF documents found.\n")
	if m.inputErr != nil {
		b.WriteString("\n" + errorStyle.Render(wrapTextWithIndent("Error: ", m.inputErr.Error(), width)) + "\n")
	}
	for _, w := range m.warnings {
		b.WriteString(warningStyle.Render(wrapTextWithIndent("Warning: ", w, width)) + "\n")
	}
	return b.String()
}

// pageContent renders one analysed document.
func (m model) pageContent(br scan.BatchResult, width int) string {
	var b strings.Builder
	if br.Error != nil {
		b.WriteString(fmt.Sprintf("File: %s\n\n", br.Name))
		b.WriteString(errorStyle.Render(wrapTextWithIndent("Error: ", br.Error.Error(), width)))
		b.WriteString(fmt.Sprintf("\n\nResult %d of %d", m.currentPage+1, len(m.results)))
		return b.String()
	}

	r := br.Result
	for _, l := range metaLines(r) {
		b.WriteString(wrapTextWithIndent("", l, width) + "\n")
	}
	b.WriteString("Score: " + scoreStyle(r.Level()).Render(r.Score.Label) + "\n\n")

	b.WriteString(subHeaderStyle.Render("Indicators") + "\n")
	for _, l := range indicatorLines(r, width) {
		b.WriteString(l + "\n")
	}
	b.WriteString("\n")

	b.WriteString(subHeaderStyle.Render(fmt.Sprintf("URLs (%d)", len(r.URLs))) + "\n")
	if len(r.URLs) == 0 {
		b.WriteString(infoStyle.Render("  -") + "\n")
	}
	for _, u := range r.URLs {
		b.WriteString("  " + displayLocator(u) + "\n")
	}
	b.WriteString("\n")

	b.WriteString(subHeaderStyle.Render("Context") + "\n")
	if len(r.Context) == 0 {
		b.WriteString(infoStyle.Render(wrapTextWithIndent("  ", scan.NoContextHint, width)) + "\n")
	}
	for i, c := range r.Context {
		label := subHeaderStyle.Render(fmt.Sprintf("%2d ", i+1))
		b.WriteString(wrapTextWithIndent(label, c, width) + "\n")
	}

	// Page indicator
	b.WriteString(fmt.Sprintf("\nResult %d of %d", m.currentPage+1, len(m.results)))
	return b.String()
}

// runAnalysis runs collection and analysis in the background and streams
// progress to the header.
func (m model) runAnalysis() tea.Cmd {
	s := &session{
		cfg:    m.cfg,
		logger: m.logger,
		onProgress: func(stage string, processed, total int, path string) {
			progressMu.Lock()
			latestProgress = progressMsg{Stage: stage, Count: processed, Total: total, Path: path}
			haveLatestProgress = true
			progressMu.Unlock()
		},
	}
	ctx := m.ctx
	paths := m.paths

	return func() tea.Msg {
		start := time.Now()
		res := s.run(ctx, paths)
		return analysisDoneMsg{
			results:      res.results,
			files:        res.files,
			warnings:     res.warnings,
			err:          res.err,
			workers:      res.workers,
			analysisTime: time.Since(start),
		}
	}
}

func wrapTextWithIndent(prefix, text string, width int) string {
	prefixWidth := lipgloss.Width(prefix)
	indent := strings.Repeat(" ", prefixWidth)
	wrapped := lipgloss.NewStyle().Width(max(width-prefixWidth, 1)).Render(text)
	return prefix + strings.ReplaceAll(wrapped, "\n", "\n"+indent)
}

func (m model) memUsageTick() tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg {
		mem, cpu := sampleMemoryAndCPU()
		return memUsageMsg{Text: fmt.Sprintf(" • Heap %5.1f MB • Peak RSS %5.1f MB • CPU %5.1f%%", float64(mem.heap)/(1024*1024), float64(mem.rss)/(1024*1024), cpu)}
	})
}

func pollProgress() tea.Cmd {
	return tea.Tick(time.Millisecond*100, func(time.Time) tea.Msg {
		return progressTick{}
	})
}

var lastCPUWall time.Time
var lastCPUProc time.Duration
var haveCPUSample bool

func sampleMemoryAndCPU() (mem struct{ heap, rss uint64 }, cpu float64) {
	var rusage unix.Rusage
	_ = unix.Getrusage(unix.RUSAGE_SELF, &rusage)
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	mem.heap = ms.HeapAlloc
	mem.rss = uint64(rusage.Maxrss * 1024) // KB to bytes

	// Sample CPU (process user+sys time from rusage)
	nowWall := time.Now()
	user := time.Duration(rusage.Utime.Sec)*time.Second + time.Duration(rusage.Utime.Usec)*time.Microsecond
	sys := time.Duration(rusage.Stime.Sec)*time.Second + time.Duration(rusage.Stime.Usec)*time.Microsecond
	nowProc := user + sys
	if haveCPUSample {
		wallDiff := nowWall.Sub(lastCPUWall)
		procDiff := nowProc - lastCPUProc
		if wallDiff > 0 {
			cpu = max(procDiff.Seconds()/wallDiff.Seconds()*100, 0)
		}
	}
	lastCPUWall = nowWall
	lastCPUProc = nowProc
	haveCPUSample = true
	return
}

// Messages for TUI updates
type analysisDoneMsg struct {
	results      []scan.BatchResult
	files        int
	warnings     []string
	err          error
	workers      int
	analysisTime time.Duration
}

type memUsageMsg struct {
	Text string
}

type progressTick struct{}
