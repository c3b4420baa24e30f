package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"pdf-quickcheck/config"
	"pdf-quickcheck/export"
	"pdf-quickcheck/scan"
	"pdf-quickcheck/source"
)

var version = "0.3"

// Output modes
const (
	modeAuto  = ""
	modePlain = "plain"
	modeJSON  = "json"
	modeCSV   = "csv"
)

// Arguments for CLI flags
type Arguments struct {
	Paths      []string
	Mode       string
	OutDir     string
	Workers    int
	TimeoutMS  int // -1 when not given
	ConfigPath string
	Verbose    bool
	NoMail     bool
	Help       bool
	Version    bool
}

// parseArguments parses command line args
func parseArguments(args []string) (*Arguments, error) {
	result := &Arguments{
		Paths:     []string{},
		TimeoutMS: -1,
	}

	expectOut := false
	expectWorkers := false
	expectTimeout := false
	expectConfig := false
	onlyPaths := false

	for _, a := range args {
		if expectOut {
			result.OutDir = a
			expectOut = false
			continue
		}
		if expectWorkers {
			n, err := strconv.Atoi(a)
			if err != nil || n <= 0 {
				return nil, fmt.Errorf("--workers needs a positive number, got %q", a)
			}
			result.Workers = n
			expectWorkers = false
			continue
		}
		if expectTimeout {
			n, err := strconv.Atoi(a)
			if err != nil || n < 0 {
				return nil, fmt.Errorf("--timeout needs milliseconds >= 0, got %q", a)
			}
			result.TimeoutMS = n
			expectTimeout = false
			continue
		}
		if expectConfig {
			result.ConfigPath = a
			expectConfig = false
			continue
		}
		if onlyPaths {
			result.Paths = append(result.Paths, a)
			continue
		}

		switch a {
		case "--json":
			result.Mode = modeJSON
		case "--csv":
			result.Mode = modeCSV
		case "--plain":
			result.Mode = modePlain
		case "--out", "-o":
			expectOut = true
		case "--workers", "-workers":
			expectWorkers = true
		case "--timeout":
			expectTimeout = true
		case "--config", "-c":
			expectConfig = true
		case "--verbose":
			result.Verbose = true
		case "--no-mail":
			result.NoMail = true
		case "--help", "-h":
			result.Help = true
		case "--version", "-v":
			result.Version = true
		case "--":
			onlyPaths = true
		default:
			if strings.HasPrefix(a, "-") && a != "-" {
				return nil, fmt.Errorf("unknown flag %s", a)
			}
			result.Paths = append(result.Paths, a)
		}
	}

	switch {
	case expectOut:
		return nil, errors.New("--out needs a directory")
	case expectWorkers:
		return nil, errors.New("--workers needs a value")
	case expectTimeout:
		return nil, errors.New("--timeout needs a value")
	case expectConfig:
		return nil, errors.New("--config needs a file")
	}
	return result, nil
}

// applyArguments layers explicit flags over the loaded config.
func applyArguments(cfg *config.Config, args *Arguments) {
	if args.Workers > 0 {
		cfg.Workers = args.Workers
	}
	if args.TimeoutMS >= 0 {
		cfg.Timeout = args.TimeoutMS
	}
	if args.OutDir != "" {
		cfg.Export.Dir = args.OutDir
	}
	if args.Mode == modeJSON || args.Mode == modeCSV {
		cfg.Export.Format = args.Mode
	}
	if args.Verbose {
		cfg.Logging.Verbose = true
	}
	if args.NoMail {
		cfg.SkipMail = true
	}
}

// showUsage (styled)
func showUsage() {
	fmt.Println()
	fmt.Println(logo())
	fmt.Println()

	// Usage
	fmt.Println(subHeaderStyle.Render("USAGE"))
	fmt.Println(infoStyle.Render(wrapTextWithIndent("  pdf-quickcheck ", "[--json|--csv|--plain] [--out DIR] [--workers N] [--timeout MS] [--config FILE] [--no-mail] [--verbose] <file-or-dir> ...", 100)))
	fmt.Println()

	// Flags
	fmt.Println(subHeaderStyle.Render("FLAGS"))
	fmt.Println(infoStyle.Render("  --json                  Export results as JSON (stdout, or files with --out)"))
	fmt.Println(infoStyle.Render("  --csv                   Export results as CSV (stdout, or files with --out)"))
	fmt.Println(infoStyle.Render("  --plain                 Plain text report instead of the interactive viewer"))
	fmt.Println(infoStyle.Render("  --out DIR, -o DIR       Directory for exported files"))
	fmt.Println(infoStyle.Render("  --workers N             Documents analysed in parallel (default: auto by document count)"))
	fmt.Println(infoStyle.Render("  --timeout MS            Per-document deadline for stream extraction (0 = none)"))
	fmt.Println(infoStyle.Render("  --config FILE, -c FILE  YAML file with limits and defaults"))
	fmt.Println(infoStyle.Render("  --no-mail               Do not open eml, mbox and msg containers"))
	fmt.Println(infoStyle.Render("  --verbose               Debug log on stderr"))
	fmt.Println(infoStyle.Render("  --help, -h              Show help"))
	fmt.Println(infoStyle.Render("  --version, -v           Show version"))
	fmt.Println()

	// Examples
	fmt.Println(subHeaderStyle.Render("EXAMPLES"))
	fmt.Println(infoStyle.Render("  pdf-quickcheck invoice.pdf"))
	fmt.Println(infoStyle.Render("  pdf-quickcheck --plain ~/Downloads"))
	fmt.Println(infoStyle.Render("  pdf-quickcheck --csv --out reports inbox.mbox"))
	fmt.Println(infoStyle.Render("  pdf-quickcheck --json suspicious.pdf | jq .score"))
	fmt.Println()
}

// showVersion
func showVersion() {
	fmt.Println(successStyle.Render("pdf-quickcheck v" + version))
}

// newLogger returns a debug text logger on stderr when verbose, else a
// discarding one.
func newLogger(verbose bool) *slog.Logger {
	if !verbose {
		return slog.New(slog.DiscardHandler)
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// Run parses CLI arguments and either starts the TUI or writes a report.
// Returns a process exit code.
func Run() int {
	args, err := parseArguments(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: "+err.Error()))
		showUsage()
		return 2
	}
	if args.Help {
		showUsage()
		return 0
	}
	if args.Version {
		showVersion()
		return 0
	}
	if len(args.Paths) == 0 {
		showUsage()
		return 1
	}

	cfg, err := config.Load(args.ConfigPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: "+err.Error()))
		return 1
	}
	applyArguments(cfg, args)
	logger := newLogger(cfg.Logging.Verbose)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	interactive := args.Mode == modeAuto && cfg.Export.Format == "" &&
		term.IsTerminal(int(os.Stdout.Fd()))
	if interactive {
		return runTUI(ctx, cfg, args.Paths, logger)
	}
	return runReport(ctx, os.Stdout, cfg, args, logger)
}

// session is one collect-then-analyse run shared by the TUI and the
// non-interactive report.
type session struct {
	cfg    *config.Config
	logger *slog.Logger

	onProgress scan.ProgressFunc
}

// sessionResult carries everything a run produced.
type sessionResult struct {
	results  []scan.BatchResult
	stats    *scan.BatchStats
	files    int
	warnings []string
	workers  int   // pool size actually used
	err      error // unreadable inputs
}

func (s *session) run(ctx context.Context, paths []string) sessionResult {
	collector := &source.Collector{
		IncludeMail: !s.cfg.SkipMail,
		Logger:      s.logger,
		OnProgress:  s.onProgress,
	}
	col, err := collector.Collect(ctx, paths)
	out := sessionResult{err: err}
	if col == nil {
		return out
	}
	out.files = col.Files
	out.warnings = col.Warnings

	workers := s.cfg.Workers
	if workers <= 0 {
		workers = config.GetPerformanceProfile(len(col.Documents))
	}
	out.workers = workers

	analyzer := scan.NewAnalyzer(s.cfg.Limits)
	analyzer.Logger = s.logger
	analyzer.OnProgress = s.onProgress
	timeout := time.Duration(s.cfg.Timeout) * time.Millisecond
	out.results, out.stats = analyzer.AnalyzeAll(ctx, col.Documents, workers, timeout)
	return out
}

// runReport is the non-interactive path: plain text, or JSON/CSV to stdout
// or into the export directory.
func runReport(ctx context.Context, w io.Writer, cfg *config.Config, args *Arguments, logger *slog.Logger) int {
	s := &session{cfg: cfg, logger: logger}
	res := s.run(ctx, args.Paths)

	code := 0
	if res.err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: "+res.err.Error()))
		code = 1
	}
	for _, warn := range res.warnings {
		fmt.Fprintln(os.Stderr, warningStyle.Render("Warning: "+warn))
	}

	var ok []*scan.Result
	for _, br := range res.results {
		if br.Error != nil {
			fmt.Fprintln(os.Stderr, errorStyle.Render("Error: "+br.Error.Error()))
			code = 1
			continue
		}
		ok = append(ok, br.Result)
	}

	format := cfg.Export.Format
	if args.Mode == modePlain {
		format = ""
	}
	switch {
	case format == "":
		width := terminalWidth()
		for i, r := range ok {
			if i > 0 {
				fmt.Fprintln(w)
			}
			writeReport(w, r, width)
		}
		if res.stats != nil && len(ok) > 1 {
			fmt.Fprintln(w)
			fmt.Fprintln(w, infoStyle.Render(fmt.Sprintf("%d documents in %.2fs (%.1f MB/s)",
				res.stats.Processed, res.stats.Elapsed.Seconds(), res.stats.ThroughputMBs)))
		}
	case cfg.Export.Dir != "":
		for _, path := range exportFiles(cfg.Export.Dir, format, ok) {
			fmt.Fprintln(os.Stderr, successStyle.Render("Wrote "+path))
		}
	default:
		if err := exportStream(w, format, ok); err != nil {
			fmt.Fprintln(os.Stderr, errorStyle.Render("Error: "+err.Error()))
			return 1
		}
	}
	return code
}

// exportFiles writes one file per result. A single result uses the default
// file name; batches get a stem per document, made unique with a counter.
func exportFiles(dir, format string, results []*scan.Result) []string {
	var written []string
	used := make(map[string]int)
	for _, r := range results {
		stem := export.DefaultStem
		if len(results) > 1 {
			stem = export.Stem(r.Meta.Name)
			used[stem]++
			if n := used[stem]; n > 1 {
				stem = fmt.Sprintf("%s-%d", stem, n)
			}
		}
		path, err := export.WriteFile(dir, stem, format, r)
		if err != nil {
			fmt.Fprintln(os.Stderr, errorStyle.Render("Error: "+err.Error()))
			continue
		}
		written = append(written, path)
	}
	return written
}

// exportStream writes every result to w. A JSON batch is one array; CSV
// documents are separated by a blank line.
func exportStream(w io.Writer, format string, results []*scan.Result) error {
	ex, err := export.ForFormat(format)
	if err != nil {
		return err
	}
	if je, ok := ex.(export.JSONExporter); ok && len(results) > 1 {
		return je.ExportAll(w, results)
	}
	for i, r := range results {
		if i > 0 && format == modeCSV {
			if _, err := io.WriteString(w, "\n\n"); err != nil {
				return err
			}
		}
		if err := ex.Export(w, r); err != nil {
			return err
		}
	}
	if format == modeCSV && len(results) > 0 {
		_, err = io.WriteString(w, "\n")
	}
	return err
}

// runTUI starts the interactive viewer.
func runTUI(ctx context.Context, cfg *config.Config, paths []string, logger *slog.Logger) int {
	m := newModel(ctx, cfg, paths, logger)

	startWall = time.Now()
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	final, err := p.Run()
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		fmt.Println("Error:", err)
		return 1
	}
	if fm, ok := final.(model); ok && fm.failed {
		return 1
	}
	return 0
}

// terminalWidth returns the terminal width, defaulting to 80 if unable to detect
func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return 80 // Default fallback width
	}
	return width
}

func logo() string {
	top := " █▀█ █▀▄ █▀▀   █▀█ █▀▀"
	bottom := fmt.Sprintf(" █▀▀ █▄▀ █▀    ▀▀█ █▄▄  v%s", version)
	return lipgloss.NewStyle().Foreground(lipgloss.Color("#7aa2f7")).Align(lipgloss.Left).Render(top + "\n" + bottom)
}
