package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/csheth/leafscan/internal/analysis"
	"github.com/csheth/leafscan/internal/chart"
	"github.com/csheth/leafscan/internal/config"
	"github.com/csheth/leafscan/internal/detail"
	apperrors "github.com/csheth/leafscan/internal/errors"
	"github.com/csheth/leafscan/internal/projector"
	"github.com/csheth/leafscan/internal/report"
	"github.com/csheth/leafscan/internal/selection"
	"github.com/csheth/leafscan/internal/session"
	"github.com/csheth/leafscan/internal/tui"
)

type options struct {
	configPath  string
	analyzeURL  string
	detailURL   string
	timeout     time.Duration
	exportDir   string
	logPath     string
	noAltScreen bool
	imagePath   string
	withDetail  bool
}

const reportWidth = 60

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "optional YAML config file")
	flag.StringVar(&opts.analyzeURL, "analyze-url", "", "analysis endpoint (overrides "+config.EnvAnalyzeURL+")")
	flag.StringVar(&opts.detailURL, "detail-url", "", "detail endpoint (overrides "+config.EnvDetailURL+")")
	flag.DurationVar(&opts.timeout, "timeout", 0, "per-request timeout (eg. 90s)")
	flag.StringVar(&opts.exportDir, "export", "", "directory for saved reports")
	flag.StringVar(&opts.logPath, "log", "", "write debug logs to this file")
	flag.BoolVar(&opts.noAltScreen, "no-alt-screen", false, "disable the alternate screen buffer")
	flag.StringVar(&opts.imagePath, "image", "", "analyze this image once without the TUI")
	flag.BoolVar(&opts.withDetail, "detail", false, "with -image, also request treatment detail")
	flag.Parse()

	cfg, err := resolveConfig(config.NewLoader().WithFile(opts.configPath), opts)
	if err != nil {
		fmt.Println("invalid configuration:", apperrors.UserMessage(err))
		os.Exit(1)
	}

	if opts.imagePath != "" {
		os.Exit(run(context.Background(), cfg, opts, os.Stdout))
	}

	if opts.logPath != "" {
		f, err := tea.LogToFile(opts.logPath, "leafscan")
		if err != nil {
			fmt.Println("failed to open log file:", err)
			os.Exit(1)
		}
		defer f.Close()
	} else {
		log.SetOutput(io.Discard)
	}

	teaOpts := []tea.ProgramOption{tea.WithMouseCellMotion()}
	if !opts.noAltScreen {
		teaOpts = append(teaOpts, tea.WithAltScreen())
	}
	model := tui.New(tui.Config{
		Analyzer:    analysis.New(analysis.Config{Endpoint: cfg.AnalyzeURL}),
		Detail:      detail.New(detail.Config{Endpoint: cfg.DetailURL}),
		ExportDir:   cfg.ExportDir,
		Timeout:     cfg.Timeout,
		InitialPath: flag.Arg(0),
	})
	_, err = tea.NewProgram(model, teaOpts...).Run()
	tui.Shutdown(model)
	if err != nil {
		fmt.Println("program error:", err)
		os.Exit(1)
	}
}

// resolveConfig applies flag overrides on top of the loaded configuration.
func resolveConfig(loader *config.Loader, opts options) (config.Config, error) {
	cfg, err := loader.Load()
	if err != nil {
		return config.Config{}, err
	}
	if opts.analyzeURL != "" {
		cfg.AnalyzeURL = opts.analyzeURL
	}
	if opts.detailURL != "" {
		cfg.DetailURL = opts.detailURL
	}
	if opts.timeout > 0 {
		cfg.Timeout = opts.timeout
	}
	if opts.exportDir != "" {
		cfg.ExportDir = opts.exportDir
	}
	return cfg, cfg.Validate()
}

// run drives one select, analyze and optional detail cycle and prints the
// result. It returns the process exit code.
func run(ctx context.Context, cfg config.Config, opts options, out io.Writer) int {
	state := session.New()
	defer state.Close()

	candidate, err := selection.Load(opts.imagePath)
	if err != nil {
		log.Printf("[leafscan] load %q: %v", opts.imagePath, err)
		fmt.Fprintln(out, apperrors.UserMessage(err))
	}
	state.SelectFile(candidate)
	if state.Notice().IsError() {
		printNotice(out, state.Notice())
		return 1
	}

	analyzer := analysis.New(analysis.Config{Endpoint: cfg.AnalyzeURL})
	callCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	err = state.Analyze(callCtx, analyzer)
	cancel()
	if err != nil {
		printNotice(out, state.Notice())
		return 1
	}

	if opts.withDetail {
		generator := detail.New(detail.Config{Endpoint: cfg.DetailURL})
		callCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
		if err := state.RequestDetail(callCtx, generator); err != nil {
			log.Printf("[leafscan] detail: %v", err)
		}
		cancel()
	}

	failed := state.Notice()
	printReport(out, state, opts.withDetail)

	if opts.exportDir != "" {
		img := state.Image()
		snap := report.Snapshot{
			FileName: img.Name,
			MIMEType: img.MIMEType,
			Source:   img.Data,
			Result:   state.Result(),
		}
		snap.Detail, snap.HasDetail = state.DetailText()
		dir, err := report.Save(opts.exportDir, snap)
		if err != nil {
			state.Notify(session.Failure("Export failed: " + apperrors.UserMessage(err)))
		} else {
			fmt.Fprintln(out, "Report saved to "+dir)
		}
	}

	if failed.IsError() {
		printNotice(out, failed)
		return 1
	}
	if n := state.Notice(); n.IsError() {
		printNotice(out, n)
		return 1
	}
	return 0
}

func printReport(out io.Writer, state *session.State, withDetail bool) {
	r := state.Result()
	var b strings.Builder
	fmt.Fprintf(&b, "Leaf report · %s\n\n", state.Image().Name)

	b.WriteString("Disease Classification\n")
	b.WriteString(chart.RenderBars(projector.Bars(r), reportWidth))
	b.WriteString("\n\nLeaf Severity\n")
	b.WriteString(chart.RenderDonut(projector.Donut(r), reportWidth))
	b.WriteString("\n\nSegmentation Metrics\n")
	for _, f := range projector.Fields(r) {
		fmt.Fprintf(&b, "  %-18s %s\n", f.Label, f.Value)
	}

	b.WriteString("\nImages\n")
	for _, slot := range projector.Images(r) {
		if slot.Present {
			fmt.Fprintf(&b, "  %s: %d bytes encoded\n", slot.Title, len(slot.Encoded))
			continue
		}
		fmt.Fprintf(&b, "  %s\n", slot.Placeholder)
	}

	if text, ok := state.DetailText(); withDetail && ok {
		b.WriteString("\nTreatment Detail\n")
		b.WriteString(strings.TrimSpace(text))
		b.WriteString("\n")
	}
	fmt.Fprint(out, b.String())
}

func printNotice(out io.Writer, n session.Notice) {
	switch n.Kind {
	case session.NoticeError:
		fmt.Fprintln(out, "✖ "+n.Text)
	case session.NoticeSuccess:
		fmt.Fprintln(out, "✔ "+n.Text)
	}
}
