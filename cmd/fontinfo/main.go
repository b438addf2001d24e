package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/wudi/pdffont/config"
	"github.com/wudi/pdffont/document"
	"github.com/wudi/pdffont/filters"
	"github.com/wudi/pdffont/fonts"
	"github.com/wudi/pdffont/ir/raw"
	"github.com/wudi/pdffont/observability"
	"github.com/wudi/pdffont/scanner"
	"github.com/wudi/pdffont/scripting"
)

type options struct {
	pdfPath    string
	configPath string
	scriptPath string
	list       bool
	withData   bool
	used       bool
	unused     bool
	first      int
	last       int
}

func main() {
	opts, err := parseFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "fontinfo: %v\n", err)
		os.Exit(2)
	}
	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "fontinfo: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags() (options, error) {
	var opts options
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: fontinfo [flags] <pdf>\n")
		flag.PrintDefaults()
	}
	list := flag.Bool("list", false, "List every embedded font")
	withData := flag.Bool("data", false, "Include decoded font program sizes in the listing")
	used := flag.Bool("used", false, "Report fonts selected by page content")
	unused := flag.Bool("unused", false, "Report fonts never selected by any page")
	first := flag.Int("first", 1, "First page of the scan range (1-based)")
	last := flag.Int("last", 0, "Last page of the scan range (0 = last page)")
	configPath := flag.String("config", "", "YAML limits file")
	scriptPath := flag.String("script", "", "JavaScript file to run against the document")
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		return options{}, fmt.Errorf("missing pdf path")
	}
	opts.pdfPath = flag.Arg(0)
	opts.configPath = *configPath
	opts.scriptPath = *scriptPath
	opts.list = *list
	opts.withData = *withData
	opts.used = *used
	opts.unused = *unused
	opts.first = *first
	opts.last = *last
	if !opts.list && !opts.used && !opts.unused && opts.scriptPath == "" {
		opts.list = true
	}
	return opts, nil
}

func run(opts options) error {
	ctx := context.Background()

	cfg := config.Default()
	if opts.configPath != "" {
		var err error
		if cfg, err = config.Load(opts.configPath); err != nil {
			return err
		}
	}

	f, err := os.Open(opts.pdfPath)
	if err != nil {
		return err
	}
	defer f.Close()

	parser := raw.NewParser(raw.ParserConfig{Scanner: scanner.Config{
		MaxStringLength: cfg.Scanner.MaxStringLength,
		MaxArrayDepth:   cfg.Scanner.MaxArrayDepth,
		MaxDictDepth:    cfg.Scanner.MaxDictDepth,
		MaxStreamLength: cfg.Scanner.MaxStreamLength,
		MaxInlineImage:  cfg.Scanner.MaxInlineImage,
	}})
	rawDoc, err := parser.Parse(ctx, f)
	if err != nil {
		return fmt.Errorf("parse %s: %w", opts.pdfPath, err)
	}

	var log observability.Logger = observability.NopLogger{}
	if cfg.Verbose {
		log = stderrLogger{}
	}
	pipeline := filters.Default(filters.Limits{
		MaxDecompressedSize: cfg.Filters.MaxDecompressedSize,
		MaxDecodeTime:       time.Duration(cfg.Filters.MaxDecodeTime),
	})
	handle, err := document.Open(rawDoc, document.WithPipeline(pipeline), document.WithLogger(log))
	if err != nil {
		return err
	}
	mgr := fonts.New(handle, fonts.WithLogger(log))

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	if opts.list {
		records, err := mgr.List(ctx, opts.withData)
		if err != nil {
			return err
		}
		out := make([]fontReport, 0, len(records))
		for _, rec := range records {
			out = append(out, newFontReport(rec))
		}
		if err := enc.Encode(out); err != nil {
			return err
		}
	}

	if opts.used {
		last := opts.last
		if last == 0 {
			last = handle.PageCount()
		}
		used, err := mgr.UsedInPageRange(ctx, opts.first, last)
		if err != nil {
			return err
		}
		out := make([][2]int, 0, len(used))
		for ref := range used {
			out = append(out, [2]int{ref.Num, ref.Gen})
		}
		if err := enc.Encode(map[string]interface{}{"used": out}); err != nil {
			return err
		}
	}

	if opts.unused {
		refs, err := mgr.Unused(ctx)
		if err != nil {
			return err
		}
		out := make([][2]int, 0, len(refs))
		for _, ref := range refs {
			out = append(out, [2]int{ref.Num, ref.Gen})
		}
		if err := enc.Encode(map[string]interface{}{"unused": out}); err != nil {
			return err
		}
	}

	if opts.scriptPath != "" {
		src, err := os.ReadFile(opts.scriptPath)
		if err != nil {
			return err
		}
		engine := scripting.NewEngine()
		if err := engine.RegisterDOM(&scripting.ManagerDOM{Fonts: mgr}); err != nil {
			return err
		}
		result, err := engine.Execute(ctx, string(src))
		if err != nil {
			return fmt.Errorf("script %s: %w", opts.scriptPath, err)
		}
		if result != nil {
			if err := enc.Encode(result); err != nil {
				return err
			}
		}
	}

	return nil
}

type fontReport struct {
	BaseFont       string  `json:"base_font"`
	Subtype        string  `json:"subtype"`
	Reference      [2]int  `json:"reference"`
	Encoding       string  `json:"encoding,omitempty"`
	StreamRef      *[2]int `json:"stream_ref,omitempty"`
	DescendantFont *[2]int `json:"descendant_font,omitempty"`
	ProgramBytes   int     `json:"program_bytes,omitempty"`
}

func newFontReport(rec fonts.Record) fontReport {
	report := fontReport{
		BaseFont:  rec.BaseFont,
		Subtype:   rec.Subtype,
		Reference: [2]int{rec.Ref.Num, rec.Ref.Gen},
		Encoding:  rec.Encoding,
	}
	if rec.StreamRef != nil {
		report.StreamRef = &[2]int{rec.StreamRef.Num, rec.StreamRef.Gen}
	}
	if rec.DescendantFont != nil {
		report.DescendantFont = &[2]int{rec.DescendantFont.Num, rec.DescendantFont.Gen}
	}
	report.ProgramBytes = len(rec.Data)
	return report
}

type stderrLogger struct{}

func (l stderrLogger) log(level, msg string, fields []observability.Field) {
	fmt.Fprintf(os.Stderr, "%s %s", level, msg)
	for _, f := range fields {
		fmt.Fprintf(os.Stderr, " %s=%v", f.Key(), f.Value())
	}
	fmt.Fprintln(os.Stderr)
}

func (l stderrLogger) Debug(msg string, fields ...observability.Field) { l.log("DEBUG", msg, fields) }
func (l stderrLogger) Info(msg string, fields ...observability.Field)  { l.log("INFO", msg, fields) }
func (l stderrLogger) Warn(msg string, fields ...observability.Field)  { l.log("WARN", msg, fields) }
func (l stderrLogger) Error(msg string, fields ...observability.Field) { l.log("ERROR", msg, fields) }
func (l stderrLogger) With(...observability.Field) observability.Logger { return l }
