package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"vastu-check/api/internal/analyze"
	"vastu-check/api/internal/config"
	"vastu-check/api/internal/render"
	"vastu-check/api/internal/util"
	"vastu-check/api/internal/vastu"
)

type options struct {
	planPath string
	engine   string
	format   string
	outImage string
	rules    bool
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "vastu-cli: %v\n", err)
		os.Exit(2)
	}
	if err := run(context.Background(), opts, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "vastu-cli: %v\n", err)
		if errors.Is(err, analyze.ErrNoDetections) {
			os.Exit(3)
		}
		os.Exit(1)
	}
}

func parseFlags(args []string) (options, error) {
	var opts options
	fs := flag.NewFlagSet("vastu-cli", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: vastu-cli [flags] <plan.png|plan.jpg>\n")
		fs.PrintDefaults()
	}
	fs.StringVar(&opts.engine, "engine", "", "OCR engine (tesseract, gemini, gpt, yandex); default from OCR_ENGINE")
	fs.StringVar(&opts.format, "format", "json", "Report format: json, yaml, markdown or html")
	fs.StringVar(&opts.outImage, "out", "", "Write the annotated plan as JPEG to this path")
	fs.BoolVar(&opts.rules, "rules", false, "Print the placement rules and exit")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	switch opts.format {
	case "json", "yaml", "markdown", "html":
	default:
		return options{}, fmt.Errorf("unknown format %q", opts.format)
	}
	if opts.rules {
		return opts, nil
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return options{}, fmt.Errorf("missing plan image path")
	}
	opts.planPath = fs.Arg(0)
	return opts, nil
}

type output struct {
	Report vastu.Report        `json:"report" yaml:"report"`
	Rooms  []vastu.LocatedRoom `json:"rooms" yaml:"rooms"`
	Engine string              `json:"engine" yaml:"engine"`
	Model  string              `json:"model" yaml:"model"`
	Width  int                 `json:"width" yaml:"width"`
	Height int                 `json:"height" yaml:"height"`
}

func run(ctx context.Context, opts options, w io.Writer) error {
	if opts.rules {
		return writeRules(w, opts.format)
	}

	cfg, err := config.Parse()
	if err != nil {
		return err
	}
	engines, eng, err := cfg.Engines()
	if err != nil {
		return err
	}
	if strings.TrimSpace(opts.engine) != "" {
		if eng, err = engines.GetEngine(opts.engine); err != nil {
			return err
		}
	}

	raw, err := os.ReadFile(opts.planPath)
	if err != nil {
		return err
	}
	if cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.RequestTimeout)
		defer cancel()
	}

	res, err := analyze.New(vastu.Default, cfg.AnalyzeOptions()).Analyze(ctx, eng, raw)
	if err != nil {
		return err
	}
	if opts.outImage != "" {
		if err := os.WriteFile(opts.outImage, res.Image, 0o644); err != nil {
			return fmt.Errorf("write annotated plan: %w", err)
		}
	}
	return writeResult(w, opts.format, res)
}

func writeResult(w io.Writer, format string, res *analyze.Result) error {
	out := output{
		Report: res.Report,
		Rooms:  res.Rooms,
		Engine: res.Engine,
		Model:  res.Model,
		Width:  res.Width,
		Height: res.Height,
	}

	switch format {
	case "markdown":
		_, err := io.WriteString(w, render.Markdown(res.Report))
		return err
	case "html":
		page, err := render.HTML(res.Report, util.ImageDataURL(res.Image))
		if err != nil {
			return err
		}
		_, err = w.Write(page)
		return err
	case "yaml":
		b, err := render.YAML(out)
		if err != nil {
			return err
		}
		_, err = w.Write(b)
		return err
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
}

func writeRules(w io.Writer, format string) error {
	rules := vastu.Default.Rules()
	if format == "yaml" {
		b, err := render.YAML(map[string]any{"rules": rules})
		if err != nil {
			return err
		}
		_, err = w.Write(b)
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]any{"rules": rules})
}
