// Command analyze runs the extraction pipeline over a single document and
// prints the resulting fields as JSON. Diagnostic tool: no filing, no history.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/nmurali/billfiler/internal/common"
	"github.com/nmurali/billfiler/internal/extract"
	"github.com/nmurali/billfiler/internal/fields"
	"github.com/nmurali/billfiler/internal/pipeline"
)

func main() {
	var (
		rulesPath = flag.String("rules", "", "YAML extraction rules override")
		showText  = flag.Bool("text", false, "also print the extracted text")
		timeout   = flag.Duration("timeout", 2*time.Minute, "extraction deadline")
	)
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: analyze [flags] <file.pdf|file.png|file.jpg>")
		os.Exit(2)
	}
	path := flag.Arg(0)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()

	rules := fields.DefaultRules()
	if *rulesPath != "" {
		loaded, err := fields.LoadRules(*rulesPath)
		if err != nil {
			logger.Error("load rules", "error", err)
			os.Exit(1)
		}
		rules = loaded
	}

	extractor := extract.NewExtractor(extract.Config{
		Pdftotext:     cfg.OCR.Pdftotext,
		Pdftoppm:      cfg.OCR.Pdftoppm,
		Tesseract:     cfg.OCR.Tesseract,
		TesseractLang: cfg.OCR.TesseractLang,
		TessdataDir:   cfg.OCR.TessdataDir,
		DPI:           cfg.OCR.DPI,
		MaxPages:      cfg.OCR.MaxPages,
		PSM:           cfg.OCR.PSM,
		OEM:           cfg.OCR.OEM,
	}, logger)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	res, err := extractor.Extract(ctx, path)
	if err != nil {
		logger.Error("extract", "path", path, "error", err)
		os.Exit(1)
	}

	// heuristic engine only: analyze is for debugging the fallback path
	orch := pipeline.NewOrchestrator(nil, fields.NewEngine(rules, logger), logger)
	result, err := orch.Resolve(ctx, res.Text, pipeline.Provided{})
	if err != nil {
		logger.Error("no usable text in document", "path", path, "stages", len(res.Outcomes))
		os.Exit(1)
	}

	out := map[string]any{
		"source":      string(res.Source),
		"pages":       res.Pages,
		"duration_ms": res.Duration.Milliseconds(),
		"fields":      result,
	}
	if *showText {
		out["text"] = res.Text
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(out)
}
