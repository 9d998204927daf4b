package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/nmurali/billfiler/internal/common"
	"github.com/nmurali/billfiler/internal/export"
	"github.com/nmurali/billfiler/internal/extract"
	"github.com/nmurali/billfiler/internal/fields"
	"github.com/nmurali/billfiler/internal/history"
	"github.com/nmurali/billfiler/internal/llm"
	"github.com/nmurali/billfiler/internal/llm/groq"
	"github.com/nmurali/billfiler/internal/pipeline"
	"github.com/nmurali/billfiler/internal/server"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rules := fields.DefaultRules()
	if cfg.Storage.RulesPath != "" {
		loaded, err := fields.LoadRules(cfg.Storage.RulesPath)
		if err != nil {
			logger.Error("load rules", "path", cfg.Storage.RulesPath, "error", err)
			os.Exit(1)
		}
		rules = loaded
	}
	engine := fields.NewEngine(rules, logger)

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

	var model llm.FieldExtractor
	if cfg.LLM.APIKey != "" {
		model = groq.NewClient(groq.Config{
			BaseURL:     cfg.LLM.BaseURL,
			Model:       cfg.LLM.Model,
			APIKey:      cfg.LLM.APIKey,
			Temperature: cfg.LLM.Temperature,
			Timeout:     cfg.LLM.Timeout,
		}, logger)
	} else {
		logger.Warn("GROQ_API_KEY not set; running with heuristic extraction only")
	}

	store, err := history.Open(ctx, cfg.Storage.DSN, logger)
	if err != nil {
		logger.Error("open history store", "dsn", cfg.Storage.DSN, "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			logger.Error("close history store", "error", cerr)
		}
	}()

	orch := pipeline.NewOrchestrator(model, engine, logger)

	srv := server.New(
		logger,
		extractor,
		orch,
		store,
		export.NewService(store, logger),
		cfg.Storage.Root,
		cfg.Storage.TempDir,
	)

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("http serving", "addr", cfg.Server.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http serve", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", "error", err)
	}
}
