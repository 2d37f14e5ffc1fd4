// Command extract runs the invoice extraction pipeline over local files and
// prints the consolidated records as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/adars/invoice-ai/internal/extractor"
	"github.com/adars/invoice-ai/internal/models"
	"github.com/adars/invoice-ai/internal/pipeline"
)

func main() {
	backendName := flag.String("backend", "openai", "Extraction backend: openai or gemini")
	model := flag.String("model", "", "Model override for the selected backend")
	timeout := flag.Duration("timeout", 60*time.Second, "Per-page extraction timeout")
	normalize := flag.Bool("normalize", false, "Apply scan normalization before extraction")
	verbose := flag.Bool("verbose", false, "Verbose output")
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Fprintf(os.Stderr, "Usage: extract [--backend openai|gemini] [--model <name>] <file-or-dir> [...]\n")
		os.Exit(1)
	}

	paths, err := collectInputs(flag.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
	if len(paths) == 0 {
		fmt.Fprintf(os.Stderr, "ERROR: no extractable files found\n")
		os.Exit(1)
	}

	_ = gotenv.Load()

	var logger *zap.Logger
	if *verbose {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg := extractor.Config{Backend: *backendName}
	switch *backendName {
	case extractor.BackendOpenAI:
		cfg.OpenAI = extractor.OpenAIConfig{APIKey: os.Getenv("OPENAI_API_KEY"), Model: *model}
		if cfg.OpenAI.APIKey == "" {
			fmt.Fprintf(os.Stderr, "ERROR: OPENAI_API_KEY not set\n")
			os.Exit(1)
		}
	case extractor.BackendGemini:
		cfg.Gemini = extractor.GeminiConfig{APIKey: os.Getenv("GEMINI_API_KEY"), Model: *model}
		if cfg.Gemini.APIKey == "" {
			fmt.Fprintf(os.Stderr, "ERROR: GEMINI_API_KEY not set\n")
			os.Exit(1)
		}
	default:
		fmt.Fprintf(os.Stderr, "ERROR: unknown backend %q\n", *backendName)
		os.Exit(1)
	}

	ctx := context.Background()
	backend, err := extractor.New(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize backend: %v\n", err)
		os.Exit(1)
	}

	pipe := pipeline.New(pipeline.NewFitzRasterizer(logger), backend, *timeout, logger)

	exitCode := 0
	for _, path := range paths {
		doc := models.Document{Filename: filepath.Base(path), Path: path}

		record, err := pipe.ProcessDocument(ctx, doc, *normalize)
		if err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: %s: %v\n", path, err)
			exitCode = 1
			continue
		}

		out, err := json.MarshalIndent(record, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: %s: %v\n", path, err)
			exitCode = 1
			continue
		}
		fmt.Println(string(out))
	}

	backend.Close()
	os.Exit(exitCode)
}

var extractableExts = map[string]bool{".pdf": true, ".png": true, ".jpg": true, ".jpeg": true}

// collectInputs expands each argument into extractable files. A directory
// contributes its extractable entries (non-recursive), in name order.
func collectInputs(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}

		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			if extractableExts[strings.ToLower(filepath.Ext(entry.Name()))] {
				paths = append(paths, filepath.Join(arg, entry.Name()))
			}
		}
	}
	return paths, nil
}
