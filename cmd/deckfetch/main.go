package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/use-agent/deckfetch/config"
	"github.com/use-agent/deckfetch/models"
	"github.com/use-agent/deckfetch/naming"
	"github.com/use-agent/deckfetch/ocr"
	"github.com/use-agent/deckfetch/pdfbuild"
	"github.com/use-agent/deckfetch/retriever"
	"github.com/use-agent/deckfetch/summarize"
)

var version = "dev"

type rootFlags struct {
	name      string
	email     string
	passcode  string
	output    string
	summarize bool
	verbose   bool
	debug     bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		var re *models.RetrievalError
		if errors.As(err, &re) {
			fmt.Fprintf(os.Stderr, "Error: %s\n", re.Message)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		if errors.Is(err, context.Canceled) {
			os.Exit(130)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:     "deckfetch URL",
		Short:   "Convert a DocSend document to PDF",
		Long:    "Downloads all pages from a DocSend link and saves them as a PDF file.",
		Version: version,
		Args:    cobra.ExactArgs(1),
		Example: `  # Basic usage:
  deckfetch https://docsend.com/view/abc123

  # With filename specified:
  deckfetch https://docsend.com/view/abc123 --name "Company Pitch Deck"

  # Email-protected document:
  deckfetch https://docsend.com/view/abc123 -n "Deck" -e user@example.com

  # Passcode-protected document:
  deckfetch https://docsend.com/view/abc123 -n "Deck" -e user@example.com -p secret

  # With AI summary (requires tesseract + API key):
  deckfetch https://docsend.com/view/abc123 --summarize`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), args[0], flags)
		},
	}

	cmd.Flags().StringVarP(&flags.name, "name", "n", "", "output filename for the PDF (derived from the document when omitted)")
	cmd.Flags().StringVarP(&flags.email, "email", "e", "", "email address for protected documents")
	cmd.Flags().StringVarP(&flags.passcode, "passcode", "p", "", "passcode for passcode-protected documents")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "output directory for saved PDFs")
	cmd.Flags().BoolVar(&flags.summarize, "summarize", false, "generate an AI company analysis next to the PDF")
	cmd.Flags().BoolVarP(&flags.verbose, "verbose", "v", false, "show detailed progress output")
	cmd.Flags().BoolVar(&flags.debug, "debug", false, "show the browser window for debugging")

	cmd.AddCommand(newConfigCmd())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	cmd.SetContext(ctx)
	cobra.OnFinalize(stop)

	return cmd
}

func run(ctx context.Context, url string, flags *rootFlags) error {
	cfg := config.Load()
	if flags.output != "" {
		cfg.Output.Dir = flags.output
	}
	if flags.debug {
		cfg.Browser.Headless = false
	}
	if flags.verbose || flags.debug {
		cfg.Log.Level = "debug"
	}
	initLogger(cfg.Log)

	// Fail before the browser launches when the summary step cannot work.
	apiKey := config.APIKey()
	if flags.summarize {
		if apiKey == "" {
			return models.NewRetrievalError(models.ErrCodeSummaryAuthFailure,
				"no API key configured; run `deckfetch config set-key` or set PERPLEXITY_API_KEY", nil)
		}
		if !ocr.Available() {
			return models.NewRetrievalError(models.ErrCodeOCR,
				"tesseract is not installed (required for --summarize)", nil)
		}
	}

	creds := models.Credentials{Email: flags.email, Passcode: flags.passcode}

	r := retriever.New(cfg)
	result, err := r.Retrieve(ctx, url, creds, func(page, total int) {
		fmt.Printf("\rCapturing page %d/%d...", page, total)
		if page == total {
			fmt.Println()
		}
	})
	if err != nil {
		return err
	}

	pdfBytes, err := pdfbuild.Build(result.Captures, pdfbuild.Options{
		Optimize: cfg.Output.Optimize,
	})
	if err != nil {
		return err
	}

	pdfPath := naming.UniquePath(filepath.Join(cfg.Output.Dir, outputName(flags.name, result)+".pdf"))
	if err := pdfbuild.WriteFile(pdfPath, pdfBytes); err != nil {
		return err
	}

	fmt.Printf("\nSuccess! PDF saved to:\n  %s\n  %d pages\n", pdfPath, result.PageCount)

	if flags.summarize {
		fmt.Println("\nGenerating summary...")
		client := summarize.NewClient(nil, cfg.Summary.BaseURL, cfg.Summary.Model, apiKey)
		summary, err := client.Summarize(ctx, result.Captures, cfg.Summary.MaxOCRPages)
		if err != nil {
			// The PDF is already on disk; a failed summary only warns.
			slog.Warn("summary generation failed", "error", err)
			fmt.Fprintf(os.Stderr, "Summary failed: %v\n", err)
			return nil
		}
		mdPath, err := summarize.WriteSummary(summary, pdfPath)
		if err != nil {
			return err
		}
		fmt.Printf("Summary saved to:\n  %s\n", mdPath)
	}
	return nil
}

// outputName resolves the PDF base name: explicit flag, then page title,
// then OCR of the first page, then the default.
func outputName(flagName string, result *models.RetrievalResult) string {
	if flagName != "" {
		return naming.Sanitize(flagName)
	}
	if name := naming.FromTitle(result.PageTitle); name != "" {
		return naming.Sanitize(name)
	}
	if ocr.Available() && len(result.Captures) > 0 {
		if text, err := ocr.ImageToText(context.Background(), result.Captures[0].PNG); err == nil {
			if name := naming.FromOCRText(text); name != "" {
				return naming.Sanitize(name)
			}
		}
	}
	return naming.DefaultName
}

// initLogger configures slog based on the LogConfig. Logs go to stderr so
// stdout stays clean for progress output.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	slog.SetDefault(slog.New(handler))
}
