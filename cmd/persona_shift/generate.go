package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"unicode"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/persona-shift/internal/generation"
	"github.com/jonathan/persona-shift/internal/input"
	"github.com/jonathan/persona-shift/internal/llm"
	"github.com/jonathan/persona-shift/internal/observability"
	"github.com/jonathan/persona-shift/internal/pipeline"
	"github.com/jonathan/persona-shift/internal/schemas"
	"github.com/jonathan/persona-shift/internal/types"
	schemafiles "github.com/jonathan/persona-shift/schemas"
)

// exportFile is the name of the JSON export written to the output directory
const exportFile = "personas.json"

var generateCommand = &cobra.Command{
	Use:   "generate",
	Short: "Generate personas for one portrait and write them to a directory",
	Long: `Refines the professions and style context, then generates ten personas one by one.

Personas and their portraits are written to --out when the run ends. A failed run
still writes the personas completed before the failure. Configuration can be loaded from a file using
--config. Command-line arguments override config file values.`,
	RunE: runGenerateCmd,
}

var (
	generateImage       string
	generateProfessions string
	generateContext     string
	generateOut         string
	generateFlags       commonFlags
)

func init() {
	generateCommand.Flags().StringVarP(&generateImage, "image", "i", "", "Path to the base portrait (PNG, JPEG, WebP...)")
	generateCommand.Flags().StringVarP(&generateProfessions, "professions", "p", "", "Comma-separated professions")
	generateCommand.Flags().StringVarP(&generateContext, "context", "c", "", "Optional style context for the portraits")
	generateCommand.Flags().StringVarP(&generateOut, "out", "o", "out", "Output directory")
	generateFlags.register(generateCommand)

	_ = generateCommand.MarkFlagRequired("image")
	rootCmd.AddCommand(generateCommand)
}

// PersonaExport is the document written to personas.json
type PersonaExport struct {
	RefinedContext string            `json:"refinedContext"`
	Personas       []ExportedPersona `json:"personas"`
}

// ExportedPersona is a persona plus the image file written next to the export
type ExportedPersona struct {
	types.Persona
	ImageFile string `json:"imageFile,omitempty"`
}

func runGenerateCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := generateFlags.loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.APIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY environment variable or --api-key is required")
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	base, err := readImage(generateImage, cfg.MaxImageBytes)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	llmClient, err := llm.NewClient(ctx, cfg.LLMConfig(), cfg.APIKey)
	if err != nil {
		return fmt.Errorf("failed to create LLM client: %w", err)
	}
	defer llmClient.Close() //nolint:errcheck

	controller := pipeline.NewController(
		generation.NewGeminiClient(llmClient),
		pipeline.WithLogger(logger.Named("pipeline")),
		pipeline.WithCallTimeout(cfg.RequestTimeout),
	)

	out := cmd.OutOrStdout()
	printer := observability.NewPrinter(out)
	var run *pipeline.Run
	run = pipeline.NewRun(func(event pipeline.ProgressEvent) {
		printer.PrintProgress(event)
		if !cfg.Verbose {
			return
		}
		switch {
		case event.Type == pipeline.EventPhase && event.State.Phase == types.PhaseGenerating:
			printer.PrintRefinement(run.Refined())
		case event.Type == pipeline.EventPersona:
			printer.PrintPersona(event.Index, event.Persona)
		}
	})

	in := pipeline.RunInput{
		Professions: input.Dedupe(generateProfessions),
		Context:     generateContext,
		BaseImage:   base,
	}
	runErr := controller.Run(ctx, in, run)

	personas := run.Personas()
	if len(personas) > 0 {
		refinedContext := ""
		if refined := run.Refined(); refined != nil {
			refinedContext = refined.Context
		}
		path, err := writeExport(generateOut, refinedContext, personas)
		if err != nil {
			return errors.Join(runErr, err)
		}
		logger.Info("wrote personas", zap.String("path", path), zap.Int("count", len(personas)))
	}
	printer.PrintSummary(run.State(), personas)

	if runErr != nil {
		return fmt.Errorf("%s: %w", pipeline.FailureMessage, runErr)
	}
	return nil
}

// readImage reads and sniffs the base portrait. maxBytes <= 0 disables the size check.
func readImage(path string, maxBytes int64) (generation.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return generation.Image{}, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close() //nolint:errcheck

	var r io.Reader = f
	if maxBytes > 0 {
		r = io.LimitReader(f, maxBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return generation.Image{}, fmt.Errorf("failed to read image: %w", err)
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return generation.Image{}, fmt.Errorf("image %s exceeds %d bytes", path, maxBytes)
	}

	img, err := generation.DecodeImage(data)
	if err != nil {
		return generation.Image{}, fmt.Errorf("image %s: %w", path, err)
	}
	return img, nil
}

// writeExport writes one image file per persona plus personas.json, then
// validates the export against the embedded schema. It returns the export path.
func writeExport(dir, refinedContext string, personas []types.Persona) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	export := PersonaExport{RefinedContext: refinedContext, Personas: make([]ExportedPersona, 0, len(personas))}
	for i, persona := range personas {
		img, err := generation.ParseDataURL(persona.ImageURL)
		if err != nil {
			return "", fmt.Errorf("persona %d (%s): %w", i+1, persona.JobField, err)
		}

		name := imageFileName(i, persona.JobField, img.Extension())
		if err := os.WriteFile(filepath.Join(dir, name), img.Data, 0o644); err != nil {
			return "", fmt.Errorf("failed to write image: %w", err)
		}
		export.Personas = append(export.Personas, ExportedPersona{Persona: persona, ImageFile: name})
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal export: %w", err)
	}
	path := filepath.Join(dir, exportFile)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write export: %w", err)
	}

	if err := schemas.ValidateFileEmbedded(schemafiles.Personas, path); err != nil {
		return path, fmt.Errorf("export failed validation: %w", err)
	}
	return path, nil
}

// imageFileName builds "01-deep-sea-explorer.png" style names
func imageFileName(index int, jobField, ext string) string {
	if ext == "" {
		ext = ".png"
	}
	return fmt.Sprintf("%02d-%s%s", index+1, slugify(jobField), ext)
}

// slugify lowercases s and collapses every run of non-alphanumerics into one dash
func slugify(s string) string {
	var sb strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(r)
			dash = false
			continue
		}
		if !dash && sb.Len() > 0 {
			sb.WriteByte('-')
			dash = true
		}
	}
	slug := strings.TrimSuffix(sb.String(), "-")
	if slug == "" {
		return "persona"
	}
	return slug
}
