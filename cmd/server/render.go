package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cv-builder/internal/config"
	"cv-builder/internal/model"
	"cv-builder/internal/render"
	infra "cv-builder/pkg/infrastructure"

	"github.com/spf13/cobra"
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render a CV document JSON file to HTML or PDF",
	Long:  "Reads a CVDocument JSON file, validates it and writes the full page as HTML, or as PDF through headless Chrome when the output ends in .pdf.",
	RunE:  runRender,
}

var (
	renderInputFile  string
	renderOutputFile string
	renderTemplate   string
)

func init() {
	renderCmd.Flags().StringVarP(&renderInputFile, "in", "i", "", "Path to the CVDocument JSON file (required)")
	renderCmd.Flags().StringVarP(&renderOutputFile, "out", "o", "", "Output path, .html or .pdf (required)")
	renderCmd.Flags().StringVar(&renderTemplate, "template", "", "Override the document's template type")

	if err := renderCmd.MarkFlagRequired("in"); err != nil {
		panic(fmt.Sprintf("failed to mark in flag as required: %v", err))
	}
	if err := renderCmd.MarkFlagRequired("out"); err != nil {
		panic(fmt.Sprintf("failed to mark out flag as required: %v", err))
	}

	rootCmd.AddCommand(renderCmd)
}

func runRender(cmd *cobra.Command, _ []string) error {
	doc, err := readDocument(renderInputFile)
	if err != nil {
		return err
	}
	if renderTemplate != "" {
		tpl, ok := model.ParseTemplateType(renderTemplate)
		if !ok {
			return fmt.Errorf("unknown template %q", renderTemplate)
		}
		doc.TemplateType = tpl
	}
	if err := model.Validate(doc); err != nil {
		return err
	}

	renderer, err := render.New()
	if err != nil {
		return err
	}
	html, err := renderer.Page(doc)
	if err != nil {
		return err
	}

	out := []byte(html)
	if strings.EqualFold(filepath.Ext(renderOutputFile), ".pdf") {
		out, err = renderPDF(cmd.Context(), html)
		if err != nil {
			return err
		}
	}

	if dir := filepath.Dir(renderOutputFile); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(renderOutputFile, out, 0o644); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", renderOutputFile)
	return nil
}

func readDocument(path string) (*model.CVDocument, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	var doc model.CVDocument
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal document JSON: %w", err)
	}
	return &doc, nil
}

func renderPDF(ctx context.Context, html string) ([]byte, error) {
	cfg, err := config.Load(configDir)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	pdf, err := infra.NewChromedpRenderer(cfg.Renderer.ChromePath, cfg.Renderer.TimeoutDuration()).RenderHTMLToPDF(ctx, html)
	if err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return pdf, nil
}
