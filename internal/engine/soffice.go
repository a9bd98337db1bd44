// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package engine

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// calcPDFFilter is the LibreOffice Calc PDF export filter. SinglePageSheets
// places each worksheet on exactly one page.
const (
	calcPDFFilter      = "pdf:calc_pdf_Export"
	singlePageSheetsOn = `{"SinglePageSheets":{"type":"boolean","value":"true"}}`
)

// convertTo returns the --convert-to value for opts.
func convertTo(opts SaveOptions) string {
	if opts.OnePagePerSheet {
		return calcPDFFilter + ":" + singlePageSheetsOn
	}
	return calcPDFFilter
}

// sofficeArgs builds a headless conversion command line. profileURL, when
// set, points LibreOffice at a private user profile so parallel processes
// do not contend for the default one.
func sofficeArgs(profileURL, outDir, src string, opts SaveOptions) []string {
	args := []string{"--headless", "--norestore", "--nolockcheck"}
	if profileURL != "" {
		args = append(args, "-env:UserInstallation="+profileURL)
	}
	return append(args, "--convert-to", convertTo(opts), "--outdir", outDir, src)
}

// renderedName is the file LibreOffice writes for src inside --outdir.
func renderedName(src string) string {
	base := filepath.Base(src)
	return strings.TrimSuffix(base, filepath.Ext(base)) + ".pdf"
}

// commandRunner abstracts process execution for testing.
type commandRunner interface {
	LookPath(file string) (string, error)
	Run(ctx context.Context, name string, args []string, stdout, stderr io.Writer) error
}

// osRunner is the production commandRunner backed by os/exec.
type osRunner struct{}

func (osRunner) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

func (osRunner) Run(ctx context.Context, name string, args []string, stdout, stderr io.Writer) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	return cmd.Run()
}

// SofficeRenderer renders through a LibreOffice binary on the local host.
type SofficeRenderer struct {
	bin    string
	runner commandRunner
}

// NewSofficeRenderer creates a renderer that invokes bin headless.
func NewSofficeRenderer(bin string) *SofficeRenderer {
	return &SofficeRenderer{bin: bin, runner: osRunner{}}
}

func (s *SofficeRenderer) Name() string { return "soffice" }

func (s *SofficeRenderer) Check(context.Context) error {
	if _, err := s.runner.LookPath(s.bin); err != nil {
		return fmt.Errorf("%s not found on PATH: %w", s.bin, err)
	}
	return nil
}

// Render converts src into a scratch directory, then moves the result to dst.
func (s *SofficeRenderer) Render(ctx context.Context, src, dst string, opts SaveOptions) error {
	absSrc, err := filepath.Abs(src)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", src, err)
	}

	scratch, err := os.MkdirTemp("", "xlsx2pdf-")
	if err != nil {
		return fmt.Errorf("creating scratch directory: %w", err)
	}
	defer os.RemoveAll(scratch)

	outDir := filepath.Join(scratch, "out")
	profile := "file://" + filepath.ToSlash(filepath.Join(scratch, "profile"))

	var stderr strings.Builder
	if err := s.runner.Run(ctx, s.bin, sofficeArgs(profile, outDir, absSrc, opts), io.Discard, &stderr); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%s: %w: %s", s.bin, err, msg)
		}
		return fmt.Errorf("%s: %w", s.bin, err)
	}

	return moveFile(filepath.Join(outDir, renderedName(src)), dst)
}

func (s *SofficeRenderer) Close() error { return nil }

// moveFile renames src to dst, copying when they sit on different devices.
func moveFile(src, dst string) error {
	if _, err := os.Stat(src); err != nil {
		return fmt.Errorf("engine output missing: %w", err)
	}
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("creating %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return fmt.Errorf("copying to %s: %w", dst, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return fmt.Errorf("closing %s: %w", dst, err)
	}
	return os.Remove(src)
}
