// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package engine

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/xlsx2pdf/internal/httputil"
	"github.com/pdiddy/xlsx2pdf/pkg/types"
)

const (
	gotenbergConvertPath = "/forms/libreoffice/convert"
	gotenbergHealthPath  = "/health"
	// maxErrorBody bounds how much of an error response is quoted.
	maxErrorBody = 512
)

// GotenbergRenderer renders by posting the workbook to a Gotenberg service,
// which runs LibreOffice out of process.
type GotenbergRenderer struct {
	baseURL  string
	client   *http.Client
	cfg      types.HTTPConfig
	username string
	password string
}

// NewGotenbergRenderer creates a renderer for the Gotenberg instance at
// baseURL. Basic auth is sent when username is non-empty.
func NewGotenbergRenderer(baseURL string, cfg types.HTTPConfig, username, password string) *GotenbergRenderer {
	return &GotenbergRenderer{
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: cfg.Timeout},
		cfg:      cfg,
		username: username,
		password: password,
	}
}

func (g *GotenbergRenderer) Name() string { return "gotenberg" }

func (g *GotenbergRenderer) Check(ctx context.Context) error {
	req, err := g.newRequest(ctx, http.MethodGet, gotenbergHealthPath, nil, "")
	if err != nil {
		return err
	}
	resp, err := httputil.DoWithRetry(ctx, g.client, req, g.cfg.MaxRetries)
	if err != nil {
		return fmt.Errorf("gotenberg health check at %s: %w", g.baseURL, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("gotenberg health check at %s: HTTP %d", g.baseURL, resp.StatusCode)
	}
	return nil
}

func (g *GotenbergRenderer) Render(ctx context.Context, src, dst string, opts SaveOptions) error {
	body, contentType, err := g.form(src, opts)
	if err != nil {
		return err
	}

	req, err := g.newRequest(ctx, http.MethodPost, gotenbergConvertPath, body, contentType)
	if err != nil {
		return err
	}

	resp, err := httputil.DoWithRetry(ctx, g.client, req, g.cfg.MaxRetries)
	if err != nil {
		return fmt.Errorf("posting %s to gotenberg: %w", filepath.Base(src), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("gotenberg returned HTTP %d for %s: %s",
			resp.StatusCode, filepath.Base(src), strings.TrimSpace(string(msg)))
	}

	return writeBody(resp.Body, dst)
}

func (g *GotenbergRenderer) Close() error {
	g.client.CloseIdleConnections()
	return nil
}

// form builds the multipart body: the workbook under "files" plus the
// LibreOffice route options.
func (g *GotenbergRenderer) form(src string, opts SaveOptions) (*bytes.Buffer, string, error) {
	f, err := os.Open(src)
	if err != nil {
		return nil, "", fmt.Errorf("opening workbook %s: %w", src, err)
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	part, err := mw.CreateFormFile("files", filepath.Base(src))
	if err != nil {
		return nil, "", fmt.Errorf("creating form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", fmt.Errorf("reading workbook %s: %w", src, err)
	}
	if opts.OnePagePerSheet {
		if err := mw.WriteField("singlePageSheets", "true"); err != nil {
			return nil, "", fmt.Errorf("writing form field: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("closing form: %w", err)
	}
	return &buf, mw.FormDataContentType(), nil
}

func (g *GotenbergRenderer) newRequest(ctx context.Context, method, path string, body *bytes.Buffer, contentType string) (*http.Request, error) {
	var rd io.Reader
	if body != nil {
		rd = body
	}
	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, rd)
	if err != nil {
		return nil, fmt.Errorf("building gotenberg request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if g.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", g.cfg.UserAgent)
	}
	if g.username != "" {
		req.SetBasicAuth(g.username, g.password)
	}
	return req, nil
}

// writeBody streams r to dst via a temp file in the same directory.
func writeBody(r io.Reader, dst string) error {
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".render-*.pdf")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing %s: %w", dst, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing %s: %w", dst, err)
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming to %s: %w", dst, err)
	}
	return nil
}
