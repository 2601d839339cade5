// Package evidence uploads generated documents as evidence revisions to a
// CISO Assistant compatible API.
package evidence

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"sort"
	"time"

	"frc2g/internal/config"
)

// Stats counts the outcome of UploadAll.
type Stats struct {
	Successful int
	Failed     int
	Total      int
}

type Publisher struct {
	uploadURL  string
	token      string
	timeout    time.Duration
	httpClient *http.Client
}

// NewPublisher returns a publisher for the configured evidence endpoint. It is
// disabled unless url, token and evidence id are all set.
func NewPublisher(cfg *config.Config) *Publisher {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: cfg.Gateway.InsecureSkipVerify}
	p := &Publisher{
		uploadURL:  cfg.EvidenceUploadURL(),
		token:      cfg.Evidence.Token,
		timeout:    cfg.Evidence.Timeout,
		httpClient: &http.Client{Transport: transport},
	}
	if p.Enabled() {
		slog.Debug("Evidence upload configured", "url", p.uploadURL)
	} else {
		slog.Debug("Evidence upload not configured")
	}
	return p
}

func (p *Publisher) Enabled() bool {
	return p.uploadURL != ""
}

// StatusError is a rejected upload.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upload rejected: HTTP %d", e.StatusCode)
}

func (e *StatusError) Hint() string {
	switch e.StatusCode {
	case http.StatusUnauthorized:
		return "authentication failed, check the evidence token"
	case http.StatusForbidden:
		return "access forbidden, check the evidence API permissions"
	case http.StatusNotFound:
		return "evidence endpoint not found, check the evidence id"
	}
	return ""
}

// Upload posts one PDF as multipart field "file".
func (p *Publisher) Upload(ctx context.Context, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filepath.Base(path)))
	header.Set("Content-Type", "application/pdf")
	part, err := writer.CreatePart(header)
	if err != nil {
		return fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return fmt.Errorf("failed to copy %s: %w", path, err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close writer: %w", err)
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.uploadURL, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Token "+p.token)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 500))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}
	slog.Debug("Upload response", "status", resp.StatusCode, "body", string(respBody))
	return nil
}

// UploadAll uploads every PDF of dir in name order. Failures are counted, not returned.
func (p *Publisher) UploadAll(ctx context.Context, dir string) Stats {
	var stats Stats
	if !p.Enabled() {
		return stats
	}
	if _, err := os.Stat(dir); err != nil {
		slog.Warn("Output directory not found", "dir", dir)
		return stats
	}
	pdfs, _ := filepath.Glob(filepath.Join(dir, "*.pdf"))
	sort.Strings(pdfs)
	if len(pdfs) == 0 {
		slog.Warn("No PDF files to upload", "dir", dir)
		return stats
	}

	stats.Total = len(pdfs)
	slog.Info("Uploading PDFs", "count", len(pdfs), "url", p.uploadURL)
	for _, pdf := range pdfs {
		if err := p.Upload(ctx, pdf); err != nil {
			stats.Failed++
			logUploadError(pdf, err)
			continue
		}
		stats.Successful++
		slog.Info("Uploaded", "file", filepath.Base(pdf))
	}
	slog.Info("Upload summary", "successful", stats.Successful, "failed", stats.Failed, "total", stats.Total)
	return stats
}

func logUploadError(path string, err error) {
	var se *StatusError
	if errors.As(err, &se) {
		slog.Error("Upload failed", "file", filepath.Base(path), "status", se.StatusCode)
		if hint := se.Hint(); hint != "" {
			slog.Error(hint)
		}
		slog.Debug("Response body", "body", se.Body)
		return
	}
	slog.Error("Upload failed", "file", filepath.Base(path), "error", err)
}
