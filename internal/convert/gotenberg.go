// Package convert turns rendered documents into PDF through a Gotenberg
// instance (LibreOffice route).
package convert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/MrJamesThe3rd/docforge/internal/apperr"
	"github.com/MrJamesThe3rd/docforge/internal/render"
)

const (
	ContentTypePDF = "application/pdf"
	ExtPDF         = ".pdf"

	convertPath = "/forms/libreoffice/convert"
)

var pdfMagic = []byte("%PDF-")

type Options struct {
	URL      string
	Timeout  time.Duration
	RetryMax int
	Logger   *slog.Logger
}

type Gotenberg struct {
	client  *retryablehttp.Client
	url     string
	timeout time.Duration
}

func NewGotenberg(opts Options) *Gotenberg {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	client := retryablehttp.NewClient()
	client.RetryMax = opts.RetryMax
	client.RetryWaitMin = 200 * time.Millisecond
	client.RetryWaitMax = 2 * time.Second
	client.Logger = logger.With("component", "converter")
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &Gotenberg{
		client:  client,
		url:     strings.TrimRight(opts.URL, "/"),
		timeout: opts.Timeout,
	}
}

// Convert sends data to Gotenberg and returns the PDF. The whole call,
// retries included, is bounded by the configured timeout.
func (g *Gotenberg) Convert(ctx context.Context, data []byte) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	body, contentType, err := form(data)
	if err != nil {
		return nil, apperr.Mark(fmt.Errorf("building conversion form: %w", err), apperr.ErrConversionService)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, g.url+convertPath, body)
	if err != nil {
		return nil, apperr.Mark(fmt.Errorf("building conversion request: %w", err), apperr.ErrConversionService)
	}

	req.Header.Set("Content-Type", contentType)

	resp, err := g.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, apperr.Mark(fmt.Errorf("converting after %s: %w", g.timeout, err), apperr.ErrConversionTimeout)
		}

		return nil, apperr.Mark(fmt.Errorf("calling converter: %w", err), apperr.ErrConversionService)
	}
	defer resp.Body.Close()

	out, err := io.ReadAll(resp.Body)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, apperr.Mark(fmt.Errorf("reading conversion after %s: %w", g.timeout, err), apperr.ErrConversionTimeout)
		}

		return nil, apperr.Mark(fmt.Errorf("reading conversion: %w", err), apperr.ErrConversionService)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apperr.Newf(apperr.ErrConversionService, "converter returned %d: %s", resp.StatusCode, snippet(out))
	}

	if !bytes.HasPrefix(out, pdfMagic) {
		return nil, apperr.Newf(apperr.ErrConversionService, "converter returned a non-pdf body: %s", snippet(out))
	}

	return out, nil
}

// form builds the multipart body Gotenberg expects: one "files" part whose
// filename extension tells LibreOffice how to read it.
func form(data []byte) ([]byte, string, error) {
	format := render.Detect(data)

	var buf bytes.Buffer

	w := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files"; filename="document%s"`, format.Ext))
	header.Set("Content-Type", format.ContentType)

	part, err := w.CreatePart(header)
	if err != nil {
		return nil, "", err
	}

	if _, err := part.Write(data); err != nil {
		return nil, "", err
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}

	return buf.Bytes(), w.FormDataContentType(), nil
}

func snippet(b []byte) string {
	const limit = 200

	s := strings.TrimSpace(string(b))
	if len(s) > limit {
		return s[:limit] + "..."
	}

	return s
}
