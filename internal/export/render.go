package export

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/raven-rwho/rem-expenses/internal/core"
)

var ErrUnknownFormat = errors.New("unknown export format")

// Renderer prints a report in one file format.
type Renderer interface {
	Format() string
	ContentType() string
	Render(w io.Writer, r core.ExpenseReport) error
}

// Document is a rendered export ready to be served or archived.
type Document struct {
	Filename    string
	ContentType string
	Body        []byte
}

// RendererFor returns the renderer for "csv" or "pdf".
func RendererFor(format string) (Renderer, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "csv":
		return CSVRenderer{}, nil
	case "pdf":
		return PDFRenderer{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

// Formats lists the supported download formats.
func Formats() []string {
	return []string{"csv", "pdf"}
}

// Render renders r in memory and names the result after the trip dates.
func Render(rd Renderer, r core.ExpenseReport) (Document, error) {
	var buf bytes.Buffer
	if err := rd.Render(&buf, r); err != nil {
		return Document{}, fmt.Errorf("render %s: %w", rd.Format(), err)
	}
	return Document{
		Filename:    Filename(r, rd.Format()),
		ContentType: rd.ContentType(),
		Body:        buf.Bytes(),
	}, nil
}
