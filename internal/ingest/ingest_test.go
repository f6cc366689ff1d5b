package ingest

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	pdflib "github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/Epistemic-Technology/critique-mcp/internal/logger"
)

func testExtractor() *Extractor {
	return NewExtractor(0, 0, logger.NewNoOpLogger())
}

func TestExtractSamplePDFs(t *testing.T) {
	files, err := filepath.Glob(filepath.Join("testdata", "*.pdf"))
	if err != nil {
		t.Fatalf("Failed to list sample PDFs: %v", err)
	}
	if len(files) == 0 {
		t.Skip("No sample PDFs found in testdata directory")
	}

	for _, filePath := range files {
		t.Run(filepath.Base(filePath), func(t *testing.T) {
			data, err := os.ReadFile(filePath)
			if err != nil {
				t.Fatalf("Failed to read PDF file %s: %v", filePath, err)
			}

			expectedPageCount, err := api.PageCount(bytes.NewReader(data), nil)
			if err != nil {
				t.Fatalf("Failed to get page count: %v", err)
			}

			pages, err := testExtractor().Extract(context.Background(), data)
			if err != nil {
				t.Fatalf("Extract() error = %v", err)
			}
			if len(pages) != expectedPageCount {
				t.Errorf("Extract() returned %d pages, want %d", len(pages), expectedPageCount)
			}

			for i, page := range pages {
				if page.Number != i+1 {
					t.Errorf("pages[%d].Number = %d, want %d", i, page.Number, i+1)
				}
				if len(page.Spans) == 0 {
					continue
				}
				texts := make([]string, len(page.Spans))
				for j, span := range page.Spans {
					texts[j] = span.Text
				}
				if joined := strings.Join(texts, "\n"); joined != page.Text {
					t.Errorf("page %d text does not equal its joined span texts", page.Number)
				}
			}
		})
	}
}

func TestExtractEmptyDocument(t *testing.T) {
	_, err := testExtractor().Extract(context.Background(), nil)
	if err == nil {
		t.Fatal("Extract() expected error for empty data")
	}
}

func TestExtractRejectsNonPDF(t *testing.T) {
	_, err := testExtractor().Extract(context.Background(), []byte("This is just plain text content"))
	if err == nil {
		t.Fatal("Extract() expected error for non-PDF data")
	}
	if !strings.Contains(err.Error(), "unsupported document type") {
		t.Errorf("Extract() error = %v, want unsupported document type", err)
	}
}

func TestExtractRejectsOversizedDocument(t *testing.T) {
	e := NewExtractor(16, 0, logger.NewNoOpLogger())
	data := []byte("%PDF-1.4 and enough filler to pass sixteen bytes")

	_, err := e.Extract(context.Background(), data)
	if !errors.Is(err, ErrDocumentTooLarge) {
		t.Fatalf("Extract() error = %v, want ErrDocumentTooLarge", err)
	}
}

func TestReadSource(t *testing.T) {
	content := []byte("%PDF-1.4 file content")
	path := filepath.Join(t.TempDir(), "doc.pdf")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	t.Run("from path", func(t *testing.T) {
		data, err := ReadSource(path, "")
		if err != nil {
			t.Fatalf("ReadSource() error = %v", err)
		}
		if !bytes.Equal(data, content) {
			t.Errorf("ReadSource() = %q, want file content", data)
		}
	})

	t.Run("from base64", func(t *testing.T) {
		encoded := base64.StdEncoding.EncodeToString(content)
		data, err := ReadSource("", encoded)
		if err != nil {
			t.Fatalf("ReadSource() error = %v", err)
		}
		if !bytes.Equal(data, content) {
			t.Errorf("ReadSource() = %q, want decoded content", data)
		}
	})

	t.Run("path takes precedence", func(t *testing.T) {
		encoded := base64.StdEncoding.EncodeToString([]byte("other bytes"))
		data, err := ReadSource(path, encoded)
		if err != nil {
			t.Fatalf("ReadSource() error = %v", err)
		}
		if !bytes.Equal(data, content) {
			t.Errorf("ReadSource() = %q, want file content", data)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := ReadSource(filepath.Join(t.TempDir(), "absent.pdf"), ""); err == nil {
			t.Error("ReadSource() expected error for missing file")
		}
	})

	t.Run("invalid base64", func(t *testing.T) {
		if _, err := ReadSource("", "!!!not base64!!!"); err == nil {
			t.Error("ReadSource() expected error for invalid base64")
		}
	})

	t.Run("no source", func(t *testing.T) {
		if _, err := ReadSource("", ""); err == nil {
			t.Error("ReadSource() expected error when no source given")
		}
	})
}

func TestDetectType(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected string
	}{
		{"PDF document", []byte("%PDF-1.4\nsome pdf content"), "pdf"},
		{"HTML with DOCTYPE", []byte("<!DOCTYPE html><html><body>test</body></html>"), "html"},
		{"HTML with leading whitespace", []byte("  \n <html><body>test</body></html>"), "html"},
		{"DOCX", append([]byte{0x50, 0x4B, 0x03, 0x04}, []byte("word/document.xml")...), "docx"},
		{"plain ZIP", []byte{0x50, 0x4B, 0x03, 0x04, 0x00, 0x00, 0x00, 0x00}, "zip"},
		{"Markdown", []byte("# Title\n\nSome markdown content"), "md"},
		{"plain text", []byte("This is just plain text content"), "txt"},
		{"binary data", []byte{0x00, 0x01, 0x02, 0xFF, 0xFE}, "unknown"},
		{"empty data", []byte{}, "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectType(tt.data); got != tt.expected {
				t.Errorf("DetectType() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestRowSpan(t *testing.T) {
	const pageHeight = 792.0

	t.Run("fragments sort and merge", func(t *testing.T) {
		content := []pdflib.Text{
			{X: 200, W: 50, FontSize: 11, S: "world"},
			{X: 72, W: 40, FontSize: 12, S: "hello "},
		}

		span, ok := rowSpan(content, 700, pageHeight)
		if !ok {
			t.Fatal("rowSpan() returned not ok")
		}
		if span.Text != "hello world" {
			t.Errorf("span.Text = %q, want %q", span.Text, "hello world")
		}
		if span.Box.X != 72 {
			t.Errorf("span.Box.X = %v, want 72", span.Box.X)
		}
		if span.Box.Width != 178 {
			t.Errorf("span.Box.Width = %v, want 178", span.Box.Width)
		}
		if span.Box.Height != 12 {
			t.Errorf("span.Box.Height = %v, want max fragment size 12", span.Box.Height)
		}
		if span.Box.Y != pageHeight-700-12 {
			t.Errorf("span.Box.Y = %v, want %v", span.Box.Y, pageHeight-700-12)
		}
	})

	t.Run("empty row", func(t *testing.T) {
		if _, ok := rowSpan(nil, 700, pageHeight); ok {
			t.Error("rowSpan() ok for empty content")
		}
	})

	t.Run("whitespace only", func(t *testing.T) {
		content := []pdflib.Text{{X: 72, W: 10, FontSize: 12, S: "   "}}
		if _, ok := rowSpan(content, 700, pageHeight); ok {
			t.Error("rowSpan() ok for whitespace-only content")
		}
	})

	t.Run("missing font size", func(t *testing.T) {
		content := []pdflib.Text{{X: 72, W: 40, S: "text"}}
		span, ok := rowSpan(content, 700, pageHeight)
		if !ok {
			t.Fatal("rowSpan() returned not ok")
		}
		if span.Box.Height != defaultFontSize {
			t.Errorf("span.Box.Height = %v, want default %v", span.Box.Height, defaultFontSize)
		}
	})

	t.Run("y clamped to page", func(t *testing.T) {
		content := []pdflib.Text{{X: 72, W: 40, FontSize: 12, S: "header"}}
		span, ok := rowSpan(content, 790, pageHeight)
		if !ok {
			t.Fatal("rowSpan() returned not ok")
		}
		if span.Box.Y != 0 {
			t.Errorf("span.Box.Y = %v, want clamped 0", span.Box.Y)
		}
	})
}

func TestMediaBoxHeightFallback(t *testing.T) {
	if h := mediaBoxHeight(pdflib.Page{}); h != letterHeight {
		t.Errorf("mediaBoxHeight() = %v, want letter fallback %v", h, letterHeight)
	}
}
