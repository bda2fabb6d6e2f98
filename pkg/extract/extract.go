package extract

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/gyansingh18/ai-tutor-learning-platform/internal/models"
)

// ErrUnreadableDocument marks a source document whose content cannot be
// turned into text. The ingestion worker skips the document and creates no
// chunks.
type ErrUnreadableDocument struct {
	DocumentID  string
	ContentType string
	Cause       error
}

func (e *ErrUnreadableDocument) Error() string {
	return fmt.Sprintf("document %s unreadable (content type %q): %v", e.DocumentID, e.ContentType, e.Cause)
}

func (e *ErrUnreadableDocument) Unwrap() error {
	return e.Cause
}

// Extractor reduces uploaded study material to plain text for chunking.
type Extractor struct{}

func New() Extractor {
	return Extractor{}
}

// Extract returns the visible text of the document. Plain text and markdown
// pass through with whitespace normalized; HTML is stripped of markup and
// boilerplate elements. Unknown content types are an ingestion read failure.
func (e *Extractor) Extract(doc models.Document) (string, error) {
	switch normalizeContentType(doc.ContentType) {
	case "text/plain", "text/markdown", "":
		return cleanContent(doc.Content), nil
	case "text/html":
		text, err := htmlText(doc.Content)
		if err != nil {
			return "", &ErrUnreadableDocument{
				DocumentID:  doc.ID,
				ContentType: doc.ContentType,
				Cause:       err,
			}
		}
		return text, nil
	default:
		return "", &ErrUnreadableDocument{
			DocumentID:  doc.ID,
			ContentType: doc.ContentType,
			Cause:       fmt.Errorf("unsupported content type"),
		}
	}
}

func normalizeContentType(ct string) string {
	ct = strings.TrimSpace(strings.ToLower(ct))
	// Strip parameters like "; charset=utf-8"
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	return ct
}

func htmlText(content string) (string, error) {
	document, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return "", err
	}

	// Remove non-content elements
	document.Find("script, style, nav, header, footer").Remove()

	var text strings.Builder
	document.Find("h1, h2, h3, h4, h5, h6, p, li, td, pre, blockquote").Each(func(i int, s *goquery.Selection) {
		t := strings.TrimSpace(s.Text())
		if t != "" {
			text.WriteString(t)
			text.WriteString("\n")
		}
	})

	// Fall back to the whole body when the document has no block elements
	if text.Len() == 0 {
		return cleanContent(document.Text()), nil
	}

	return cleanContent(text.String()), nil
}

func cleanContent(content string) string {
	return strings.TrimSpace(strings.Join(strings.Fields(content), " "))
}
