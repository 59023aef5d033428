package render

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/Sriram-PR/page-fetcher/pkg/models"
)

// ExtractSummary pulls the title, meta description and first h1 out of an HTML document.
// An element that is absent yields a nil field; a present but empty element yields "".
// A description meta tag without a content attribute counts as absent.
func ExtractSummary(html string) (models.Summary, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return models.Summary{}, fmt.Errorf("parse HTML: %w", err)
	}
	return summaryFromDocument(doc), nil
}

func summaryFromDocument(doc *goquery.Document) models.Summary {
	var s models.Summary

	if title := doc.Find("title").First(); title.Length() > 0 {
		s.Title = stringPtr(strings.TrimSpace(title.Text()))
	}
	if meta := doc.Find(`meta[name="description"]`).First(); meta.Length() > 0 {
		if content, ok := meta.Attr("content"); ok {
			s.MetaDescription = stringPtr(content)
		}
	}
	if h1 := doc.Find("h1").First(); h1.Length() > 0 {
		s.H1 = stringPtr(strings.TrimSpace(h1.Text()))
	}
	return s
}

func stringPtr(s string) *string {
	return &s
}
