package process

import (
	"fmt"
	"net/url"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
)

// noiseSelectors are removed before conversion; none of them carry readable content
var noiseSelectors = []string{
	"script", "style", "noscript", "template", "iframe", "svg",
	"a.headerlink", "a.permalink",
	"a[title='Permalink to this heading']",
	"a[title='Link to this heading']",
}

// ToMarkdown converts a rendered HTML document to Markdown. Relative links are made
// absolute against pageURL when it is an absolute URL.
func ToMarkdown(html, pageURL string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("parse HTML: %w", err)
	}

	content := doc.Find("body").First()
	if content.Length() == 0 {
		content = doc.Selection
	}
	cleanupHTML(content)
	if base, err := url.Parse(pageURL); err == nil && base.IsAbs() {
		absolutizeLinks(content, base)
	}

	cleaned, err := goquery.OuterHtml(content)
	if err != nil {
		return "", fmt.Errorf("serialize cleaned HTML: %w", err)
	}

	converter := md.NewConverter("", true, nil)
	markdown, err := converter.ConvertString(cleaned)
	if err != nil {
		return "", fmt.Errorf("convert to markdown: %w", err)
	}
	return strings.TrimSpace(markdown), nil
}

// cleanupHTML drops non-content elements and anchors that only hold a pilcrow or a bare fragment
func cleanupHTML(content *goquery.Selection) {
	for _, sel := range noiseSelectors {
		content.Find(sel).Remove()
	}

	content.Find("a").Each(func(i int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		href, _ := s.Attr("href")
		if text == "¶" || text == "#" || (text == "" && strings.HasPrefix(href, "#")) {
			s.Remove()
		}
	})
}

// absolutizeLinks resolves href and src attributes against base
func absolutizeLinks(content *goquery.Selection, base *url.URL) {
	resolve := func(attr string) func(int, *goquery.Selection) {
		return func(i int, s *goquery.Selection) {
			raw, _ := s.Attr(attr)
			ref, err := url.Parse(strings.TrimSpace(raw))
			if err != nil || ref.Scheme == "data" {
				return
			}
			s.SetAttr(attr, base.ResolveReference(ref).String())
		}
	}
	content.Find("a[href]").Each(resolve("href"))
	content.Find("img[src]").Each(resolve("src"))
}
