// Package htmlmd converts fetched HTML into markdown text plus the page's
// structured outbound links. The conversion is deliberately coarse: block
// elements become markdown blocks and everything else is flattened to text.
// Fidelity of the markdown is not a goal; the crawler only needs a stable
// textual body and the anchor hrefs.
package htmlmd

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/atom"

	"github.com/mdcrawl/mdcrawl/internal/crawler"
)

// Document is the converted form of one HTML page.
type Document struct {
	Title    string
	Markdown string
	Links    []crawler.Link
}

// Convert parses body and produces the markdown rendition and anchor links.
func Convert(body []byte) (Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return Document{}, fmt.Errorf("parse html: %w", err)
	}

	out := Document{Title: strings.TrimSpace(doc.Find("title").First().Text())}

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok {
			return
		}
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") {
			return
		}
		out.Links = append(out.Links, crawler.Link{Href: href})
	})

	var sb strings.Builder
	if out.Title != "" {
		sb.WriteString("# " + out.Title + "\n\n")
	}
	doc.Find("h1, h2, h3, h4, h5, h6, p, li, pre, blockquote").Each(func(_ int, s *goquery.Selection) {
		writeBlock(&sb, s)
	})
	out.Markdown = strings.TrimRight(sb.String(), "\n") + "\n"
	return out, nil
}

func writeBlock(sb *strings.Builder, s *goquery.Selection) {
	node := s.Get(0)
	if node.DataAtom == atom.Pre {
		code := strings.Trim(s.Text(), "\n")
		if code == "" {
			return
		}
		sb.WriteString("```\n" + code + "\n```\n\n")
		return
	}

	text := collapseWhitespace(s.Text())
	if text == "" {
		return
	}
	switch node.DataAtom {
	case atom.H1:
		sb.WriteString("# " + text + "\n\n")
	case atom.H2:
		sb.WriteString("## " + text + "\n\n")
	case atom.H3:
		sb.WriteString("### " + text + "\n\n")
	case atom.H4:
		sb.WriteString("#### " + text + "\n\n")
	case atom.H5:
		sb.WriteString("##### " + text + "\n\n")
	case atom.H6:
		sb.WriteString("###### " + text + "\n\n")
	case atom.Li:
		sb.WriteString("- " + text + "\n")
	case atom.Blockquote:
		sb.WriteString("> " + text + "\n\n")
	default:
		sb.WriteString(text + "\n\n")
	}
}

func collapseWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
