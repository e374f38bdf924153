package visualagent

import (
	"context"
	"crypto/sha256"
	"fmt"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// StructuralCapturer is the degraded-mode Capturer used when no real
// headless-browser automation is wired in: it fetches the page, walks
// its DOM with goquery, and renders a deterministic textual summary
// (tag counts, heading text, image alt text) as a synthetic "image" —
// a monospace text rendering a vision-capable LLM can still grade
// structurally, at the cost of pixel-level fidelity.
type StructuralCapturer struct {
	Client *http.Client
}

// NewStructuralCapturer returns a StructuralCapturer using http.DefaultClient.
func NewStructuralCapturer() *StructuralCapturer {
	return &StructuralCapturer{Client: http.DefaultClient}
}

func (c *StructuralCapturer) Capture(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", url, err)
	}
	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s as HTML: %w", url, err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "STRUCTURAL SNAPSHOT: %s\n", url)
	fmt.Fprintf(&b, "title: %s\n", strings.TrimSpace(doc.Find("title").First().Text()))
	doc.Find("h1, h2, h3").Each(func(i int, s *goquery.Selection) {
		fmt.Fprintf(&b, "heading[%s]: %s\n", goquery.NodeName(s), strings.TrimSpace(s.Text()))
	})
	doc.Find("img").Each(func(i int, s *goquery.Selection) {
		alt, _ := s.Attr("alt")
		src, _ := s.Attr("src")
		fmt.Fprintf(&b, "img: src=%s alt=%q\n", src, alt)
	})
	fmt.Fprintf(&b, "content-hash: %x\n", sha256.Sum256([]byte(doc.Text())))

	return []byte(b.String()), nil
}
