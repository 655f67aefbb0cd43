package prober

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"github.com/google/uuid"
	"golang.org/x/net/html"

	"github.com/romangod6/sitemap-harvester/internal/models"
	"github.com/romangod6/sitemap-harvester/internal/storage"
)

// Prober visits discovered URLs to confirm they resolve and to pick up page
// titles. It is an optional pass after harvesting; the sitemap walk itself
// never touches page content.
type Prober struct {
	store     storage.Store
	userAgent string
}

func New(store storage.Store, userAgent string) *Prober {
	return &Prober{
		store:     store,
		userAgent: userAgent,
	}
}

// Probe visits each URL and writes status code and title back to the store.
func (p *Prober) Probe(ctx context.Context, sourceID uuid.UUID, urls []*models.DiscoveredURL) error {
	c := colly.NewCollector(
		colly.UserAgent(p.userAgent),
		colly.MaxDepth(1),
	)

	// Keep the probe polite
	c.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: 2,
		RandomDelay: 1 * time.Second,
	})

	c.OnResponse(func(r *colly.Response) {
		location := r.Request.URL.String()
		title := extractTitle(r.Body)
		if err := p.store.SetProbeResult(ctx, sourceID, location, r.StatusCode, title); err != nil {
			log.Printf("Error recording probe result for %s: %v", location, err)
		}
	})

	c.OnError(func(r *colly.Response, err error) {
		location := r.Request.URL.String()
		log.Printf("Probe failed for %s: %v", location, err)
		if r.StatusCode > 0 {
			if err := p.store.SetProbeResult(ctx, sourceID, location, r.StatusCode, ""); err != nil {
				log.Printf("Error recording probe result for %s: %v", location, err)
			}
		}
	})

	for idx, url := range urls {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			log.Printf("Probing URL %d/%d: %s", idx+1, len(urls), url.Location)
			if err := c.Visit(url.Location); err != nil {
				log.Printf("Error visiting %s: %v", url.Location, err)
			}
		}
	}

	c.Wait()
	return nil
}

// extractTitle pulls <title>, falling back to the first <h1>.
func extractTitle(body []byte) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return ""
	}

	title := cleanText(doc.Find("title").First().Text())
	if title == "" {
		title = cleanText(doc.Find("h1").First().Text())
	}
	if title == "" {
		// Last resort for documents goquery could not make sense of.
		title = cleanText(rawTitle(body))
	}
	return title
}

// rawTitle walks the bare parse tree looking for a title element.
func rawTitle(body []byte) string {
	doc, err := html.Parse(strings.NewReader(string(body)))
	if err != nil {
		return ""
	}

	var title string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if title != "" {
			return
		}
		if n.Type == html.ElementNode && n.Data == "title" {
			if n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
				title = n.FirstChild.Data
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return title
}

// cleanText collapses runs of whitespace to single spaces.
func cleanText(s string) string {
	return strings.TrimSpace(strings.Join(strings.Fields(s), " "))
}
