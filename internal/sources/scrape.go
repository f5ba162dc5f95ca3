package sources

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"gazette/internal/fetch"
)

// zeroResultRetryDelay is the wait before the single re-scrape of a source
// that unexpectedly returned nothing. Some sites serve an empty shell on the
// first hit and real content on the second.
const zeroResultRetryDelay = 3 * time.Second

// sitemapURL computes the date-specific page for sites that organize content
// chronologically under a sitemap path. Scraping the dated page avoids old
// headlines resurfacing from an "all posts" page.
func sitemapURL(src Descriptor, now time.Time) string {
	target := now
	if src.SitemapYesterday {
		target = target.AddDate(0, 0, -1)
	}
	path := src.SitemapFormat
	path = strings.ReplaceAll(path, "full_year", fmt.Sprintf("%d", target.Year()))
	path = strings.ReplaceAll(path, "month_lower", strings.ToLower(target.Month().String()))
	path = strings.ReplaceAll(path, "month_title_case", target.Month().String())
	path = strings.ReplaceAll(path, "day", fmt.Sprintf("%d", target.Day()))
	url := src.URL + path
	if src.SitemapTrailingSlash {
		url += "/"
	}
	return url
}

// findByTagAndClass matches elements of the tag whose class attribute
// contains the class as one of its tokens, like a soup-style class lookup.
func findByTagAndClass(doc *goquery.Document, tag, class string) *goquery.Selection {
	return doc.Find(tag).FilterFunction(func(_ int, s *goquery.Selection) bool {
		return s.HasClass(class)
	})
}

// findNext locates the first element of the wanted tag appearing after the
// given element: following siblings first, then their subtrees.
func findNext(s *goquery.Selection, tag string) *goquery.Selection {
	next := s.NextAllFiltered(tag).First()
	if next.Length() > 0 {
		return next
	}
	return s.NextAll().Find(tag).First()
}

func (e *Engine) fetchDocument(ctx context.Context, url string, browserHeaders bool) (*goquery.Document, error) {
	_, body, err := e.Client.Get(ctx, url, fetch.Options{BrowserHeaders: browserHeaders})
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse html from %s: %w", url, err)
	}
	return doc, nil
}

// retrieveScrape fetches a page and extracts items with exactly one of the
// configured strategies, then applies the optional follow-up hops.
func (e *Engine) retrieveScrape(ctx context.Context, src Descriptor) ([]string, error) {
	items, err := e.scrapeOnce(ctx, src)
	if err != nil {
		return nil, err
	}
	// Finicky sources sometimes work on the second swing. Skip the retry for
	// sources that legitimately return nothing most days.
	if len(items) == 0 && !src.ExpectEmpty {
		e.Log.Info("no items scraped, retrying once", "source", src.Name)
		e.Sleep(zeroResultRetryDelay)
		return e.scrapeOnce(ctx, src)
	}
	return items, nil
}

func (e *Engine) scrapeOnce(ctx context.Context, src Descriptor) ([]string, error) {
	url := src.URL
	if src.SitemapFormat != "" {
		url = sitemapURL(src, e.Now())
	}

	e.warnOnMultipleStrategies(src)

	// The img strategy always presents browser headers; image CDNs are the
	// most agent-sensitive of the scraped hosts.
	browserHeaders := src.BrowserHeaders || src.ImgTag
	doc, err := e.fetchDocument(ctx, url, browserHeaders)
	if err != nil {
		return nil, err
	}

	var sel *goquery.Selection
	switch {
	case src.SelectQuery != "":
		sel = doc.Find(src.SelectQuery)

	case src.TagClass != "":
		sel = findByTagAndClass(doc, src.Tag, src.TagClass)

	case src.MultitagGroup != "":
		return scrapeMultitag(doc, src, e), nil

	case src.ImgTag:
		return scrapeImgBlock(doc, src), nil

	default:
		sel = doc.Find(src.Tag)
	}

	if src.TagNext != "" {
		sel = findNext(sel.First(), src.TagNext)
	}

	if src.DetailPageRoot != "" {
		return e.scrapeDetailPage(ctx, sel, src, browserHeaders)
	}
	if src.SplitChar != "" {
		var items []string
		for _, part := range strings.Split(sel.Text(), src.SplitChar) {
			if part != "" {
				items = append(items, part)
			}
		}
		return items, nil
	}

	items := make([]string, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		items = append(items, s.Text())
	})
	return items, nil
}

func (e *Engine) warnOnMultipleStrategies(src Descriptor) {
	configured := 0
	for _, set := range []bool{src.SelectQuery != "", src.TagClass != "", src.MultitagGroup != "", src.ImgTag} {
		if set {
			configured++
		}
	}
	if configured > 1 {
		e.Log.Warn("multiple scraping strategies configured, only one will be used", "source", src.Name)
	}
}

// scrapeMultitag finds repeating groups and concatenates the text of each
// configured tag within a group into one item. A tag missing from some
// groups truncates at the zip, matching the shortest list.
func scrapeMultitag(doc *goquery.Document, src Descriptor, e *Engine) []string {
	groups := doc.Find(src.MultitagGroup)
	separator := src.MultitagSeparator
	if separator == "" {
		separator = " "
	}
	items := make([]string, 0, groups.Length())
	groups.Each(func(_ int, group *goquery.Selection) {
		parts := make([]string, 0, len(src.MultitagTags))
		for _, tag := range src.MultitagTags {
			found := group.Find(tag).First()
			if found.Length() == 0 {
				e.Log.Warn("multitag element missing from a group", "source", src.Name, "tag", tag)
				return
			}
			parts = append(parts, found.Text())
		}
		items = append(items, strings.Join(parts, separator))
	})
	return items
}

// scrapeImgBlock pulls the Nth <img> on the page and renders it as an HTML
// fragment under the configured header.
func scrapeImgBlock(doc *goquery.Document, src Descriptor) []string {
	img := doc.Find("img").Eq(src.ImgTagNumber)
	srcAttr, ok := img.Attr("src")
	if !ok || srcAttr == "" {
		return nil
	}
	return []string{fmt.Sprintf("<h4>%s</h4><img src=%q>", src.Header, srcAttr)}
}

// scrapeDetailPage follows the first item's link to a child page and builds
// one HTML block from its Nth image plus an optional text element.
func (e *Engine) scrapeDetailPage(ctx context.Context, sel *goquery.Selection, src Descriptor, browserHeaders bool) ([]string, error) {
	first := sel.First()
	link, ok := first.Attr("href")
	if !ok {
		return nil, fmt.Errorf("detail page item has no href")
	}
	header := strings.TrimSpace(first.Text())

	doc, err := e.fetchDocument(ctx, src.DetailPageRoot+link, browserHeaders)
	if err != nil {
		return nil, err
	}

	img := doc.Find("img").Eq(src.DetailImgNumber - 1)
	if img.Length() == 0 {
		return nil, fmt.Errorf("detail page has no image at position %d", src.DetailImgNumber)
	}
	alt, _ := img.Attr("alt")
	imgSrc, _ := img.Attr("src")
	if src.AddHTTPImg {
		imgSrc = "http:" + imgSrc
	}

	text := ""
	switch {
	case src.DetailTextTagClass != "":
		text = strings.TrimSpace(findByTagAndClass(doc, src.DetailTextTag, src.DetailTextTagClass).First().Text())
	case src.DetailTextTag != "":
		text = strings.TrimSpace(doc.Find(src.DetailTextTag).First().Text())
	}

	block := fmt.Sprintf("<h4>%s</h4><img alt=%q src=%q><p>%s</p>", header, alt, imgSrc, text)
	return []string{block}, nil
}
