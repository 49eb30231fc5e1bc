package adapter

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	"akiyascout/server/internal/governor"
	"akiyascout/server/internal/models"
)

const userAgent = "AkiyaScout/1.0 (+https://akiyascout.example)"

// HTMLAdapter scrapes server-rendered listing index pages, the shape most
// municipal akiya banks publish. One index page per request, paginated until
// a page yields no rows. Sites that need JavaScript rendering are out of
// scope and get their own out-of-process adapters.
type HTMLAdapter struct {
	source models.Source
	gov    *governor.Governor
	logger *logrus.Logger
	client *http.Client
}

func NewHTML(src models.Source, gov *governor.Governor, logger *logrus.Logger) Adapter {
	return &HTMLAdapter{
		source: src,
		gov:    gov,
		logger: logger,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

func (a *HTMLAdapter) SourceID() string {
	return a.source.ID
}

func (a *HTMLAdapter) Stream(ctx context.Context, regionCode string) (Stream, error) {
	s := &htmlStream{adapter: a, regionCode: regionCode, page: 1}

	// Fetch the first page eagerly so unreachable or blocked sources fail
	// the job before any record is processed.
	if err := s.fetchPage(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

type htmlStream struct {
	adapter    *HTMLAdapter
	regionCode string
	page       int
	buffer     []models.RawListing
	pos        int
	exhausted  bool
}

func (s *htmlStream) Next(ctx context.Context) (*models.RawListing, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for s.pos >= len(s.buffer) {
		if s.exhausted {
			return nil, io.EOF
		}
		if err := s.fetchPage(ctx); err != nil {
			return nil, err
		}
	}
	item := s.buffer[s.pos]
	s.pos++
	return &item, nil
}

func (s *htmlStream) Close() error {
	return nil
}

func (s *htmlStream) fetchPage(ctx context.Context) error {
	a := s.adapter

	release, err := a.gov.Acquire(ctx, a.source.ID)
	if err != nil {
		return err
	}
	defer release()

	url := fmt.Sprintf("%s?pref=%s&page=%d",
		strings.TrimRight(a.source.BaseURL, "/"), s.regionCode, s.page)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return &Error{SourceID: a.source.ID, Err: err}
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := a.client.Do(req)
	if err != nil {
		return &Error{SourceID: a.source.ID, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &Error{
			SourceID: a.source.ID,
			Err:      fmt.Errorf("unexpected status %d for %s", resp.StatusCode, url),
		}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return &Error{SourceID: a.source.ID, Err: fmt.Errorf("failed to parse %s: %w", url, err)}
	}

	items := s.parseListings(doc)
	a.logger.WithFields(logrus.Fields{
		"source": a.source.ID,
		"region": s.regionCode,
		"page":   s.page,
		"items":  len(items),
	}).Debug("Fetched listing index page")

	if len(items) == 0 {
		s.exhausted = true
		return nil
	}

	s.buffer = items
	s.pos = 0
	s.page++
	return nil
}

func (s *htmlStream) parseListings(doc *goquery.Document) []models.RawListing {
	a := s.adapter
	var items []models.RawListing

	doc.Find(".listing-item").Each(func(_ int, sel *goquery.Selection) {
		id, _ := sel.Attr("data-listing-id")
		if id == "" {
			return
		}

		raw := models.RawListing{
			Source:          a.source.ID,
			SourceListingID: id,
			Title:           strings.TrimSpace(sel.Find(".listing-title").Text()),
			Address:         strings.TrimSpace(sel.Find(".listing-address").Text()),
			Prefecture:      s.regionCode,
			Raw:             map[string]interface{}{},
		}
		if href, ok := sel.Find("a.listing-link").Attr("href"); ok {
			raw.SourceURL = absoluteURL(a.source.BaseURL, href)
		}
		if price, ok := parseYen(sel.Find(".listing-price").Text()); ok {
			raw.Price = &price
		}
		if area, ok := parseSqm(sel.Find(".listing-land-area").Text()); ok {
			raw.LandAreaSqm = &area
		}
		if area, ok := parseSqm(sel.Find(".listing-building-area").Text()); ok {
			raw.BuildingAreaSqm = &area
		}
		if year, ok := parseYear(sel.Find(".listing-year-built").Text()); ok {
			raw.YearBuilt = &year
		}
		sel.Find(".listing-photos img").Each(func(_ int, img *goquery.Selection) {
			if src, ok := img.Attr("src"); ok {
				raw.ImageURLs = append(raw.ImageURLs, absoluteURL(a.source.BaseURL, src))
			}
		})

		raw.Raw["title"] = raw.Title
		raw.Raw["address"] = raw.Address
		if desc := strings.TrimSpace(sel.Find(".listing-description").Text()); desc != "" {
			raw.Raw["description"] = desc
		}

		items = append(items, raw)
	})

	return items
}

func absoluteURL(base, href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(href, "/")
}

// parseYen reads prices like "480万円" or "4,800,000円".
func parseYen(text string) (int64, bool) {
	t := strings.TrimSpace(text)
	if t == "" {
		return 0, false
	}
	t = strings.ReplaceAll(t, ",", "")
	t = strings.TrimSuffix(t, "円")
	if idx := strings.Index(t, "万"); idx >= 0 {
		n, err := strconv.ParseFloat(t[:idx], 64)
		if err != nil {
			return 0, false
		}
		return int64(n * 10_000), true
	}
	n, err := strconv.ParseInt(t, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// parseSqm reads areas like "165.29㎡" or "165.29m2".
func parseSqm(text string) (float64, bool) {
	t := strings.TrimSpace(text)
	for _, suffix := range []string{"㎡", "m2", "m²"} {
		t = strings.TrimSuffix(t, suffix)
	}
	t = strings.TrimSpace(t)
	if t == "" {
		return 0, false
	}
	n, err := strconv.ParseFloat(t, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func parseYear(text string) (int, bool) {
	t := strings.TrimSpace(text)
	t = strings.TrimSuffix(t, "年築")
	t = strings.TrimSuffix(t, "年")
	if t == "" {
		return 0, false
	}
	n, err := strconv.Atoi(t)
	if err != nil || n < 1850 || n > 2100 {
		return 0, false
	}
	return n, true
}
