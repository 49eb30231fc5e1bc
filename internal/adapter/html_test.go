package adapter

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"akiyascout/server/internal/governor"
	"akiyascout/server/internal/models"
)

const indexPage = `
<html><body>
  <div class="listing-item" data-listing-id="ak-101">
    <a class="listing-link" href="/listings/ak-101">詳細</a>
    <div class="listing-title">古民家 平屋</div>
    <div class="listing-address">秋田県大仙市1-2-3</div>
    <div class="listing-price">480万円</div>
    <div class="listing-land-area">165.29㎡</div>
    <div class="listing-year-built">1975年築</div>
    <div class="listing-description">リフォーム済み</div>
    <div class="listing-photos"><img src="/img/ak-101-1.jpg"></div>
  </div>
  <div class="listing-item" data-listing-id="ak-102">
    <div class="listing-title">空き家</div>
    <div class="listing-price">1,200,000円</div>
  </div>
  <div class="listing-item"><div class="listing-title">no id, dropped</div></div>
</body></html>`

func newHTMLTestAdapter(baseURL string) Adapter {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return NewHTML(models.Source{ID: "akiya", BaseURL: baseURL}, governor.New(logger), logger)
}

func TestHTMLStreamParsesIndexPages(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "1" {
			fmt.Fprint(w, indexPage)
			return
		}
		fmt.Fprint(w, "<html><body></body></html>")
	}))
	defer server.Close()

	stream, err := newHTMLTestAdapter(server.URL).Stream(context.Background(), "05")
	require.NoError(t, err)
	defer stream.Close()

	first, err := stream.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ak-101", first.SourceListingID)
	assert.Equal(t, "秋田県大仙市1-2-3", first.Address)
	assert.Equal(t, server.URL+"/listings/ak-101", first.SourceURL)
	require.NotNil(t, first.Price)
	assert.Equal(t, int64(4_800_000), *first.Price)
	require.NotNil(t, first.LandAreaSqm)
	assert.InDelta(t, 165.29, *first.LandAreaSqm, 0.001)
	require.NotNil(t, first.YearBuilt)
	assert.Equal(t, 1975, *first.YearBuilt)
	assert.Equal(t, "リフォーム済み", first.Raw["description"])
	assert.Equal(t, []string{server.URL + "/img/ak-101-1.jpg"}, first.ImageURLs)

	second, err := stream.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ak-102", second.SourceListingID)
	require.NotNil(t, second.Price)
	assert.Equal(t, int64(1_200_000), *second.Price)

	// Rows without a listing id are dropped; the empty page 2 ends the stream.
	_, err = stream.Next(context.Background())
	assert.ErrorIs(t, err, io.EOF)
}

func TestHTMLStreamFailsOnBadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	_, err := newHTMLTestAdapter(server.URL).Stream(context.Background(), "05")
	require.Error(t, err)

	var adapterErr *Error
	require.ErrorAs(t, err, &adapterErr)
	assert.Equal(t, "akiya", adapterErr.SourceID)
}

func TestParseYen(t *testing.T) {
	tests := []struct {
		input    string
		expected int64
		ok       bool
	}{
		{"480万円", 4_800_000, true},
		{"4,800,000円", 4_800_000, true},
		{"350万", 3_500_000, true},
		{"1980000", 1_980_000, true},
		{"応相談", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		n, ok := parseYen(tt.input)
		assert.Equal(t, tt.ok, ok, "input %q", tt.input)
		if ok {
			assert.Equal(t, tt.expected, n, "input %q", tt.input)
		}
	}
}

func TestParseSqm(t *testing.T) {
	n, ok := parseSqm("165.29㎡")
	require.True(t, ok)
	assert.InDelta(t, 165.29, n, 0.001)

	n, ok = parseSqm("80m2")
	require.True(t, ok)
	assert.InDelta(t, 80, n, 0.001)

	_, ok = parseSqm("未測量")
	assert.False(t, ok)
}

func TestParseYear(t *testing.T) {
	n, ok := parseYear("1975年築")
	require.True(t, ok)
	assert.Equal(t, 1975, n)

	_, ok = parseYear("不明")
	assert.False(t, ok)

	// Out-of-range years are treated as unparseable.
	_, ok = parseYear("1700年")
	assert.False(t, ok)
}
