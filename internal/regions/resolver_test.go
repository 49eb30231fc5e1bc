package regions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"akiyascout/server/config"
	"akiyascout/server/internal/models"
)

func newTestResolver() *Resolver {
	return NewResolver(config.Prefectures)
}

func TestResolve(t *testing.T) {
	r := newTestResolver()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"JIS code", "13", "13"},
		{"Romaji name", "Tokyo", "13"},
		{"Romaji name lowercase", "osaka", "27"},
		{"Japanese name with suffix", "東京都", "13"},
		{"Japanese name bare", "東京", "13"},
		{"Hokkaido keeps its suffix", "北海道", "01"},
		{"Prefecture fu", "大阪府", "27"},
		{"Prefecture ken", "秋田県", "05"},
		{"Full address prefix", "東京都新宿区西新宿2-8-1", "13"},
		{"Whitespace trimmed", "  13  ", "13"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, err := r.Resolve(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, code)
		})
	}
}

func TestResolveUnresolvable(t *testing.T) {
	r := newTestResolver()

	for _, input := range []string{"", "  ", "Atlantis", "99", "どこでもない町"} {
		_, err := r.Resolve(input)
		assert.ErrorIs(t, err, ErrUnresolved, "input %q", input)
	}
}

func TestResolveListing(t *testing.T) {
	r := newTestResolver()

	// Explicit prefecture field wins.
	code, err := r.ResolveListing(&models.RawListing{Prefecture: "Akita", Address: "東京都新宿区1-2-3"})
	require.NoError(t, err)
	assert.Equal(t, "05", code)

	// Address prefix is the fallback when the prefecture text is junk.
	code, err = r.ResolveListing(&models.RawListing{Prefecture: "???", Address: "青森県弘前市4-5-6"})
	require.NoError(t, err)
	assert.Equal(t, "02", code)

	_, err = r.ResolveListing(&models.RawListing{Prefecture: "nowhere", Address: "no prefecture here"})
	assert.ErrorIs(t, err, ErrUnresolved)
}
