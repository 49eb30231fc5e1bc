package geocoding

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/sirupsen/logrus"

	"akiyascout/server/internal/models"
)

// Coordinates farther than this from the prefecture centroid are treated as
// geocoder misses (wrong city with the same name, truncated address).
const maxCentroidDistanceMeters = 300_000

type Geocoder struct {
	logger    *logrus.Logger
	cacheDir  string
	cache     map[string][]float64
	cacheLock sync.RWMutex
	client    *http.Client
	baseURL   string
}

func NewGeocoder(logger *logrus.Logger, cacheDir string) *Geocoder {
	os.MkdirAll(cacheDir, 0755)

	g := &Geocoder{
		logger:   logger,
		cacheDir: cacheDir,
		cache:    make(map[string][]float64),
		client:   &http.Client{Timeout: 10 * time.Second},
		baseURL:  "https://nominatim.openstreetmap.org/search",
	}

	g.loadCache()

	return g
}

func (g *Geocoder) loadCache() {
	cacheFile := filepath.Join(g.cacheDir, "geocode_cache.json")
	data, err := os.ReadFile(cacheFile)
	if err != nil {
		return
	}

	if err := json.Unmarshal(data, &g.cache); err != nil {
		g.logger.Errorf("Failed to parse geocode cache: %v", err)
		return
	}

	g.logger.Infof("Loaded %d cached addresses", len(g.cache))
}

func (g *Geocoder) saveCache() {
	g.cacheLock.RLock()
	defer g.cacheLock.RUnlock()

	cacheFile := filepath.Join(g.cacheDir, "geocode_cache.json")
	data, err := json.Marshal(g.cache)
	if err != nil {
		g.logger.Errorf("Failed to marshal geocode cache: %v", err)
		return
	}

	if err := os.WriteFile(cacheFile, data, 0644); err != nil {
		g.logger.Errorf("Failed to save geocode cache: %v", err)
	}
}

type nominatimResponse []struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// GeocodeAddress resolves a Japanese address to coordinates via Nominatim.
func (g *Geocoder) GeocodeAddress(address string) (float64, float64, error) {
	// Check cache first
	g.cacheLock.RLock()
	if coords, ok := g.cache[address]; ok {
		g.cacheLock.RUnlock()
		if len(coords) == 2 {
			return coords[0], coords[1], nil
		}
		return 0, 0, fmt.Errorf("invalid cached coordinates")
	}
	g.cacheLock.RUnlock()

	// Respect Nominatim's usage policy
	time.Sleep(time.Second)

	params := url.Values{
		"q":            []string{address},
		"format":       []string{"json"},
		"limit":        []string{"1"},
		"countrycodes": []string{"jp"},
	}

	req, err := http.NewRequest("GET", g.baseURL, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to create request: %v", err)
	}

	req.URL.RawQuery = params.Encode()
	req.Header.Set("User-Agent", "AkiyaScout/1.0")
	req.Header.Set("Accept-Language", "ja,en;q=0.8")

	resp, err := g.client.Do(req)
	if err != nil {
		return 0, 0, fmt.Errorf("geocoding request failed: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read response: %v", err)
	}

	var result nominatimResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return 0, 0, fmt.Errorf("failed to parse response: %v", err)
	}

	if len(result) == 0 {
		return 0, 0, fmt.Errorf("no results found for address: %s", address)
	}

	var lat, lon float64
	fmt.Sscanf(result[0].Lat, "%f", &lat)
	fmt.Sscanf(result[0].Lon, "%f", &lon)

	g.cacheLock.Lock()
	g.cache[address] = []float64{lat, lon}
	g.cacheLock.Unlock()

	go g.saveCache()

	return lat, lon, nil
}

// PlausibleFor reports whether coordinates fall within a sane distance of
// the prefecture centroid.
func PlausibleFor(lat, lng float64, region *models.Region) bool {
	if region == nil {
		return true
	}
	d := geo.DistanceHaversine(
		orb.Point{lng, lat},
		orb.Point{region.CentroidLng, region.CentroidLat},
	)
	return d <= maxCentroidDistanceMeters
}
