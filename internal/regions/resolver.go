package regions

import (
	"errors"
	"strings"

	"akiyascout/server/internal/models"
)

// ErrUnresolved marks region text that could not be mapped to a prefecture
// code. Callers skip the record, they do not fail the job.
var ErrUnresolved = errors.New("region text did not resolve to a prefecture code")

// Resolver maps source-native region text to canonical prefecture codes.
// Sources emit anything from bare codes to romaji names to full Japanese
// addresses; this is a lookup table with a few fallbacks, not control flow.
type Resolver struct {
	byCode map[string]string
	byName map[string]string
	byJa   map[string]string
	// Full Japanese names, checked as address prefixes ("東京都新宿区...")
	prefixes []prefixEntry
}

type prefixEntry struct {
	prefix string
	code   string
}

func NewResolver(regions []models.Region) *Resolver {
	r := &Resolver{
		byCode: make(map[string]string, len(regions)),
		byName: make(map[string]string, len(regions)),
		byJa:   make(map[string]string, len(regions)*2),
	}
	for _, reg := range regions {
		r.byCode[reg.Code] = reg.Code
		r.byName[strings.ToLower(reg.Name)] = reg.Code
		r.byJa[reg.NameJa] = reg.Code
		// Bare form without the 都/道/府/県 suffix ("東京", "大阪")
		if bare := trimSuffixJa(reg.NameJa); bare != reg.NameJa {
			r.byJa[bare] = reg.Code
		}
		r.prefixes = append(r.prefixes, prefixEntry{prefix: reg.NameJa, code: reg.Code})
	}
	return r
}

// Resolve maps one piece of region text to a prefecture code.
func (r *Resolver) Resolve(text string) (string, error) {
	t := strings.TrimSpace(text)
	if t == "" {
		return "", ErrUnresolved
	}

	if code, ok := r.byCode[t]; ok {
		return code, nil
	}
	if code, ok := r.byName[strings.ToLower(t)]; ok {
		return code, nil
	}
	if code, ok := r.byJa[t]; ok {
		return code, nil
	}

	// Full addresses start with the prefecture name
	for _, p := range r.prefixes {
		if strings.HasPrefix(t, p.prefix) {
			return p.code, nil
		}
	}

	return "", ErrUnresolved
}

// ResolveListing resolves the prefecture for a raw listing: the explicit
// prefecture field first, then the address prefix.
func (r *Resolver) ResolveListing(raw *models.RawListing) (string, error) {
	if raw.Prefecture != "" {
		if code, err := r.Resolve(raw.Prefecture); err == nil {
			return code, nil
		}
	}
	if raw.Address != "" {
		if code, err := r.Resolve(raw.Address); err == nil {
			return code, nil
		}
	}
	return "", ErrUnresolved
}

func trimSuffixJa(name string) string {
	if name == "北海道" {
		return name
	}
	for _, suffix := range []string{"都", "道", "府", "県"} {
		if strings.HasSuffix(name, suffix) {
			return strings.TrimSuffix(name, suffix)
		}
	}
	return name
}
