package enrich

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Translator is a thin client for the Google translation API. Without an API
// key it reports unavailable and the translation hook no-ops.
type Translator struct {
	apiKey  string
	client  *http.Client
	baseURL string
}

func NewTranslator(apiKey string) *Translator {
	return &Translator{
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 15 * time.Second},
		baseURL: "https://translation.googleapis.com/language/translate/v2",
	}
}

func (t *Translator) IsAvailable() bool {
	return t.apiKey != ""
}

type translateResponse struct {
	Data struct {
		Translations []struct {
			TranslatedText string `json:"translatedText"`
		} `json:"translations"`
	} `json:"data"`
}

// Translate converts Japanese text to English.
func (t *Translator) Translate(text string) (string, error) {
	if !t.IsAvailable() {
		return "", fmt.Errorf("translation is not configured")
	}

	form := url.Values{
		"q":      []string{text},
		"source": []string{"ja"},
		"target": []string{"en"},
		"format": []string{"text"},
		"key":    []string{t.apiKey},
	}

	resp, err := t.client.Post(t.baseURL, "application/x-www-form-urlencoded",
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("translation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("translation API returned status %d", resp.StatusCode)
	}

	var result translateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to parse translation response: %w", err)
	}
	if len(result.Data.Translations) == 0 {
		return "", fmt.Errorf("translation response was empty")
	}
	return result.Data.Translations[0].TranslatedText, nil
}
