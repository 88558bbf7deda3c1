package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultDeepLBase = "https://api-free.deepl.com"

// DeepL calls the DeepL v2 REST API.
type DeepL struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func NewDeepL(apiKey, apiBase string) *DeepL {
	base := strings.TrimRight(apiBase, "/")
	if base == "" {
		base = defaultDeepLBase
	}
	return &DeepL{
		apiKey:     apiKey,
		baseURL:    base,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

type deepLResponse struct {
	Translations []struct {
		Text string `json:"text"`
	} `json:"translations"`
}

func (d *DeepL) Translate(ctx context.Context, text, targetLang string) (string, error) {
	form := url.Values{}
	form.Set("text", text)
	form.Set("target_lang", targetLang)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		d.baseURL+"/v2/translate", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTranslation, err)
	}
	req.Header.Set("Authorization", "DeepL-Auth-Key "+d.apiKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTranslation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: deepl returned %s", ErrTranslation, resp.Status)
	}

	var body deepLResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("%w: decoding deepl response: %v", ErrTranslation, err)
	}
	if len(body.Translations) == 0 {
		return "", fmt.Errorf("%w: deepl returned no translations", ErrTranslation)
	}
	return body.Translations[0].Text, nil
}
