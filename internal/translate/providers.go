package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const (
	defaultMyMemoryURL = "https://api.mymemory.translated.net/get"
	defaultGoogleURL   = "https://translate.googleapis.com/translate_a/single"
)

func clientOrDefault(c *http.Client) *http.Client {
	if c == nil {
		return http.DefaultClient
	}
	return c
}

func doJSON(client *http.Client, req *http.Request, out any) error {
	resp, err := clientOrDefault(client).Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// LibreTranslate calls a LibreTranslate server's /translate endpoint.
type LibreTranslate struct {
	URL    string
	APIKey string
	Client *http.Client
}

func (l *LibreTranslate) Name() string { return "libretranslate" }

func (l *LibreTranslate) Lookup(ctx context.Context, word, from, to string) (string, error) {
	body, err := json.Marshal(map[string]string{
		"q":       word,
		"source":  from,
		"target":  to,
		"format":  "text",
		"api_key": l.APIKey,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.URL, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	var out struct {
		TranslatedText string `json:"translatedText"`
	}
	if err := doJSON(l.Client, req, &out); err != nil {
		return "", err
	}
	if out.TranslatedText == "" {
		return "", ErrNoTranslation
	}
	return out.TranslatedText, nil
}

// bogusMemories are machine translation memory entries MyMemory returns for
// unrelated short words.
var bogusMemories = []string{"пандемии", "pandemics", "covid", "вирус", "virus"}

// MyMemory calls the MyMemory translation memory API.
type MyMemory struct {
	BaseURL string
	Client  *http.Client
}

func (m *MyMemory) Name() string { return "mymemory" }

func (m *MyMemory) Lookup(ctx context.Context, word, from, to string) (string, error) {
	base := m.BaseURL
	if base == "" {
		base = defaultMyMemoryURL
	}
	q := url.Values{}
	q.Set("q", word)
	q.Set("langpair", from+"|"+to)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"?"+q.Encode(), nil)
	if err != nil {
		return "", err
	}

	var out struct {
		ResponseData struct {
			TranslatedText string `json:"translatedText"`
		} `json:"responseData"`
		Matches []struct {
			Translation string `json:"translation"`
		} `json:"matches"`
	}
	if err := doJSON(m.Client, req, &out); err != nil {
		return "", err
	}

	text := out.ResponseData.TranslatedText
	if text == "" && len(out.Matches) > 0 {
		text = out.Matches[0].Translation
	}
	if text == "" {
		return "", ErrNoTranslation
	}

	lower := strings.ToLower(text)
	for _, bogus := range bogusMemories {
		if strings.Contains(lower, bogus) {
			return "", fmt.Errorf("%w: rejected %q", ErrNoTranslation, text)
		}
	}
	return text, nil
}

// Google calls the unauthenticated translate_a endpoint used by the gtx
// client.
type Google struct {
	BaseURL string
	Client  *http.Client
}

func (g *Google) Name() string { return "google" }

func (g *Google) Lookup(ctx context.Context, word, from, to string) (string, error) {
	base := g.BaseURL
	if base == "" {
		base = defaultGoogleURL
	}
	q := url.Values{}
	q.Set("client", "gtx")
	q.Set("sl", from)
	q.Set("tl", to)
	q.Set("dt", "t")
	q.Set("q", word)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"?"+q.Encode(), nil)
	if err != nil {
		return "", err
	}

	// The response is a nested array: [[["перевод","word",...],...],...]
	var out []any
	if err := doJSON(g.Client, req, &out); err != nil {
		return "", err
	}
	if len(out) == 0 {
		return "", ErrNoTranslation
	}
	sentences, ok := out[0].([]any)
	if !ok || len(sentences) == 0 {
		return "", ErrNoTranslation
	}

	var sb strings.Builder
	for _, s := range sentences {
		parts, ok := s.([]any)
		if !ok || len(parts) == 0 {
			continue
		}
		if text, ok := parts[0].(string); ok {
			sb.WriteString(text)
		}
	}
	if sb.Len() == 0 {
		return "", ErrNoTranslation
	}
	return sb.String(), nil
}
