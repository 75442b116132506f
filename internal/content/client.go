package content

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// yearsQuery is the GROQ projection for all calendar years with their
// question trees and resolved asset URLs.
const yearsQuery = `*[_type == "year"]{
  year,
  "questions": questions[] -> {
    answer,
    question,
    reward,
    door_number,
    answer_options,
    "audiofile_intro": audiofile_intro-> { name, "file": audiofile.asset->url },
    "audiofile_question": audiofile_question-> { name, "file": audiofile.asset->url },
    "audiofile_outro": audiofile_outro-> { name, "file": audiofile.asset->url },
    "image": image.asset->url
  }
}`

// ClientConfig configures the headless CMS client.
type ClientConfig struct {
	BaseURL    string
	Dataset    string
	APIVersion string
	Token      string
}

// Client fetches read-only Year -> Questions content trees from the headless
// content store's query endpoint.
type Client struct {
	cfg        ClientConfig
	httpClient *http.Client
}

func NewClient(cfg ClientConfig, httpClient *http.Client) *Client {
	if cfg.Dataset == "" {
		cfg.Dataset = "production"
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = "2023-10-21"
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 6 * time.Second}
	}
	return &Client{cfg: cfg, httpClient: httpClient}
}

type queryResponse struct {
	Result []Year `json:"result"`
}

// FetchYears runs the years query and returns every calendar year known to
// the content store. The caller filters by year and door number in memory.
func (c *Client) FetchYears(ctx context.Context) ([]Year, error) {
	endpoint := fmt.Sprintf("%s/v%s/data/query/%s?query=%s",
		c.cfg.BaseURL, c.cfg.APIVersion, c.cfg.Dataset, url.QueryEscape(yearsQuery))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("content query: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("content store non-200: %d", resp.StatusCode)
	}

	var payload queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode content response: %w", err)
	}
	return payload.Result, nil
}
