package validation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// HTTPClient implements collaborators.PhraseValidator against an
// out-of-process validation service, grounded on
// original_source/backend/phrase_validation/client.go (a thin JSON
// POST client against a sibling worker process) — kept as a process
// boundary per spec.md §6's "external collaborator, can be in-process
// or over HTTP".
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{baseURL: baseURL, httpClient: &http.Client{}}
}

type validateResponse struct {
	OK     bool   `json:"ok"`
	Reason string `json:"reason"`
}

func (c *HTTPClient) post(ctx context.Context, path string, payload any) (bool, string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return false, "", fmt.Errorf("marshal validate request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return false, "", fmt.Errorf("build validate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, "", fmt.Errorf("validate request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, "", fmt.Errorf("read validate response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return false, "", fmt.Errorf("validate status %d: %s", resp.StatusCode, raw)
	}
	var out validateResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return false, "", fmt.Errorf("unmarshal validate response: %w", err)
	}
	return out.OK, out.Reason, nil
}

func (c *HTTPClient) Validate(ctx context.Context, phrase string) (bool, string, error) {
	return c.post(ctx, "/validate", map[string]string{"phrase": phrase})
}

func (c *HTTPClient) ValidatePromptPhrase(ctx context.Context, phrase, promptText string) (bool, string, error) {
	return c.post(ctx, "/validate/prompt", map[string]string{"phrase": phrase, "promptText": promptText})
}

func (c *HTTPClient) ValidateCopy(ctx context.Context, phrase, originalPhrase string, otherCopyPhrase, promptText *string) (bool, string, error) {
	payload := map[string]any{"phrase": phrase, "originalPhrase": originalPhrase}
	if otherCopyPhrase != nil {
		payload["otherCopyPhrase"] = *otherCopyPhrase
	}
	if promptText != nil {
		payload["promptText"] = *promptText
	}
	return c.post(ctx, "/validate/copy", payload)
}

func (c *HTTPClient) ValidateBackronymWords(ctx context.Context, words []string, expectedLetters []byte) (bool, string, error) {
	return c.post(ctx, "/validate/backronym", map[string]any{"words": words, "expectedLetters": string(expectedLetters)})
}
