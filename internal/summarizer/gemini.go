package summarizer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// GeminiSummarizer calls the Gemini generateContent API over plain HTTP.
type GeminiSummarizer struct {
	apiKey        string
	model         string
	promptVersion string
	baseURL       string
	client        *http.Client
}

func NewGeminiSummarizer(apiKey, model, promptVersion string) *GeminiSummarizer {
	if model == "" {
		model = "gemini-1.5-flash"
	}
	if promptVersion == "" {
		promptVersion = DefaultPromptVersion
	}
	return &GeminiSummarizer{
		apiKey:        apiKey,
		model:         model,
		promptVersion: promptVersion,
		baseURL:       defaultGeminiBaseURL,
		client:        &http.Client{Timeout: 120 * time.Second},
	}
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error,omitempty"`
}

func (s *GeminiSummarizer) Summarize(ctx context.Context, docs []string) (string, error) {
	if len(docs) == 0 {
		return "", fmt.Errorf("gemini: nothing to summarize")
	}

	prompt, err := BuildPrompt(s.promptVersion, docs)
	if err != nil {
		return "", fmt.Errorf("gemini: %w", err)
	}

	body, err := s.callAPI(ctx, prompt)
	if err != nil {
		return "", err
	}

	return stripFences(body), nil
}

func (s *GeminiSummarizer) callAPI(ctx context.Context, prompt string) (string, error) {

	reqBody := geminiRequest{
		Contents: []geminiContent{
			{Parts: []geminiPart{{Text: prompt}}},
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("gemini: failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", s.baseURL, s.model, s.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("gemini: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("gemini: request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("gemini: failed to read response: %w", err)
	}

	var apiResp geminiResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return "", fmt.Errorf("gemini: failed to parse response: %w", err)
	}

	if apiResp.Error != nil {
		return "", fmt.Errorf("gemini: API error %s: %s", apiResp.Error.Status, apiResp.Error.Message)
	}

	if len(apiResp.Candidates) == 0 || len(apiResp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini: empty response")
	}

	var sb strings.Builder
	for _, part := range apiResp.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	return sb.String(), nil
}

func stripFences(body string) string {
	body = strings.TrimSpace(body)
	body = strings.TrimPrefix(body, "```markdown")
	body = strings.TrimPrefix(body, "```")
	body = strings.TrimSuffix(body, "```")
	return strings.TrimSpace(body)
}
