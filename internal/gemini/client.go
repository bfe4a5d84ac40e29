package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

const defaultImageModel = "gemini-2.5-flash-image"

var ErrMissingAPIKey = errors.New("gemini API key is not configured")

type Options struct {
	APIKey     string
	BaseURL    string
	APIVersion string
	Model      string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

type Client struct {
	apiKey     string
	baseURL    string
	apiVersion string
	model      string
	httpClient *http.Client
	logger     *slog.Logger
}

func New(opts Options) *Client {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com"
	}

	apiVersion := strings.TrimSpace(opts.APIVersion)
	if apiVersion == "" {
		apiVersion = "v1beta"
	}

	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultImageModel
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Client{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		apiVersion: apiVersion,
		model:      model,
		httpClient: httpClient,
		logger:     logger,
	}
}

// HasAPIKey reports whether a usable credential is configured. The literal
// "undefined" counts as missing.
func (c *Client) HasAPIKey() bool {
	return c.apiKey != "" && c.apiKey != "undefined"
}

func (c *Client) Model() string {
	return c.model
}

// GenerateImage sends one image+text turn and decodes the reply. A provider
// that rejects imageConfig gets the same request once more without it.
func (c *Client) GenerateImage(ctx context.Context, in ImageRequest) (Outcome, error) {
	if !c.HasAPIKey() {
		return Outcome{}, ErrMissingAPIKey
	}

	req := generateContentRequest{
		Contents: []content{{
			Role: "user",
			Parts: []part{
				{InlineData: &blob{Data: in.Image.DataBase64, MimeType: in.Image.MimeType}},
				{Text: in.Prompt},
			},
		}},
		GenerationConfig: generationConfig{
			ResponseModalities: []string{"IMAGE", "TEXT"},
		},
	}
	if ar := strings.TrimSpace(in.AspectRatio); ar != "" {
		req.GenerationConfig.ImageConfig = &imageConfig{AspectRatio: ar}
	}

	out, err := c.generateContent(ctx, req)
	if err != nil && req.GenerationConfig.ImageConfig != nil && isUnknownFieldError(err, "imageConfig") {
		c.logger.Warn("provider rejected imageConfig, sending without it", "model", c.model)
		req.GenerationConfig.ImageConfig = nil
		out, err = c.generateContent(ctx, req)
	}
	return out, err
}

func (c *Client) generateContent(ctx context.Context, payload generateContentRequest) (Outcome, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Outcome{}, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/%s/models/%s:generateContent", c.baseURL, c.apiVersion, c.model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Outcome{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("content-type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return Outcome{}, fmt.Errorf("request: %w", err)
	}
	defer httpResp.Body.Close()

	rawBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return Outcome{}, fmt.Errorf("read response: %w", err)
	}

	if httpResp.StatusCode >= 400 {
		apiErr := decodeAPIError(httpResp.StatusCode, rawBody)
		c.logger.Debug("gemini error reply", "status", httpResp.StatusCode, "rpc_status", apiErr.Status)
		return Outcome{}, apiErr
	}

	var decoded generateContentResponse
	if err := json.Unmarshal(rawBody, &decoded); err != nil {
		return Outcome{}, fmt.Errorf("decode response: %w", err)
	}

	return outcomeFrom(decoded), nil
}

func outcomeFrom(resp generateContentResponse) Outcome {
	if len(resp.Candidates) == 0 {
		return Outcome{Kind: OutcomeNoImage}
	}

	var out Outcome
	var text strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if p.Text != "" {
			text.WriteString(p.Text)
		}
		if out.Kind == OutcomeImage {
			continue
		}
		if p.InlineData != nil && p.InlineData.Data != "" {
			out.Kind = OutcomeImage
			out.Image = ImageInput{DataBase64: p.InlineData.Data, MimeType: p.InlineData.MimeType}
		}
	}
	out.Text = text.String()
	return out
}

func decodeAPIError(statusCode int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: statusCode}

	var envelope errorEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		apiErr.Status = envelope.Error.Status
		apiErr.Message = envelope.Error.Message
		return apiErr
	}

	apiErr.Message = strings.TrimSpace(string(body))
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(statusCode)
	}
	return apiErr
}

func isUnknownFieldError(err error, field string) bool {
	message := err.Error()
	return strings.Contains(message, "Unknown name") && strings.Contains(message, field)
}

type generateContentRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig,omitempty"`
}

type generationConfig struct {
	ResponseModalities []string     `json:"responseModalities,omitempty"`
	ImageConfig        *imageConfig `json:"imageConfig,omitempty"`
}

type imageConfig struct {
	AspectRatio string `json:"aspectRatio,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text       string `json:"text,omitempty"`
	InlineData *blob  `json:"inlineData,omitempty"`
}

type blob struct {
	Data     string `json:"data"`
	MimeType string `json:"mimeType"`
}

type generateContentResponse struct {
	Candidates []candidate `json:"candidates"`
}

type candidate struct {
	Content content `json:"content"`
}

type errorEnvelope struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}
