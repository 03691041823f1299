package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/yungbote/coursework-backend/internal/platform/ctxutil"
	"github.com/yungbote/coursework-backend/internal/platform/httpx"
	"github.com/yungbote/coursework-backend/internal/platform/logger"
	"github.com/yungbote/coursework-backend/internal/platform/promptstyle"
)

// ErrMissingCredential is returned when a request carries no model key.
var ErrMissingCredential = errors.New("missing model credential")

// ImageInput is the normalized multimodal image input used by Client.
type ImageInput struct {
	// Can be https://... or data:image/...;base64,...
	ImageURL string
	Detail   string // "low" | "high"
}

// Client is the model API surface used by the pipeline, the study modes and chat.
type Client interface {
	// Structured outputs (json_schema, strict).
	GenerateJSON(ctx context.Context, system, user, schemaName string, schema map[string]any, opts ...CallOption) (map[string]any, error)

	GenerateText(ctx context.Context, system, user string, opts ...CallOption) (string, error)

	// Multimodal: user prompt + images -> plain text.
	GenerateTextWithImages(ctx context.Context, system, user string, images []ImageInput, opts ...CallOption) (string, error)

	// StreamText forwards output_text deltas to onDelta and returns everything received.
	// On cancellation it returns the partial text together with the context error.
	StreamText(ctx context.Context, system, user string, onDelta func(delta string), opts ...CallOption) (string, error)
}

type CallOption func(*callOptions)

type callOptions struct {
	temperature *float64
	model       string
}

// WithTemperature sets the sampling temperature for one call.
func WithTemperature(t float64) CallOption {
	return func(o *callOptions) { o.temperature = f64ptr(t) }
}

// WithModel overrides the model for one call.
func WithModel(model string) CallOption {
	return func(o *callOptions) { o.model = strings.TrimSpace(model) }
}

// Factory builds clients bound to a caller-supplied key.
type Factory interface {
	ForKey(apiKey string) (Client, error)
	// ForVision is ForKey with the vision model as default.
	ForVision(apiKey string) (Client, error)
}

type factory struct {
	log        *logger.Logger
	cfg        Config
	httpClient *http.Client
	noTemp     *noTempModels
}

func NewFactory(log *logger.Logger, cfg Config) (Factory, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	cfg = cfg.withDefaults()
	return &factory{
		log:        log.With("service", "OpenAIClient"),
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		noTemp:     newNoTempModels(cfg.NoTemperaturePrefixes),
	}, nil
}

func (f *factory) ForKey(apiKey string) (Client, error) {
	return f.build(apiKey, f.cfg.Model)
}

func (f *factory) ForVision(apiKey string) (Client, error) {
	return f.build(apiKey, f.cfg.VisionModel)
}

func (f *factory) build(apiKey, model string) (Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, ErrMissingCredential
	}
	return &client{
		log:         f.log,
		baseURL:     f.cfg.BaseURL,
		apiKey:      apiKey,
		model:       model,
		httpClient:  f.httpClient,
		maxRetries:  f.cfg.MaxRetries,
		temperature: f.cfg.Temperature,
		noTemp:      f.noTemp,
	}, nil
}

type client struct {
	log         *logger.Logger
	baseURL     string
	apiKey      string
	model       string
	httpClient  *http.Client
	maxRetries  int
	temperature *float64
	noTemp      *noTempModels
}

// noTempModels remembers models that rejected a temperature parameter.
type noTempModels struct {
	prefixes []string
	mu       sync.RWMutex
	seen     map[string]bool
}

func newNoTempModels(prefixes []string) *noTempModels {
	return &noTempModels{prefixes: prefixes, seen: map[string]bool{}}
}

func (n *noTempModels) has(model string) bool {
	m := strings.ToLower(strings.TrimSpace(model))
	if m == "" {
		return false
	}
	for _, p := range n.prefixes {
		if strings.HasPrefix(m, p) {
			return true
		}
	}
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.seen[m]
}

func (n *noTempModels) note(model string) {
	n.mu.Lock()
	n.seen[strings.ToLower(strings.TrimSpace(model))] = true
	n.mu.Unlock()
}

// HTTPError is a non-2xx answer from the model API.
type HTTPError struct {
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("openai http %d: %s", e.StatusCode, e.Body)
}

func (e *HTTPError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

func isUnsupportedTemperatureMessage(s string) bool {
	msg := strings.ToLower(s)
	if !strings.Contains(msg, "temperature") {
		return false
	}
	for _, frag := range []string{
		"unsupported parameter", "unknown parameter", "unrecognized parameter",
		"not supported", "does not support", "only the default", "unsupported_value",
	} {
		if strings.Contains(msg, frag) {
			return true
		}
	}
	return false
}

type inputMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type responsesRequest struct {
	Model string         `json:"model"`
	Input []inputMessage `json:"input"`
	Text  struct {
		Format map[string]any `json:"format,omitempty"`
	} `json:"text,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	Stream      bool     `json:"stream,omitempty"`
}

type responsesResponse struct {
	Output []struct {
		Type    string `json:"type"`
		Role    string `json:"role,omitempty"`
		Content []struct {
			Type    string `json:"type"`
			Text    string `json:"text,omitempty"`
			Refusal string `json:"refusal,omitempty"`
		} `json:"content,omitempty"`
	} `json:"output"`
	Refusal string `json:"refusal,omitempty"`
}

func extractOutputText(resp responsesResponse) string {
	var out strings.Builder
	for _, item := range resp.Output {
		if item.Type == "message" && item.Role == "assistant" {
			for _, c := range item.Content {
				if c.Type == "output_text" && c.Text != "" {
					out.WriteString(c.Text)
				}
			}
		}
	}
	return out.String()
}

func extractRefusal(resp responsesResponse) string {
	if resp.Refusal != "" {
		return resp.Refusal
	}
	for _, item := range resp.Output {
		for _, c := range item.Content {
			if c.Type == "refusal" && c.Refusal != "" {
				return c.Refusal
			}
		}
	}
	return ""
}

func (c *client) newRequest(system, user string, content any, opts []CallOption) *responsesRequest {
	var o callOptions
	for _, opt := range opts {
		opt(&o)
	}
	model := c.model
	if o.model != "" {
		model = o.model
	}
	req := &responsesRequest{Model: model}
	if content == nil {
		content = user
	}
	req.Input = []inputMessage{
		{Role: "system", Content: system},
		{Role: "user", Content: content},
	}
	temp := c.temperature
	if o.temperature != nil {
		temp = o.temperature
	}
	if temp != nil && !c.noTemp.has(model) {
		req.Temperature = temp
	}
	return req
}

func (c *client) doOnce(ctx context.Context, body any, stream bool) (*http.Response, []byte, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/responses", &buf)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	if stream {
		req.Header.Set("Accept", "text/event-stream")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	if stream && resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil, nil
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return resp, nil, readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		herr := &HTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
		if d, ok := httpx.ParseRetryAfter(resp.Header.Get("Retry-After")); ok {
			herr.RetryAfter = d
		}
		return resp, raw, herr
	}
	return resp, raw, nil
}

// do posts req with retries, dropping temperature once if the model rejects it.
func (c *client) do(ctx context.Context, req *responsesRequest, out *responsesResponse) error {
	ctx = ctxutil.Default(ctx)
	backoff := time.Second

	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		resp, raw, err := c.doOnce(ctx, req, false)
		if err == nil {
			if uErr := json.Unmarshal(raw, out); uErr != nil {
				return fmt.Errorf("openai decode error: %w", uErr)
			}
			return nil
		}
		if req.Temperature != nil && isUnsupportedTemperatureMessage(string(raw)) {
			c.noTemp.note(req.Model)
			req.Temperature = nil
			continue
		}
		if !httpx.IsRetryableError(err) || attempt >= c.maxRetries {
			return err
		}

		sleepFor := httpx.JitterSleep(httpx.RetryAfterDuration(resp, backoff, 10*time.Second))
		c.log.Warn("OpenAI request retrying",
			"model", req.Model,
			"attempt", attempt+1,
			"max_retries", c.maxRetries,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)
		if err := httpx.SleepContext(ctx, sleepFor); err != nil {
			return err
		}
		backoff *= 2
	}
}

func (c *client) complete(ctx context.Context, req *responsesRequest) (string, error) {
	var resp responsesResponse
	if err := c.do(ctx, req, &resp); err != nil {
		return "", err
	}
	if r := extractRefusal(resp); r != "" {
		return "", fmt.Errorf("model refused: %s", r)
	}
	text := extractOutputText(resp)
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("no output_text found in response")
	}
	return text, nil
}

func (c *client) GenerateJSON(ctx context.Context, system, user, schemaName string, schema map[string]any, opts ...CallOption) (map[string]any, error) {
	if schemaName == "" {
		return nil, errors.New("schemaName required")
	}
	if schema == nil {
		return nil, errors.New("schema required")
	}
	req := c.newRequest(promptstyle.ApplySystem(system, "json"), user, nil, opts)
	req.Text.Format = map[string]any{
		"type":   "json_schema",
		"name":   schemaName,
		"schema": schema,
		"strict": true,
	}
	jsonText, err := c.complete(ctx, req)
	if err != nil {
		return nil, err
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(jsonText), &obj); err != nil {
		return nil, fmt.Errorf("failed to parse model JSON: %w", err)
	}
	return obj, nil
}

func (c *client) GenerateText(ctx context.Context, system, user string, opts ...CallOption) (string, error) {
	return c.complete(ctx, c.newRequest(promptstyle.ApplySystem(system, "text"), user, nil, opts))
}

func (c *client) GenerateTextWithImages(ctx context.Context, system, user string, images []ImageInput, opts ...CallOption) (string, error) {
	content := make([]map[string]any, 0, 1+len(images))
	content = append(content, map[string]any{"type": "input_text", "text": user})
	for _, img := range images {
		u := strings.TrimSpace(img.ImageURL)
		if u == "" {
			continue
		}
		item := map[string]any{"type": "input_image", "image_url": u}
		if d := strings.TrimSpace(img.Detail); d != "" {
			item["detail"] = d
		}
		content = append(content, item)
	}
	if len(content) == 1 {
		return c.GenerateText(ctx, system, user, opts...)
	}
	return c.complete(ctx, c.newRequest(promptstyle.ApplySystem(system, "text"), user, content, opts))
}

func (c *client) StreamText(ctx context.Context, system, user string, onDelta func(delta string), opts ...CallOption) (string, error) {
	ctx = ctxutil.Default(ctx)
	req := c.newRequest(promptstyle.ApplySystem(system, "text"), user, nil, opts)
	req.Stream = true

	resp, raw, err := c.doOnce(ctx, req, true)
	if err != nil && req.Temperature != nil && isUnsupportedTemperatureMessage(string(raw)) {
		c.noTemp.note(req.Model)
		req.Temperature = nil
		resp, _, err = c.doOnce(ctx, req, true)
	}
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var full strings.Builder
	err = streamSSE(resp.Body, func(event, data string) error {
		delta, err := decodeStreamEvent(event, data)
		if err != nil || delta == "" {
			return err
		}
		full.WriteString(delta)
		if onDelta != nil {
			onDelta(delta)
		}
		return nil
	})
	if err == nil {
		err = ctx.Err()
	} else if ctx.Err() != nil {
		err = ctx.Err()
	}
	return full.String(), err
}

// decodeStreamEvent returns the output_text delta carried by one SSE event, if any.
func decodeStreamEvent(event, data string) (string, error) {
	data = strings.TrimSpace(data)
	if data == "" || data == "[DONE]" {
		return "", nil
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(data), &obj); err != nil {
		return "", nil
	}
	evt := strings.TrimSpace(event)
	if t, ok := obj["type"].(string); ok && strings.TrimSpace(t) != "" {
		evt = strings.TrimSpace(t)
	}
	if r, ok := obj["refusal"].(string); ok && strings.TrimSpace(r) != "" {
		return "", fmt.Errorf("model refused: %s", r)
	}
	if eAny, ok := obj["error"]; ok && eAny != nil {
		b, _ := json.Marshal(eAny)
		return "", fmt.Errorf("openai stream error: %s", string(b))
	}
	d, _ := obj["delta"].(string)
	d = strings.TrimRight(d, "\u0000")
	if d == "" || !strings.Contains(evt, "output_text.delta") {
		return "", nil
	}
	return d, nil
}
