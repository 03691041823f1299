// Package openaitest provides a scriptable openai.Client for tests.
package openaitest

import (
	"context"
	"fmt"
	"sync"

	"github.com/yungbote/coursework-backend/internal/platform/openai"
)

type Call struct {
	Method     string
	System     string
	User       string
	SchemaName string
	Images     int
}

// Client dispatches to the configured funcs and records every call.
// Unset funcs return an error.
type Client struct {
	JSONFunc   func(ctx context.Context, system, user, schemaName string) (map[string]any, error)
	TextFunc   func(ctx context.Context, system, user string) (string, error)
	ImagesFunc func(ctx context.Context, system, user string, images []openai.ImageInput) (string, error)
	StreamFunc func(ctx context.Context, system, user string, onDelta func(string)) (string, error)

	mu    sync.Mutex
	calls []Call
}

func (c *Client) record(call Call) {
	c.mu.Lock()
	c.calls = append(c.calls, call)
	c.mu.Unlock()
}

func (c *Client) Calls() []Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Call(nil), c.calls...)
}

func (c *Client) CallCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

func (c *Client) GenerateJSON(ctx context.Context, system, user, schemaName string, schema map[string]any, opts ...openai.CallOption) (map[string]any, error) {
	c.record(Call{Method: "GenerateJSON", System: system, User: user, SchemaName: schemaName})
	if c.JSONFunc == nil {
		return nil, fmt.Errorf("openaitest: unexpected GenerateJSON(%s)", schemaName)
	}
	return c.JSONFunc(ctx, system, user, schemaName)
}

func (c *Client) GenerateText(ctx context.Context, system, user string, opts ...openai.CallOption) (string, error) {
	c.record(Call{Method: "GenerateText", System: system, User: user})
	if c.TextFunc == nil {
		return "", fmt.Errorf("openaitest: unexpected GenerateText")
	}
	return c.TextFunc(ctx, system, user)
}

func (c *Client) GenerateTextWithImages(ctx context.Context, system, user string, images []openai.ImageInput, opts ...openai.CallOption) (string, error) {
	c.record(Call{Method: "GenerateTextWithImages", System: system, User: user, Images: len(images)})
	if c.ImagesFunc == nil {
		return "", fmt.Errorf("openaitest: unexpected GenerateTextWithImages")
	}
	return c.ImagesFunc(ctx, system, user, images)
}

func (c *Client) StreamText(ctx context.Context, system, user string, onDelta func(string), opts ...openai.CallOption) (string, error) {
	c.record(Call{Method: "StreamText", System: system, User: user})
	if c.StreamFunc == nil {
		return "", fmt.Errorf("openaitest: unexpected StreamText")
	}
	return c.StreamFunc(ctx, system, user, onDelta)
}

// Factory hands out Client for any non-empty key.
type Factory struct {
	Client *Client
	// Vision is returned by ForVision when set, otherwise Client.
	Vision *Client
	Keys   []string
	mu     sync.Mutex
}

func (f *Factory) ForKey(apiKey string) (openai.Client, error) {
	if apiKey == "" {
		return nil, openai.ErrMissingCredential
	}
	f.mu.Lock()
	f.Keys = append(f.Keys, apiKey)
	f.mu.Unlock()
	return f.Client, nil
}

func (f *Factory) ForVision(apiKey string) (openai.Client, error) {
	if apiKey == "" {
		return nil, openai.ErrMissingCredential
	}
	if f.Vision != nil {
		return f.Vision, nil
	}
	return f.ForKey(apiKey)
}
