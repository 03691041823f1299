package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	HeaderLLMKey    = "X-LLM-Api-Key"
	HeaderVisionKey = "X-Vision-Api-Key"

	ctxLLMKey    = "byok_llm_key"
	ctxVisionKey = "byok_vision_key"
)

// ModelCredentials lifts the caller's model keys off the request. They stay on
// the gin context only and are never logged or persisted.
func ModelCredentials() gin.HandlerFunc {
	return func(c *gin.Context) {
		llm := strings.TrimSpace(c.GetHeader(HeaderLLMKey))
		vision := strings.TrimSpace(c.GetHeader(HeaderVisionKey))
		if vision == "" {
			vision = llm
		}
		c.Set(ctxLLMKey, llm)
		c.Set(ctxVisionKey, vision)
		c.Next()
	}
}

// LLMKey is the caller's text model key; empty when not supplied.
func LLMKey(c *gin.Context) string { return c.GetString(ctxLLMKey) }

// VisionKey falls back to LLMKey when no separate vision key was sent.
func VisionKey(c *gin.Context) string { return c.GetString(ctxVisionKey) }
