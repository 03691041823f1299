package llmerr

import (
	"context"
	"errors"
	"fmt"
	"net"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/yungbote/coursework-backend/internal/domain"
	"github.com/yungbote/coursework-backend/internal/platform/openai"
)

type Kind string

const (
	KindRateLimit           Kind = "rate_limit"
	KindAuth                Kind = "auth"
	KindContentNotExtracted Kind = "content_not_extracted"
	KindNotFound            Kind = "not_found"
	KindNetwork             Kind = "network"
	KindGeneric             Kind = "generic"
)

// Classified is an error reduced to something a student can act on.
type Classified struct {
	Kind       Kind
	Message    string
	RetryAfter time.Duration
	Err        error
}

func (c *Classified) Error() string {
	if c == nil {
		return ""
	}
	return c.Message
}

func (c *Classified) Unwrap() error { return c.Err }

var retryHint = regexp.MustCompile(`(?i)try again in ([0-9]+(?:\.[0-9]+)?)\s*(ms|s|seconds?)`)

// Classify maps err onto the fixed kinds surfaced to callers. nil stays nil.
func Classify(err error) *Classified {
	if err == nil {
		return nil
	}
	var already *Classified
	if errors.As(err, &already) {
		return already
	}

	out := &Classified{Kind: KindGeneric, Err: err}
	var herr *openai.HTTPError
	switch {
	case errors.Is(err, openai.ErrMissingCredential):
		out.Kind = KindAuth
	case errors.Is(err, domain.ErrContentNotExtracted):
		out.Kind = KindContentNotExtracted
	case errors.Is(err, domain.ErrNotFound):
		out.Kind = KindNotFound
	case errors.As(err, &herr):
		switch herr.StatusCode {
		case 429:
			out.Kind = KindRateLimit
			out.RetryAfter = herr.RetryAfter
			if out.RetryAfter == 0 {
				out.RetryAfter = parseRetryHint(herr.Body)
			}
		case 401, 403:
			out.Kind = KindAuth
		case 404:
			out.Kind = KindNotFound
		default:
			if herr.StatusCode >= 500 {
				out.Kind = KindNetwork
			}
		}
	case isNetwork(err):
		out.Kind = KindNetwork
	}
	out.Message = out.UserMessage()
	return out
}

func isNetwork(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

func parseRetryHint(body string) time.Duration {
	m := retryHint.FindStringSubmatch(body)
	if len(m) != 3 {
		return 0
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0
	}
	if strings.EqualFold(m[2], "ms") {
		return time.Duration(v * float64(time.Millisecond))
	}
	return time.Duration(v * float64(time.Second))
}

// UserMessage is the text rendered as the synthetic assistant turn.
func (c *Classified) UserMessage() string {
	switch c.Kind {
	case KindRateLimit:
		if c.RetryAfter > 0 {
			secs := int(c.RetryAfter.Round(time.Second) / time.Second)
			if secs < 1 {
				secs = 1
			}
			return fmt.Sprintf("The model provider is rate limiting requests. Please try again in %d seconds.", secs)
		}
		return "The model provider is rate limiting requests. Please wait a moment and try again."
	case KindAuth:
		return "Your API key was rejected or is missing. Check the key in your settings and try again."
	case KindContentNotExtracted:
		return "This assignment's materials have not been extracted yet. Run extraction first, then ask again."
	case KindNotFound:
		return "The requested assignment or resource could not be found."
	case KindNetwork:
		return "Could not reach the model provider. Check your connection and try again."
	default:
		return "Something went wrong while generating a response. Please try again."
	}
}

// Notice is the short banner shown next to the synthetic turn.
func (c *Classified) Notice() string {
	switch c.Kind {
	case KindRateLimit:
		return "Rate limited"
	case KindAuth:
		return "Invalid API key"
	case KindContentNotExtracted:
		return "Content not extracted"
	case KindNotFound:
		return "Not found"
	case KindNetwork:
		return "Network error"
	default:
		return "Generation failed"
	}
}
