package extractor

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/gen2brain/go-fitz"

	"github.com/yungbote/coursework-backend/internal/modules/coursework/prompts"
	"github.com/yungbote/coursework-backend/internal/platform/openai"
)

// NoTextSentinel is the vision model's reply for blank or unreadable pages.
const NoTextSentinel = "NO_TEXT_FOUND"

const (
	DefaultMaxPDFPages = 20
	pageDPI            = 110
)

// PageRenderer rasterizes the first maxPages pages of a PDF to PNG.
type PageRenderer interface {
	RenderPNG(data []byte, maxPages int) (pages [][]byte, total int, err error)
}

// ErrUnreadablePDF covers encrypted and corrupt files.
var ErrUnreadablePDF = errors.New("pdf cannot be opened")

type fitzRenderer struct{}

// NewFitzRenderer renders with MuPDF through go-fitz.
func NewFitzRenderer() PageRenderer { return fitzRenderer{} }

func (fitzRenderer) RenderPNG(data []byte, maxPages int) ([][]byte, int, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrUnreadablePDF, err)
	}
	defer doc.Close()

	total := doc.NumPage()
	n := total
	if maxPages > 0 && n > maxPages {
		n = maxPages
	}
	pages := make([][]byte, 0, n)
	for i := 0; i < n; i++ {
		png, err := doc.ImagePNG(i, pageDPI)
		if err != nil {
			return pages, total, fmt.Errorf("render page %d: %w", i+1, err)
		}
		pages = append(pages, png)
	}
	return pages, total, nil
}

// transcribePDF sends each rendered page to the vision model. Pages answered
// with the sentinel are dropped; a file with no usable page is Empty.
func (e *Extractor) transcribePDF(ctx context.Context, title string, data []byte, vision openai.Client) Result {
	pages, total, err := e.renderer.RenderPNG(data, e.maxPDFPages)
	if err != nil && len(pages) == 0 {
		if errors.Is(err, ErrUnreadablePDF) {
			return Result{Status: StatusEmpty, Warning: err.Error()}
		}
		return Result{Status: StatusFailed, Warning: err.Error()}
	}
	if len(pages) == 0 {
		return Result{Status: StatusEmpty, Warning: "pdf has no pages"}
	}

	var (
		texts    []string
		failures int
		lastErr  error
	)
	for i, png := range pages {
		p, err := prompts.Build(prompts.PromptPageTranscribe, prompts.Input{
			FileTitle:  title,
			PageNumber: i + 1,
			PageCount:  total,
		})
		if err != nil {
			return Result{Status: StatusFailed, Warning: err.Error()}
		}
		out, err := vision.GenerateTextWithImages(ctx, p.System, p.User, []openai.ImageInput{{
			ImageURL: "data:image/png;base64," + base64.StdEncoding.EncodeToString(png),
			Detail:   "high",
		}}, openai.WithTemperature(0))
		if err != nil {
			if ctx.Err() != nil {
				return Result{Status: StatusFailed, Warning: ctx.Err().Error()}
			}
			failures++
			lastErr = err
			e.log.Warn("Vision transcription failed for page", "file", title, "page", i+1, "error", err)
			continue
		}
		if usable(out) {
			texts = append(texts, strings.TrimSpace(out))
		}
	}

	if failures == len(pages) {
		return Result{Status: StatusFailed, Warning: lastErr.Error()}
	}
	text := normalizeText(strings.Join(texts, "\n\n"))
	res := Result{Status: StatusExtracted, Technique: TechniqueVisionOCR, Text: text}
	if !longEnough(text) {
		res = Result{Status: StatusEmpty}
	}
	if total > len(pages) {
		res.Warning = fmt.Sprintf("only the first %d of %d pages were transcribed", len(pages), total)
	}
	return res
}

// usable is the one place the sentinel string is interpreted.
func usable(out string) bool {
	t := strings.TrimSpace(out)
	if t == "" || strings.EqualFold(t, NoTextSentinel) {
		return false
	}
	return longEnough(t)
}
