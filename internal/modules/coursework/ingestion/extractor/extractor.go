package extractor

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	types "github.com/yungbote/coursework-backend/internal/domain"
	"github.com/yungbote/coursework-backend/internal/platform/ctxutil"
	"github.com/yungbote/coursework-backend/internal/platform/logger"
	"github.com/yungbote/coursework-backend/internal/platform/openai"
)

// MinUsableChars is the shortest text, in characters, worth keeping from a file.
const MinUsableChars = 20

func longEnough(text string) bool {
	return utf8.RuneCountInString(text) >= MinUsableChars
}

// NoVisionPlaceholder stands in for a PDF that could not be read without a vision key.
const NoVisionPlaceholder = "[PDF content not extracted: no vision credential was provided for OCR]"

type Status = types.ExtractionStatus

const (
	StatusExtracted = types.ExtractionExtracted
	StatusEmpty     = types.ExtractionEmpty
	StatusSkipped   = types.ExtractionSkipped
	StatusFailed    = types.ExtractionFailed
)

type Technique = types.Technique

const (
	TechniqueVisionOCR = types.TechniqueVisionOCR
	TechniqueDocToText = types.TechniqueDocToText
	TechniqueNotebook  = types.TechniqueNotebook
	TechniquePlainText = types.TechniquePlainText
)

// Result is the outcome for one file.
type Result struct {
	Material  *types.RawMaterial
	Status    Status
	Technique Technique
	Text      string
	Warning   string
}

// Included reports whether the file contributes a section to the combined text.
func (r Result) Included() bool {
	switch r.Status {
	case StatusExtracted:
		return longEnough(r.Text)
	case StatusSkipped:
		return r.Text != ""
	}
	return false
}

type Output struct {
	CombinedText string
	// MethodsUsed lists each technique once, in first-use order.
	MethodsUsed []Technique
	Documents   []Result
}

// Downloader fetches the bytes of one attachment.
type Downloader interface {
	Download(ctx context.Context, m *types.RawMaterial) ([]byte, error)
}

type Input struct {
	Title       string
	Description string
	Materials   []*types.RawMaterial
	// Vision transcribes PDF pages. Nil means no vision credential was supplied.
	Vision openai.Client
}

type Extractor struct {
	log         *logger.Logger
	dl          Downloader
	renderer    PageRenderer
	maxPDFPages int
}

type Option func(*Extractor)

func WithRenderer(r PageRenderer) Option { return func(e *Extractor) { e.renderer = r } }

func WithMaxPDFPages(n int) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.maxPDFPages = n
		}
	}
}

func New(log *logger.Logger, dl Downloader, opts ...Option) *Extractor {
	e := &Extractor{
		log:         log.With("component", "MaterialExtractor"),
		dl:          dl,
		renderer:    NewFitzRenderer(),
		maxPDFPages: DefaultMaxPDFPages,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Extract processes materials one at a time. A failing file is logged and
// contributes nothing; it never aborts the batch.
func (e *Extractor) Extract(ctx context.Context, in Input) Output {
	ctx = ctxutil.Default(ctx)
	out := Output{Documents: make([]Result, 0, len(in.Materials))}
	seen := map[Technique]bool{}

	for _, m := range in.Materials {
		if m == nil {
			continue
		}
		res := e.extractOne(ctx, m, in.Vision)
		res.Material = m
		switch res.Status {
		case StatusFailed:
			e.log.Warn("Material extraction failed", "file", m.Title, "material_id", m.ID, "warning", res.Warning)
		case StatusEmpty:
			e.log.Info("Material produced no usable text", "file", m.Title, "material_id", m.ID)
		}
		if res.Included() && res.Technique != "" && !seen[res.Technique] {
			seen[res.Technique] = true
			out.MethodsUsed = append(out.MethodsUsed, res.Technique)
		}
		out.Documents = append(out.Documents, res)
	}

	out.CombinedText = Combine(in.Title, in.Description, out.Documents)
	return out
}

func (e *Extractor) extractOne(ctx context.Context, m *types.RawMaterial, vision openai.Client) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Result{Status: StatusFailed, Warning: fmt.Sprintf("panic: %v", r)}
		}
	}()

	if IsBinary(m.Title) {
		return Result{Status: StatusSkipped, Warning: "binary attachment"}
	}
	if err := ctx.Err(); err != nil {
		return Result{Status: StatusFailed, Warning: err.Error()}
	}

	kind := ClassifyKind(m.Title, m.MimeType, nil)
	if kind == KindPDF && vision == nil {
		return Result{Status: StatusSkipped, Text: NoVisionPlaceholder, Warning: "no vision credential"}
	}

	data, err := e.dl.Download(ctx, m)
	if err != nil {
		return Result{Status: StatusFailed, Warning: "download: " + err.Error()}
	}
	if kind == KindUnknown {
		kind = ClassifyKind(m.Title, m.MimeType, data)
		if kind == KindPDF && vision == nil {
			return Result{Status: StatusSkipped, Text: NoVisionPlaceholder, Warning: "no vision credential"}
		}
	}

	var (
		text      string
		technique Technique
	)
	switch kind {
	case KindPDF:
		return e.transcribePDF(ctx, m.Title, data, vision)
	case KindDOCX:
		text, err = docxText(data)
		technique = TechniqueDocToText
	case KindNotebook:
		text, err = notebookText(data)
		technique = TechniqueNotebook
	case KindHTML:
		text, err = htmlText(data)
		technique = TechniquePlainText
	case KindText:
		text, technique = string(data), TechniquePlainText
	default:
		if !looksLikeText(data) {
			return Result{Status: StatusSkipped, Warning: fmt.Sprintf("unsupported file type (mime=%q)", m.MimeType)}
		}
		text, technique = string(data), TechniquePlainText
	}
	if err != nil {
		return Result{Status: StatusFailed, Warning: err.Error()}
	}

	text = normalizeText(text)
	if !longEnough(text) {
		return Result{Status: StatusEmpty}
	}
	return Result{Status: StatusExtracted, Technique: technique, Text: text}
}

// Section is one file's contribution to the combined text.
type Section struct {
	Title string
	Text  string
}

// Combine builds the combined content: title, description, then one fenced
// section per included file.
func Combine(title, description string, docs []Result) string {
	sections := make([]Section, 0, len(docs))
	for _, d := range docs {
		if !d.Included() {
			continue
		}
		name := ""
		if d.Material != nil {
			name = d.Material.Title
		}
		sections = append(sections, Section{Title: name, Text: d.Text})
	}
	return CombineSections(title, description, sections)
}

func CombineSections(title, description string, sections []Section) string {
	var b strings.Builder
	if t := strings.TrimSpace(title); t != "" {
		b.WriteString("Assignment: " + t + "\n")
	}
	if d := strings.TrimSpace(description); d != "" {
		b.WriteString("Description: " + d + "\n")
	}
	for _, s := range sections {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString("--- FILE: " + s.Title + " ---\n")
		b.WriteString(strings.TrimSpace(s.Text))
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String())
}
