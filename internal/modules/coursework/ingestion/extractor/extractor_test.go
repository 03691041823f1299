package extractor

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	types "github.com/yungbote/coursework-backend/internal/domain"
	"github.com/yungbote/coursework-backend/internal/platform/logger"
	"github.com/yungbote/coursework-backend/internal/platform/openai"
	"github.com/yungbote/coursework-backend/internal/platform/openai/openaitest"
)

type mapDownloader struct {
	files map[string][]byte
	errs  map[string]error
	calls []string
}

func (d *mapDownloader) Download(_ context.Context, m *types.RawMaterial) ([]byte, error) {
	d.calls = append(d.calls, m.Title)
	if err := d.errs[m.Title]; err != nil {
		return nil, err
	}
	b, ok := d.files[m.Title]
	if !ok {
		return nil, fmt.Errorf("no such file %s", m.Title)
	}
	return b, nil
}

type stubRenderer struct {
	pages int
	err   error
}

func (r stubRenderer) RenderPNG(_ []byte, maxPages int) ([][]byte, int, error) {
	if r.err != nil {
		return nil, 0, r.err
	}
	n := r.pages
	if maxPages > 0 && n > maxPages {
		n = maxPages
	}
	out := make([][]byte, n)
	for i := range out {
		out[i] = []byte{0x89, 'P', 'N', 'G'}
	}
	return out, r.pages, nil
}

func newExtractor(t *testing.T, dl Downloader, r PageRenderer) *Extractor {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	t.Cleanup(log.Sync)
	return New(log, dl, WithRenderer(r), WithMaxPDFPages(3))
}

func material(title, mime string) *types.RawMaterial {
	return &types.RawMaterial{Title: title, MimeType: mime}
}

const fiftyChars = "Compute the net force on the block in Figure 1 ..."

func TestBlankPDFOmittedAndTextFileIncluded(t *testing.T) {
	if len(fiftyChars) != 50 {
		t.Fatalf("fixture: want 50 chars got=%d", len(fiftyChars))
	}
	dl := &mapDownloader{files: map[string][]byte{
		"scan.pdf":  []byte("%PDF-1.7 ..."),
		"notes.txt": []byte(fiftyChars),
	}}
	vision := &openaitest.Client{
		ImagesFunc: func(context.Context, string, string, []openai.ImageInput) (string, error) {
			return "NO_TEXT_FOUND", nil
		},
	}
	ex := newExtractor(t, dl, stubRenderer{pages: 2})

	out := ex.Extract(context.Background(), Input{
		Title:     "HW 3",
		Materials: []*types.RawMaterial{material("scan.pdf", "application/pdf"), material("notes.txt", "text/plain")},
		Vision:    vision,
	})

	if len(out.MethodsUsed) != 1 || out.MethodsUsed[0] != TechniquePlainText {
		t.Fatalf("MethodsUsed: want=[plain_text] got=%v", out.MethodsUsed)
	}
	if strings.Contains(out.CombinedText, "scan.pdf") {
		t.Fatalf("CombinedText: blank pdf should be omitted:\n%s", out.CombinedText)
	}
	if !strings.Contains(out.CombinedText, "--- FILE: notes.txt ---\n"+fiftyChars) {
		t.Fatalf("CombinedText: missing notes section:\n%s", out.CombinedText)
	}
	if out.Documents[0].Status != StatusEmpty {
		t.Fatalf("pdf status: want=%s got=%s", StatusEmpty, out.Documents[0].Status)
	}
	if vision.CallCount() != 2 {
		t.Fatalf("vision calls: want=2 got=%d", vision.CallCount())
	}
}

func TestPasswordProtectedPDFIsEmpty(t *testing.T) {
	dl := &mapDownloader{files: map[string][]byte{"locked.pdf": []byte("%PDF-1.4")}}
	ex := newExtractor(t, dl, stubRenderer{err: fmt.Errorf("%w: needs password", ErrUnreadablePDF)})
	vision := &openaitest.Client{}

	out := ex.Extract(context.Background(), Input{Materials: []*types.RawMaterial{material("locked.pdf", "")}, Vision: vision})
	if out.Documents[0].Status != StatusEmpty {
		t.Fatalf("status: want=%s got=%s", StatusEmpty, out.Documents[0].Status)
	}
	if len(out.MethodsUsed) != 0 || vision.CallCount() != 0 {
		t.Fatalf("want no methods and no vision calls, got methods=%v calls=%d", out.MethodsUsed, vision.CallCount())
	}
}

func TestPDFWithoutVisionEmitsPlaceholder(t *testing.T) {
	dl := &mapDownloader{}
	ex := newExtractor(t, dl, stubRenderer{pages: 1})

	out := ex.Extract(context.Background(), Input{Materials: []*types.RawMaterial{material("lecture.pdf", "application/pdf")}})
	if got := out.Documents[0]; got.Status != StatusSkipped || got.Text != NoVisionPlaceholder {
		t.Fatalf("result: got status=%s text=%q", got.Status, got.Text)
	}
	if !strings.Contains(out.CombinedText, "--- FILE: lecture.pdf ---\n"+NoVisionPlaceholder) {
		t.Fatalf("CombinedText: want placeholder section got:\n%s", out.CombinedText)
	}
	if len(out.MethodsUsed) != 0 {
		t.Fatalf("MethodsUsed: want none got=%v", out.MethodsUsed)
	}
	if len(dl.calls) != 0 {
		t.Fatalf("download: want no download without vision, got=%v", dl.calls)
	}
}

func TestPDFPagesTranscribedInOrderAndCapped(t *testing.T) {
	dl := &mapDownloader{files: map[string][]byte{"long.pdf": []byte("%PDF-")}}
	page := 0
	vision := &openaitest.Client{
		ImagesFunc: func(_ context.Context, _, user string, images []openai.ImageInput) (string, error) {
			page++
			if len(images) != 1 || !strings.HasPrefix(images[0].ImageURL, "data:image/png;base64,") {
				return "", errors.New("bad image input")
			}
			if page == 2 {
				return "", errors.New("upstream hiccup")
			}
			return fmt.Sprintf("Page %d: question text long enough to keep", page), nil
		},
	}
	ex := newExtractor(t, dl, stubRenderer{pages: 5})

	out := ex.Extract(context.Background(), Input{Materials: []*types.RawMaterial{material("long.pdf", "")}, Vision: vision})
	doc := out.Documents[0]
	if doc.Status != StatusExtracted || doc.Technique != TechniqueVisionOCR {
		t.Fatalf("result: got status=%s technique=%s", doc.Status, doc.Technique)
	}
	if vision.CallCount() != 3 {
		t.Fatalf("vision calls: want=3 (capped) got=%d", vision.CallCount())
	}
	if !strings.Contains(doc.Text, "Page 1") || strings.Contains(doc.Text, "Page 2") || !strings.Contains(doc.Text, "Page 3") {
		t.Fatalf("text: got=%q", doc.Text)
	}
	if !strings.Contains(doc.Warning, "first 3 of 5") {
		t.Fatalf("warning: got=%q", doc.Warning)
	}
}

func TestFailuresDoNotAbortBatch(t *testing.T) {
	dl := &mapDownloader{
		files: map[string][]byte{
			"a.txt": []byte("first readable attachment with text"),
			"c.md":  []byte("third readable attachment with text"),
		},
		errs: map[string]error{"b.txt": errors.New("403 forbidden")},
	}
	ex := newExtractor(t, dl, stubRenderer{})

	out := ex.Extract(context.Background(), Input{Materials: []*types.RawMaterial{
		material("a.txt", ""), material("b.txt", ""), material("photo.jpg", "image/jpeg"), material("c.md", ""),
	}})
	want := []Status{StatusExtracted, StatusFailed, StatusSkipped, StatusExtracted}
	for i, w := range want {
		if out.Documents[i].Status != w {
			t.Fatalf("doc[%d]: want=%s got=%s", i, w, out.Documents[i].Status)
		}
	}
	if len(out.MethodsUsed) != 1 {
		t.Fatalf("MethodsUsed: technique recorded once, got=%v", out.MethodsUsed)
	}
	for _, name := range dl.calls {
		if name == "photo.jpg" {
			t.Fatalf("binary attachment should not be downloaded")
		}
	}
	if strings.Index(out.CombinedText, "a.txt") > strings.Index(out.CombinedText, "c.md") {
		t.Fatalf("CombinedText: file order not preserved")
	}
}

func TestNotebookSkipsEmptyCells(t *testing.T) {
	nb := `{"cells":[
		{"cell_type":"markdown","source":["# Lab 2\n","Plot the data."]},
		{"cell_type":"code","source":""},
		{"cell_type":"code","source":"import numpy as np\nx = np.arange(10)"}
	]}`
	dl := &mapDownloader{files: map[string][]byte{"lab.ipynb": []byte(nb)}}
	ex := newExtractor(t, dl, stubRenderer{})

	out := ex.Extract(context.Background(), Input{Materials: []*types.RawMaterial{material("lab.ipynb", "")}})
	doc := out.Documents[0]
	if doc.Technique != TechniqueNotebook {
		t.Fatalf("technique: want=%s got=%s", TechniqueNotebook, doc.Technique)
	}
	want := "# Lab 2\nPlot the data.\n\nimport numpy as np\nx = np.arange(10)"
	if doc.Text != want {
		t.Fatalf("text: want=%q got=%q", want, doc.Text)
	}
}

func TestDocxParagraphs(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, _ := zw.Create("word/document.xml")
	_, _ = w.Write([]byte(`<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>
<w:p><w:r><w:t>Question 1: Define entropy.</w:t></w:r></w:p>
<w:p><w:r><w:t xml:space="preserve">Question 2: </w:t></w:r><w:r><w:t>State the second law.</w:t></w:r></w:p>
</w:body></w:document>`))
	_ = zw.Close()

	dl := &mapDownloader{files: map[string][]byte{"hw.docx": buf.Bytes()}}
	ex := newExtractor(t, dl, stubRenderer{})
	out := ex.Extract(context.Background(), Input{Materials: []*types.RawMaterial{material("hw.docx", "")}})
	doc := out.Documents[0]
	if doc.Technique != TechniqueDocToText {
		t.Fatalf("technique: want=%s got=%s", TechniqueDocToText, doc.Technique)
	}
	if doc.Text != "Question 1: Define entropy.\nQuestion 2: State the second law." {
		t.Fatalf("text: got=%q", doc.Text)
	}
}

func TestHTMLAttachmentDropsScripts(t *testing.T) {
	page := `<html><head><title>x</title><script>alert(1)</script></head>
<body><h1>Problem Set</h1><p>Find the eigenvalues of A.</p><ul><li>Show work</li></ul></body></html>`
	dl := &mapDownloader{files: map[string][]byte{"ps.html": []byte(page)}}
	ex := newExtractor(t, dl, stubRenderer{})
	out := ex.Extract(context.Background(), Input{Materials: []*types.RawMaterial{material("ps.html", "")}})
	if got := out.Documents[0].Text; got != "Problem Set\nFind the eigenvalues of A.\nShow work" {
		t.Fatalf("text: got=%q", got)
	}
}

func TestShortTextIsEmpty(t *testing.T) {
	dl := &mapDownloader{files: map[string][]byte{"tiny.txt": []byte("  too short ")}}
	ex := newExtractor(t, dl, stubRenderer{})
	out := ex.Extract(context.Background(), Input{Title: "T", Materials: []*types.RawMaterial{material("tiny.txt", "")}})
	if out.Documents[0].Status != StatusEmpty {
		t.Fatalf("status: want=%s got=%s", StatusEmpty, out.Documents[0].Status)
	}
	if out.CombinedText != "Assignment: T" {
		t.Fatalf("CombinedText: got=%q", out.CombinedText)
	}
}

func TestShortTextCountsCharactersNotBytes(t *testing.T) {
	// 15 characters, 45 bytes.
	short := "牛顿第二定律力等于质量乘加速度"
	long := short + "的关系式成立"
	dl := &mapDownloader{files: map[string][]byte{"short.txt": []byte(short), "long.txt": []byte(long)}}
	ex := newExtractor(t, dl, stubRenderer{})
	out := ex.Extract(context.Background(), Input{Materials: []*types.RawMaterial{material("short.txt", ""), material("long.txt", "")}})
	if out.Documents[0].Status != StatusEmpty {
		t.Fatalf("short status: want=%s got=%s", StatusEmpty, out.Documents[0].Status)
	}
	if out.Documents[1].Status != StatusExtracted || out.Documents[1].Text != long {
		t.Fatalf("long: status=%s text=%q", out.Documents[1].Status, out.Documents[1].Text)
	}
}
