package extractor

import (
	"path/filepath"
	"strings"
	"unicode/utf8"
)

type Kind string

const (
	KindPDF      Kind = "pdf"
	KindDOCX     Kind = "docx"
	KindNotebook Kind = "notebook"
	KindHTML     Kind = "html"
	KindText     Kind = "text"
	KindUnknown  Kind = "unknown"
)

var binaryExts = map[string]bool{
	".zip": true, ".rar": true, ".7z": true, ".tar": true, ".gz": true, ".tgz": true,
	".exe": true, ".dll": true, ".bin": true, ".dmg": true, ".iso": true, ".so": true,
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".bmp": true, ".webp": true,
	".tif": true, ".tiff": true, ".heic": true, ".svg": true,
	".mp3": true, ".wav": true, ".mp4": true, ".mov": true, ".avi": true, ".mkv": true,
}

// IsBinary reports names whose extension marks a non-text attachment.
func IsBinary(name string) bool {
	return binaryExts[strings.ToLower(filepath.Ext(strings.TrimSpace(name)))]
}

func ClassifyKind(name, mime string, head []byte) Kind {
	m := strings.ToLower(strings.TrimSpace(mime))
	ext := strings.ToLower(filepath.Ext(name))

	switch {
	case m == "application/pdf" || ext == ".pdf" || isPDFHeader(head):
		return KindPDF
	case ext == ".docx" || strings.Contains(m, "wordprocessingml"):
		return KindDOCX
	case ext == ".ipynb" || m == "application/x-ipynb+json":
		return KindNotebook
	case ext == ".html" || ext == ".htm" || m == "text/html":
		return KindHTML
	case strings.HasPrefix(m, "text/") || m == "application/json" || m == "application/xml":
		return KindText
	}
	switch ext {
	case ".txt", ".md", ".csv", ".tsv", ".json", ".xml", ".yaml", ".yml", ".tex",
		".py", ".java", ".c", ".cpp", ".h", ".js", ".ts", ".go", ".r", ".m", ".sql", ".log":
		return KindText
	}
	return KindUnknown
}

func isPDFHeader(b []byte) bool {
	return len(b) >= 5 && string(b[:5]) == "%PDF-"
}

// looksLikeText accepts byte slices that decode to mostly printable runes.
func looksLikeText(data []byte) bool {
	printable, total := 0, 0
	for _, r := range string(data) {
		total++
		if r == '\n' || r == '\r' || r == '\t' || r == ' ' || (r >= 32 && r != 127 && r != utf8.RuneError) {
			printable++
		}
	}
	return total > 0 && float64(printable)/float64(total) > 0.90
}
