package extractor

import (
	"encoding/json"
	"fmt"
	"strings"
)

type notebook struct {
	Cells []struct {
		CellType string          `json:"cell_type"`
		Source   json.RawMessage `json:"source"`
	} `json:"cells"`
}

// notebookText concatenates cell sources in order, skipping empty cells.
// A source may be a single string or a list of lines.
func notebookText(data []byte) (string, error) {
	var nb notebook
	if err := json.Unmarshal(data, &nb); err != nil {
		return "", fmt.Errorf("decode notebook: %w", err)
	}
	parts := make([]string, 0, len(nb.Cells))
	for _, c := range nb.Cells {
		src := cellSource(c.Source)
		if strings.TrimSpace(src) == "" {
			continue
		}
		parts = append(parts, strings.TrimRight(src, "\n"))
	}
	return strings.Join(parts, "\n\n"), nil
}

func cellSource(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var lines []string
	if err := json.Unmarshal(raw, &lines); err == nil {
		return strings.Join(lines, "")
	}
	return ""
}
