// Package realtime carries streamed chat output to clients as server-sent events.
package realtime

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
)

// Frame is one event on the wire. Exactly one of Content, Done or Error is set.
type Frame struct {
	Content string `json:"content,omitempty"`
	Done    bool   `json:"done,omitempty"`
	Error   string `json:"error,omitempty"`
	// Notice accompanies Error with a short label for the UI.
	Notice string `json:"notice,omitempty"`
}

func ContentFrame(s string) Frame { return Frame{Content: s} }
func DoneFrame() Frame            { return Frame{Done: true} }
func ErrorFrame(msg, notice string) Frame {
	return Frame{Error: msg, Notice: notice}
}

// SetStreamHeaders prepares a response for event streaming.
func SetStreamHeaders(h http.Header) {
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
}

// Writer encodes frames as `data: <json>\n\n` and flushes after each one.
type Writer struct {
	mu sync.Mutex
	w  io.Writer
	f  http.Flusher
}

func NewWriter(w io.Writer) *Writer {
	f, _ := w.(http.Flusher)
	return &Writer{w: w, f: f}
}

func (w *Writer) Send(fr Frame) error {
	payload, err := json.Marshal(fr)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	var b bytes.Buffer
	b.Grow(len(payload) + 8)
	b.WriteString("data: ")
	b.Write(payload)
	b.WriteString("\n\n")
	if _, err := w.w.Write(b.Bytes()); err != nil {
		return err
	}
	if w.f != nil {
		w.f.Flush()
	}
	return nil
}

// Comment writes an SSE comment line, used as a keep-alive.
func (w *Writer) Comment(text string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := io.WriteString(w.w, ": "+text+"\n\n"); err != nil {
		return err
	}
	if w.f != nil {
		w.f.Flush()
	}
	return nil
}

// ReadFrames decodes a frame stream, calling fn per frame until EOF or until fn
// returns an error. Events whose data is not a JSON frame are skipped.
func ReadFrames(r io.Reader, fn func(Frame) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1<<20)

	var data []string
	dispatch := func() error {
		if len(data) == 0 {
			return nil
		}
		raw := strings.Join(data, "\n")
		data = data[:0]
		var fr Frame
		if err := json.Unmarshal([]byte(raw), &fr); err != nil {
			return nil
		}
		return fn(fr)
	}

	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		switch {
		case line == "":
			if err := dispatch(); err != nil {
				return err
			}
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "data:"):
			data = append(data, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}
	if err := sc.Err(); err != nil {
		return err
	}
	return dispatch()
}
