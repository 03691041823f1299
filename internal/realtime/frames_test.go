package realtime

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestWriterFormatsAndFlushes(t *testing.T) {
	rec := httptest.NewRecorder()
	w := NewWriter(rec)
	for _, f := range []Frame{ContentFrame("Hel"), ContentFrame("lo"), DoneFrame()} {
		if err := w.Send(f); err != nil {
			t.Fatalf("Send: %v", err)
		}
	}
	want := "data: {\"content\":\"Hel\"}\n\ndata: {\"content\":\"lo\"}\n\ndata: {\"done\":true}\n\n"
	if got := rec.Body.String(); got != want {
		t.Fatalf("body: want=%q got=%q", want, got)
	}
	if !rec.Flushed {
		t.Fatalf("writer should flush")
	}
}

func TestReadFramesRoundTripAndSkipsGarbage(t *testing.T) {
	stream := strings.Join([]string{
		": keep-alive",
		"",
		`data: {"content":"Hel"}`,
		"",
		"data: not json",
		"",
		"event: ignored",
		`data: {"content":"lo"}`,
		"",
		`data: {"error":"Rate limited","notice":"Rate limited"}`,
		"",
		`data: {"done":true}`,
	}, "\n")

	var got []Frame
	if err := ReadFrames(strings.NewReader(stream), func(f Frame) error {
		got = append(got, f)
		return nil
	}); err != nil {
		t.Fatalf("ReadFrames: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("frames: want=4 got=%d (%+v)", len(got), got)
	}
	if got[0].Content+got[1].Content != "Hello" || got[2].Error == "" || !got[3].Done {
		t.Fatalf("frames: got=%+v", got)
	}
}

func TestReadFramesStopsOnCallbackError(t *testing.T) {
	stop := errors.New("stop")
	n := 0
	err := ReadFrames(strings.NewReader("data: {\"content\":\"a\"}\n\ndata: {\"content\":\"b\"}\n\n"), func(Frame) error {
		n++
		return stop
	})
	if !errors.Is(err, stop) || n != 1 {
		t.Fatalf("want stop after first frame, got err=%v n=%d", err, n)
	}
}
