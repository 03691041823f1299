package modes

import (
	"context"

	"github.com/google/uuid"
	"github.com/sergi/go-diff/diffmatchpatch"

	types "github.com/yungbote/coursework-backend/internal/domain"
)

const (
	SegmentSame    = "same"
	SegmentAdded   = "added"
	SegmentRemoved = "removed"
)

// MaxDiffChars bounds the inputs to a draft diff; larger pairs report Truncated.
const MaxDiffChars = 200_000

type DiffSegment struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// DraftDiff compares the generated draft with the student's override.
type DraftDiff struct {
	Overridden bool          `json:"overridden"`
	Truncated  bool          `json:"truncated"`
	Added      int           `json:"added_chars"`
	Removed    int           `json:"removed_chars"`
	Segments   []DiffSegment `json:"segments"`
}

// DiffDraft returns how the override differs from the generated draft. A
// draft without an override diffs as unchanged.
func (g *Generator) DiffDraft(ctx context.Context, assignmentID, userID uuid.UUID) (*DraftDiff, error) {
	art, err := g.Get(ctx, assignmentID, userID, types.ModeDraft)
	if err != nil {
		return nil, err
	}
	if art.Override == nil {
		return &DraftDiff{Segments: []DiffSegment{}}, nil
	}
	return diffText(art.Content, *art.Override), nil
}

func diffText(before, after string) *DraftDiff {
	out := &DraftDiff{Overridden: true, Segments: []DiffSegment{}}
	if len(before)+len(after) > MaxDiffChars {
		out.Truncated = true
		return out
	}
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffCleanupSemantic(dmp.DiffMain(before, after, false))
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			out.Segments = append(out.Segments, DiffSegment{Type: SegmentSame, Text: d.Text})
		case diffmatchpatch.DiffInsert:
			out.Segments = append(out.Segments, DiffSegment{Type: SegmentAdded, Text: d.Text})
			out.Added += len(d.Text)
		case diffmatchpatch.DiffDelete:
			out.Segments = append(out.Segments, DiffSegment{Type: SegmentRemoved, Text: d.Text})
			out.Removed += len(d.Text)
		}
	}
	return out
}
