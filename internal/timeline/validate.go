package timeline

import (
	"fmt"
	"math"

	apperrors "storyreel/pkg/errors"
)

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func checkWindow(kind string, i int, startMs, endMs float64) error {
	if !finite(startMs) || !finite(endMs) {
		return apperrors.WrapWithDetail(apperrors.CodeTimelineSchema, "Timestamp is not a finite number",
			fmt.Sprintf("%s[%d] startMs=%v endMs=%v", kind, i, startMs, endMs), nil)
	}
	if startMs < 0 || endMs < 0 {
		return apperrors.WrapWithDetail(apperrors.CodeTimelineSchema, "Negative timestamp",
			fmt.Sprintf("%s[%d] startMs=%v endMs=%v", kind, i, startMs, endMs), nil)
	}
	if endMs <= startMs {
		return apperrors.WrapWithDetail(apperrors.CodeScheduleInvariant, "Cue ends before it starts",
			fmt.Sprintf("%s[%d] startMs=%v endMs=%v", kind, i, startMs, endMs), nil)
	}
	return nil
}

// Validate re-checks every cue window and the element ordering. It never
// assumes the input came through Parse.
func (t *Timeline) Validate() error {
	for i, e := range t.Elements {
		if err := checkWindow("elements", i, e.StartMs, e.EndMs); err != nil {
			return err
		}
		if i > 0 && e.StartMs < t.Elements[i-1].StartMs {
			return apperrors.WrapWithDetail(apperrors.CodeScheduleInvariant, "Elements not sorted by startMs",
				fmt.Sprintf("elements[%d].startMs=%v < elements[%d].startMs=%v", i, e.StartMs, i-1, t.Elements[i-1].StartMs), nil)
		}
	}
	for i, c := range t.Text {
		if err := checkWindow("text", i, c.StartMs, c.EndMs); err != nil {
			return err
		}
	}
	for i, a := range t.Audio {
		if err := checkWindow("audio", i, a.StartMs, a.EndMs); err != nil {
			return err
		}
	}
	return nil
}

// RequireElements rejects a timeline whose duration cannot be derived from content.
func (t *Timeline) RequireElements() error {
	if len(t.Elements) == 0 {
		return apperrors.ErrEmptyElements
	}
	return nil
}

// checkFrameRange rejects cues whose frame index would not fit an int32 at
// fps. Ends are checked; Validate already guarantees start < end.
func checkFrameRange(t *Timeline, fps int) error {
	check := func(kind string, i int, endMs float64) error {
		if endMs*float64(fps)/1000 > math.MaxInt32 {
			return apperrors.WrapWithDetail(apperrors.CodeTimelineSchema, "Timestamp out of range",
				fmt.Sprintf("%s[%d].endMs=%v fps=%d", kind, i, endMs, fps), nil)
		}
		return nil
	}
	for i, e := range t.Elements {
		if err := check("elements", i, e.EndMs); err != nil {
			return err
		}
	}
	for i, c := range t.Text {
		if err := check("text", i, c.EndMs); err != nil {
			return err
		}
	}
	for i, a := range t.Audio {
		if err := check("audio", i, a.EndMs); err != nil {
			return err
		}
	}
	return nil
}
