// Package timeline holds the resolved description of one generated story video
// and the loader that turns a persisted timeline.json into it.
package timeline

// Transition names an enter or exit effect on a background element.
// Unknown kinds are carried through untouched and have no visual effect.
type Transition string

const (
	TransitionNone Transition = ""
	TransitionBlur Transition = "blur"
)

type BackgroundElement struct {
	StartMs         float64    `json:"startMs"`
	EndMs           float64    `json:"endMs"`
	Source          string     `json:"source"`
	EnterTransition Transition `json:"enterTransition,omitempty"`
	ExitTransition  Transition `json:"exitTransition,omitempty"`
}

func (e BackgroundElement) DurationMs() float64 {
	return e.EndMs - e.StartMs
}

type SubtitleCue struct {
	StartMs float64 `json:"startMs"`
	EndMs   float64 `json:"endMs"`
	Text    string  `json:"text"`
}

type AudioCue struct {
	StartMs  float64 `json:"startMs"`
	EndMs    float64 `json:"endMs"`
	AudioUrl string  `json:"audioUrl"`
}

// Timeline is immutable once loaded; renders share it read-only across frames.
type Timeline struct {
	ShortTitle string              `json:"shortTitle"`
	Elements   []BackgroundElement `json:"elements"`
	Text       []SubtitleCue       `json:"text"`
	Audio      []AudioCue          `json:"audio"`
}

// Loaded is a validated timeline plus the frame count the render target needs up front.
type Loaded struct {
	Timeline     *Timeline
	LengthFrames int
}
