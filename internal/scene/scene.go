// Package scene describes promotional compositions as data: an ordered list
// of scenes joined by transitions, loaded from YAML.
package scene

import (
	"embed"
	"fmt"
	"os"
	"path"
	"sort"

	"gopkg.in/yaml.v3"

	apperrors "storyreel/pkg/errors"
)

type TransitionKind string

const (
	TransitionNone  TransitionKind = "none"
	TransitionFade  TransitionKind = "fade"
	TransitionSlide TransitionKind = "slide"
	TransitionWipe  TransitionKind = "wipe"
)

// Transition joins a scene to the one after it; the two overlap for Frames frames.
type Transition struct {
	Kind   TransitionKind `yaml:"kind" json:"kind"`
	Frames int            `yaml:"frames" json:"frames"`
}

type Scene struct {
	Name           string      `yaml:"name" json:"name"`
	DurationFrames int         `yaml:"duration_frames" json:"durationFrames"`
	Background     string      `yaml:"background" json:"background"`
	Foreground     string      `yaml:"foreground" json:"foreground"`
	Words          []string    `yaml:"words,omitempty" json:"words,omitempty"`
	Image          string      `yaml:"image,omitempty" json:"image,omitempty"`
	Transition     *Transition `yaml:"transition,omitempty" json:"transition,omitempty"`
}

type Descriptor struct {
	ID             string  `yaml:"id" json:"id"`
	Fps            int     `yaml:"fps" json:"fps"`
	Width          int     `yaml:"width" json:"width"`
	Height         int     `yaml:"height" json:"height"`
	DurationFrames int     `yaml:"duration_frames,omitempty" json:"durationFrames,omitempty"` // fixed length; 0 means derived from scenes
	Scenes         []Scene `yaml:"scenes" json:"scenes"`
}

// Frame is the scene state at one frame. During a transition From is the
// outgoing scene index and Progress runs from 0 towards 1.
type Frame struct {
	Index    int
	Local    int
	From     int
	Progress float64
	Kind     TransitionKind
}

func (t *Transition) frames() int {
	if t == nil || t.Kind == TransitionNone {
		return 0
	}
	return t.Frames
}

// SceneFrames is the transition-series length: all durations minus every
// overlap between neighbours.
func (d *Descriptor) SceneFrames() int {
	total := 0
	for i, s := range d.Scenes {
		total += s.DurationFrames
		if i < len(d.Scenes)-1 {
			total -= s.Transition.frames()
		}
	}
	return total
}

// TotalFrames is the fixed length when set, otherwise SceneFrames.
func (d *Descriptor) TotalFrames() int {
	if d.DurationFrames > 0 {
		return d.DurationFrames
	}
	return d.SceneFrames()
}

// starts returns each scene's first frame.
func (d *Descriptor) starts() []int {
	out := make([]int, len(d.Scenes))
	at := 0
	for i, s := range d.Scenes {
		out[i] = at
		at += s.DurationFrames - s.Transition.frames()
	}
	return out
}

// FrameAt locates frame within the scenes. Frames past the last scene hold on
// its final frame.
func (d *Descriptor) FrameAt(frame int) Frame {
	if len(d.Scenes) == 0 {
		return Frame{Index: -1, From: -1}
	}
	starts := d.starts()
	i := sort.Search(len(starts), func(k int) bool { return starts[k] > frame }) - 1
	if i < 0 {
		i = 0
	}
	last := len(d.Scenes) - 1
	local := frame - starts[i]
	if i == last && local >= d.Scenes[i].DurationFrames {
		local = d.Scenes[i].DurationFrames - 1
	}

	out := Frame{Index: i, Local: local, From: -1}
	if i > 0 {
		prev := d.Scenes[i-1].Transition
		if n := prev.frames(); n > 0 && local < n {
			out.From = i - 1
			out.Progress = float64(local) / float64(n)
			out.Kind = prev.Kind
		}
	}
	return out
}

func (d *Descriptor) Validate() error {
	fail := func(format string, args ...any) error {
		return apperrors.WrapWithDetail(apperrors.CodeSceneDescriptorError, "Invalid scene descriptor",
			fmt.Sprintf("%s: ", d.ID)+fmt.Sprintf(format, args...), nil)
	}
	if d.ID == "" {
		return fail("id is required")
	}
	if d.Fps <= 0 || d.Width <= 0 || d.Height <= 0 {
		return fail("fps, width and height must be positive")
	}
	if len(d.Scenes) == 0 && d.DurationFrames <= 0 {
		return fail("needs scenes or a fixed duration")
	}
	for i, s := range d.Scenes {
		if s.DurationFrames <= 0 {
			return fail("scene %d (%s) has non-positive duration", i, s.Name)
		}
		if s.Transition == nil {
			continue
		}
		switch s.Transition.Kind {
		case TransitionNone, TransitionFade, TransitionSlide, TransitionWipe:
		default:
			return fail("scene %d (%s) has unknown transition %q", i, s.Name, s.Transition.Kind)
		}
		n := s.Transition.frames()
		if n < 0 {
			return fail("scene %d (%s) has negative transition", i, s.Name)
		}
		if i < len(d.Scenes)-1 && (n > s.DurationFrames || n > d.Scenes[i+1].DurationFrames) {
			return fail("scene %d (%s) transition longer than a neighbour", i, s.Name)
		}
	}
	return nil
}

func Parse(data []byte) (*Descriptor, error) {
	var d Descriptor
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeSceneDescriptorError, "Scene descriptor is not valid YAML", err)
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

func Load(file string) (*Descriptor, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, apperrors.WrapWithDetail(apperrors.CodeSceneDescriptorError, "Read scene descriptor failed", file, err)
	}
	return Parse(data)
}

func Save(file string, d *Descriptor) error {
	data, err := yaml.Marshal(d)
	if err != nil {
		return err
	}
	return os.WriteFile(file, data, 0o644)
}

//go:embed promos/*.yaml
var builtin embed.FS

// Builtin returns the embedded promo descriptors, ordered by id.
func Builtin() ([]*Descriptor, error) {
	entries, err := builtin.ReadDir("promos")
	if err != nil {
		return nil, err
	}
	out := make([]*Descriptor, 0, len(entries))
	for _, entry := range entries {
		data, err := builtin.ReadFile(path.Join("promos", entry.Name()))
		if err != nil {
			return nil, err
		}
		d, err := Parse(data)
		if err != nil {
			return nil, fmt.Errorf("builtin %s: %w", entry.Name(), err)
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
