// Package composition is the render target surface: named compositions with a
// fixed frame rate and size, and a frame count known before the render starts.
package composition

import (
	"context"
	"fmt"
	"sort"

	"github.com/samber/lo"
	"github.com/texttheater/golang-levenshtein/levenshtein"
	"go.uber.org/zap"

	"storyreel/internal/frames"
	"storyreel/internal/scene"
	"storyreel/internal/timeline"
	"storyreel/log"
	apperrors "storyreel/pkg/errors"
)

type Kind string

const (
	KindStatic   Kind = "static"
	KindTimeline Kind = "timeline"
)

type Composition struct {
	ID               string `json:"id"`
	Kind             Kind   `json:"kind"`
	Fps              int    `json:"fps"`
	Width            int    `json:"width"`
	Height           int    `json:"height"`
	DurationInFrames int    `json:"durationInFrames"`
}

// Resolved is a composition ready to render. Exactly one of Scene or
// Schedule is set, depending on Kind.
type Resolved struct {
	Composition
	ContentDir string
	Scene      *scene.Descriptor
	Loaded     *timeline.Loaded
	Schedule   *Schedule
}

type Options struct {
	ContentDir  string
	Fps         int
	IntroFrames int
	Width       int
	Height      int
}

type Registry struct {
	opts    Options
	conv    frames.Converter
	statics map[string]*scene.Descriptor
}

// NewRegistry registers promos as static compositions. Story compositions are
// discovered from the content dir on every call.
func NewRegistry(opts Options, promos ...*scene.Descriptor) *Registry {
	r := &Registry{
		opts:    opts,
		conv:    frames.New(opts.Fps, opts.IntroFrames),
		statics: make(map[string]*scene.Descriptor, len(promos)),
	}
	for _, p := range promos {
		r.statics[p.ID] = p
	}
	return r
}

// NewDefaultRegistry registers the embedded promos.
func NewDefaultRegistry(opts Options) (*Registry, error) {
	promos, err := scene.Builtin()
	if err != nil {
		return nil, err
	}
	return NewRegistry(opts, promos...), nil
}

func (r *Registry) Converter() frames.Converter {
	return r.conv
}

func staticComposition(d *scene.Descriptor) Composition {
	return Composition{
		ID:               d.ID,
		Kind:             KindStatic,
		Fps:              d.Fps,
		Width:            d.Width,
		Height:           d.Height,
		DurationInFrames: d.TotalFrames(),
	}
}

func (r *Registry) timelineComposition(id string, loaded *timeline.Loaded) Composition {
	return Composition{
		ID:               id,
		Kind:             KindTimeline,
		Fps:              r.opts.Fps,
		Width:            r.opts.Width,
		Height:           r.opts.Height,
		DurationInFrames: loaded.LengthFrames,
	}
}

func (r *Registry) storyIDs() []string {
	ids, err := timeline.Discover(r.opts.ContentDir)
	if err != nil {
		log.GetLogger().Warn("discover stories failed", zap.String("content_dir", r.opts.ContentDir), zap.Error(err))
		return nil
	}
	return lo.Filter(ids, func(id string, _ int) bool {
		_, shadowed := r.statics[id]
		return !shadowed
	})
}

// IDs lists every known composition id, promos first.
func (r *Registry) IDs() []string {
	ids := lo.Keys(r.statics)
	sort.Strings(ids)
	return append(ids, r.storyIDs()...)
}

// List describes every composition. Stories whose timeline does not load are
// left out and logged.
func (r *Registry) List(ctx context.Context) []Composition {
	statics := lo.Values(r.statics)
	sort.Slice(statics, func(i, j int) bool { return statics[i].ID < statics[j].ID })
	out := lo.Map(statics, func(d *scene.Descriptor, _ int) Composition { return staticComposition(d) })

	for _, id := range r.storyIDs() {
		if ctx.Err() != nil {
			break
		}
		loaded, err := timeline.LoadStory(r.opts.ContentDir, id, r.conv)
		if err != nil {
			log.GetLogger().Warn("skipping story with invalid timeline", zap.String("story_id", id), zap.Error(err))
			continue
		}
		out = append(out, r.timelineComposition(id, loaded))
	}
	return out
}

// Resolve finds id and, for a story, loads its timeline so the frame count is
// known before rendering.
func (r *Registry) Resolve(ctx context.Context, id string) (*Resolved, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if d, ok := r.statics[id]; ok {
		return &Resolved{Composition: staticComposition(d), ContentDir: r.opts.ContentDir, Scene: d}, nil
	}

	if lo.Contains(r.storyIDs(), id) {
		loaded, err := timeline.LoadStory(r.opts.ContentDir, id, r.conv)
		if err != nil {
			return nil, err
		}
		schedule := BuildSchedule(loaded, r.conv)
		return &Resolved{
			Composition: r.timelineComposition(id, loaded),
			ContentDir:  r.opts.ContentDir,
			Loaded:      loaded,
			Schedule:    schedule,
		}, nil
	}

	detail := id
	if s := Suggest(id, r.IDs()); s != "" {
		detail = fmt.Sprintf("%s (did you mean %s?)", id, s)
	}
	return nil, apperrors.WrapWithDetail(apperrors.CodeCompositionNotFound, "Composition not found", detail, nil)
}

// Suggest returns the candidate closest to id, or "" when nothing is within
// half of id's length.
func Suggest(id string, candidates []string) string {
	best, bestDist := "", -1
	for _, c := range candidates {
		d := levenshtein.DistanceForStrings([]rune(id), []rune(c), levenshtein.DefaultOptions)
		if bestDist < 0 || d < bestDist {
			best, bestDist = c, d
		}
	}
	if bestDist < 0 || bestDist > max(1, len([]rune(id))/2) {
		return ""
	}
	return best
}
