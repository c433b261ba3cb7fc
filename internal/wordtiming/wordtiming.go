// Package wordtiming derives word-level subtitle cues from per-character
// speech alignment.
package wordtiming

import (
	"fmt"
	"math"
	"strings"
	"unicode"
	"unicode/utf8"

	"storyreel/internal/timeline"
	apperrors "storyreel/pkg/errors"
)

// EstimatedSecondsPerChar is used when the synthesizer reports no duration.
const EstimatedSecondsPerChar = 0.06

// CharacterAlignment is the synthesizer output: parallel arrays, one entry
// per narrated character, times in seconds.
type CharacterAlignment struct {
	Characters                 []string  `json:"characters"`
	CharacterStartTimesSeconds []float64 `json:"characterStartTimesSeconds"`
	CharacterEndTimesSeconds   []float64 `json:"characterEndTimesSeconds"`
}

func (a *CharacterAlignment) Len() int {
	return len(a.Characters)
}

func (a *CharacterAlignment) Text() string {
	return strings.Join(a.Characters, "")
}

// DurationSeconds is the end of the last character, 0 when empty.
func (a *CharacterAlignment) DurationSeconds() float64 {
	if n := len(a.CharacterEndTimesSeconds); n > 0 {
		return a.CharacterEndTimesSeconds[n-1]
	}
	return 0
}

func (a *CharacterAlignment) check() error {
	n := len(a.Characters)
	if len(a.CharacterStartTimesSeconds) != n || len(a.CharacterEndTimesSeconds) != n {
		return apperrors.WrapWithDetail(apperrors.CodeAlignmentMismatch, "Character alignment arrays differ in length",
			fmt.Sprintf("characters=%d starts=%d ends=%d", n, len(a.CharacterStartTimesSeconds), len(a.CharacterEndTimesSeconds)), nil)
	}
	return nil
}

func isSpace(ch string) bool {
	return strings.TrimFunc(ch, unicode.IsSpace) == ""
}

func toMs(seconds float64) float64 {
	return math.Round(seconds * 1000)
}

// Cues groups characters into whitespace-separated words. A word starts at
// its first character's start and ends at its last character's end.
// Cues come out ordered, non-overlapping, and with endMs > startMs: a
// zero-length word is stretched to 1ms and a word starting before the
// previous end is moved to that end, so a run of zero-length words drifts
// forward 1ms per word.
func Cues(a *CharacterAlignment) ([]timeline.SubtitleCue, error) {
	if a == nil {
		return nil, nil
	}
	if err := a.check(); err != nil {
		return nil, err
	}

	cues := make([]timeline.SubtitleCue, 0)
	var word strings.Builder
	first, last := -1, -1

	flush := func() {
		if first < 0 {
			return
		}
		cue := timeline.SubtitleCue{
			StartMs: toMs(a.CharacterStartTimesSeconds[first]),
			EndMs:   toMs(a.CharacterEndTimesSeconds[last]),
			Text:    word.String(),
		}
		if n := len(cues); n > 0 && cue.StartMs < cues[n-1].EndMs {
			cue.StartMs = cues[n-1].EndMs
		}
		if cue.EndMs <= cue.StartMs {
			cue.EndMs = cue.StartMs + 1
		}
		cues = append(cues, cue)
		word.Reset()
		first, last = -1, -1
	}

	for i, ch := range a.Characters {
		if isSpace(ch) {
			flush()
			continue
		}
		if first < 0 {
			first = i
		}
		last = i
		word.WriteString(ch)
	}
	flush()

	return cues, nil
}

// Estimate spreads durationSeconds evenly over the characters of text. A
// non-positive duration falls back to EstimatedSecondsPerChar per character.
func Estimate(text string, durationSeconds float64) *CharacterAlignment {
	n := utf8.RuneCountInString(text)
	out := &CharacterAlignment{
		Characters:                 make([]string, 0, n),
		CharacterStartTimesSeconds: make([]float64, 0, n),
		CharacterEndTimesSeconds:   make([]float64, 0, n),
	}
	if n == 0 {
		return out
	}
	if durationSeconds <= 0 {
		durationSeconds = float64(n) * EstimatedSecondsPerChar
	}

	perChar := durationSeconds / float64(n)
	i := 0
	for _, r := range text {
		out.Characters = append(out.Characters, string(r))
		out.CharacterStartTimesSeconds = append(out.CharacterStartTimesSeconds, float64(i)*perChar)
		out.CharacterEndTimesSeconds = append(out.CharacterEndTimesSeconds, float64(i+1)*perChar)
		i++
	}
	return out
}

// Offset shifts cues by ms, returning a new slice.
func Offset(cues []timeline.SubtitleCue, ms float64) []timeline.SubtitleCue {
	out := make([]timeline.SubtitleCue, len(cues))
	for i, c := range cues {
		out[i] = timeline.SubtitleCue{StartMs: c.StartMs + ms, EndMs: c.EndMs + ms, Text: c.Text}
	}
	return out
}

// Phrases merges adjacent word cues while the joined text stays within
// maxChars. A single word longer than maxChars is kept whole; it is the
// overlay's job to shrink it.
func Phrases(cues []timeline.SubtitleCue, maxChars int) []timeline.SubtitleCue {
	if maxChars <= 0 || len(cues) == 0 {
		return append([]timeline.SubtitleCue(nil), cues...)
	}

	out := make([]timeline.SubtitleCue, 0, len(cues))
	current := cues[0]
	for _, c := range cues[1:] {
		if utf8.RuneCountInString(current.Text)+1+utf8.RuneCountInString(c.Text) <= maxChars {
			current.Text += " " + c.Text
			current.EndMs = c.EndMs
			continue
		}
		out = append(out, current)
		current = c
	}
	return append(out, current)
}

// JoinText joins cue texts with single spaces.
func JoinText(cues []timeline.SubtitleCue) string {
	parts := make([]string, len(cues))
	for i, c := range cues {
		parts[i] = c.Text
	}
	return strings.Join(parts, " ")
}
