package frames

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMsToFrame(t *testing.T) {
	conv := New(30, 60)

	testCases := []struct {
		ms   float64
		want int
	}{
		{ms: 0, want: 60},
		{ms: 1000, want: 90},
		{ms: 16, want: 60},   // 0.48 frames
		{ms: 17, want: 61},   // 0.51 frames
		{ms: 50, want: 62},   // 1.5 rounds half away from zero
		{ms: 5000, want: 210},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.want, conv.MsToFrame(tc.ms), "ms=%v", tc.ms)
	}
}

func TestMsToFrameMinusIntroIsRoundedFrames(t *testing.T) {
	for _, fps := range []int{24, 25, 30, 60} {
		for _, intro := range []int{0, 15, 60} {
			conv := New(fps, intro)
			prev := math.MinInt
			for ms := 0.0; ms <= 10000; ms += 7 {
				got := conv.MsToFrame(ms)
				assert.Equal(t, int(math.Round(ms*float64(fps)/1000)), got-intro)
				assert.GreaterOrEqual(t, got, prev, "monotonic at ms=%v", ms)
				prev = got
			}
		}
	}
}

func TestMsToDurationIsShiftInvariant(t *testing.T) {
	conv := New(30, 60)
	for start := 0.0; start < 3000; start += 37 {
		for _, length := range []float64{1, 16, 17, 33, 500, 1234} {
			base := conv.MsToDuration(start, start+length)
			for _, k := range []float64{0, 11, 1000, 98765} {
				assert.Equal(t, base, conv.MsToDuration(start+k, start+length+k))
			}
		}
	}
}

func TestDisplayDurationClampsToOneFrame(t *testing.T) {
	conv := New(30, 60)

	assert.Equal(t, 0, conv.MsToDuration(100, 110))
	assert.Equal(t, 1, conv.DisplayDuration(100, 110))
	assert.Equal(t, 1, conv.DisplayDuration(100, 100))

	for start := 0.0; start < 2000; start += 13 {
		for _, length := range []float64{1, 5, 16, 40} {
			assert.GreaterOrEqual(t, conv.DisplayDuration(start, start+length), 1)
		}
	}
}

// Independent rounding is a known tolerance: adjacent cues can overlap by a frame.
func TestAdjacentCuesRoundIndependently(t *testing.T) {
	conv := New(30, 0)

	// [0,50) then [50,100): frames 0..2 and 2..3 (1.5 -> 2, 1.5 -> 2)
	firstStart, firstLen := conv.MsToFrame(0), conv.MsToDuration(0, 50)
	secondStart := conv.MsToFrame(50)

	assert.Equal(t, 2, firstLen)
	assert.Equal(t, 2, secondStart)
	assert.Equal(t, firstStart+firstLen, secondStart)

	// [50,100): 1.5 frames rounds up to 2 directly, but frame positions 2 and 3 differ by 1
	assert.Equal(t, 2, conv.MsToDuration(50, 100))
	assert.Equal(t, 1, conv.MsToFrame(100)-conv.MsToFrame(50))

	// [0,17) then [17,33): 0.51 rounds to a 1 frame cue, 0.48 rounds to nothing
	assert.Equal(t, 1, conv.MsToDuration(0, 17))
	assert.Equal(t, 1, conv.MsToFrame(17))
	assert.Equal(t, 0, conv.MsToDuration(17, 33))
}

func TestContentFrames(t *testing.T) {
	conv := New(30, 60)

	assert.Equal(t, 0, conv.ContentFrames(0))
	assert.Equal(t, 150, conv.ContentFrames(5000))
	assert.Equal(t, 1, conv.ContentFrames(1))
	assert.Equal(t, 31, conv.ContentFrames(1001))
}
