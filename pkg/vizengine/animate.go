package vizengine

import (
	"time"

	"github.com/taxoscope/taxoscope/pkg/taxotree"
)

// DefaultAnimDuration is how long a gene-toggle transition takes.
const DefaultAnimDuration = 500 * time.Millisecond

// GeneAnim blends segment geometry across a change of the enabled gene-type
// set. Both the per-node segment values and the scaling maximum are
// interpolated so bars and wedges never pop to their new shape.
type GeneAnim struct {
	From, To       taxotree.GeneMask
	FromMax, ToMax float64
	Start          time.Time
	Duration       time.Duration
}

// NewGeneAnim captures the transition from the previous enabled set and
// scaling maximum to the new ones.
func NewGeneAnim(from, to taxotree.GeneMask, fromMax, toMax float64, now time.Time, d time.Duration) *GeneAnim {
	if d <= 0 {
		d = DefaultAnimDuration
	}
	return &GeneAnim{From: from, To: to, FromMax: fromMax, ToMax: toMax, Start: now, Duration: d}
}

// EaseInOutCubic is the timing curve: slow in, slow out.
func EaseInOutCubic(t float64) float64 {
	if t < 0 {
		return 0
	}
	if t > 1 {
		return 1
	}
	if t < 0.5 {
		return 4 * t * t * t
	}
	u := 2*t - 2
	return 1 + u*u*u/2
}

// Progress returns the eased interpolation parameter at now, clamped to
// [0, 1].
func (a *GeneAnim) Progress(now time.Time) float64 {
	raw := now.Sub(a.Start).Seconds() / a.Duration.Seconds()
	return EaseInOutCubic(raw)
}

// Done reports whether the transition finished; the caller then commits the
// target state and drops the animation.
func (a *GeneAnim) Done(now time.Time) bool {
	return now.Sub(a.Start) >= a.Duration
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// SegValues returns the node's blended segment values at eased parameter t,
// in fixed stacking order. Each value is a convex combination of its
// previous and next state, so it stays between them for all t.
func (a *GeneAnim) SegValues(n *taxotree.FlatNode, t float64) [3]float64 {
	from := geneSegments(n, a.From)
	to := geneSegments(n, a.To)
	return [3]float64{
		lerp(from[0], to[0], t),
		lerp(from[1], to[1], t),
		lerp(from[2], to[2], t),
	}
}

// Max returns the blended scaling denominator at eased parameter t.
func (a *GeneAnim) Max(t float64) float64 {
	return lerp(a.FromMax, a.ToMax, t)
}
