package gpuvision

import (
	"fmt"
	"image"
	"math"
	"sort"

	"github.com/sirupsen/logrus"
)

// TargetAspectRatio is the width over height of the goal tape outline
// (20 by 12 inches).
const TargetAspectRatio = 20.0 / 12.0

// Defaults for TargetParams.
const (
	DefaultMinBlobArea            = 2000
	DefaultMinAspectScore         = 10
	DefaultMinRectangularityScore = 10
)

// TargetParams are the thresholds a blob must pass to count as a target.
type TargetParams struct {
	// MinBlobArea is the hull area, in square pixels, a blob must exceed.
	MinBlobArea float64
	// MinAspectScore and MinRectangularityScore are on the 0..100 scale.
	MinAspectScore         float64
	MinRectangularityScore float64
}

// DefaultTargetParams returns the stock thresholds.
func DefaultTargetParams() TargetParams {
	return TargetParams{
		MinBlobArea:            DefaultMinBlobArea,
		MinAspectScore:         DefaultMinAspectScore,
		MinRectangularityScore: DefaultMinRectangularityScore,
	}
}

// Target is a blob of selected mask pixels that passed every check.
type Target struct {
	// Hull is the convex hull through pixel centers, starting from the
	// leftmost then topmost point.
	Hull []image.Point
	// Bounds covers every pixel of the hull; Max is exclusive.
	Bounds image.Rectangle
	Center image.Point
	Area   float64

	AspectScore         float64
	RectangularityScore float64
	Score               float64
}

func (t Target) String() string {
	return fmt.Sprintf("score %.1f at (%d,%d) size %dx%d",
		t.Score, t.Center.X, t.Center.Y, t.Bounds.Dx(), t.Bounds.Dy())
}

// RatioToScore maps a ratio to 0..100, peaking at 100 when r is 1.
func RatioToScore(r float64) float64 {
	return math.Max(0, math.Min(100*(1-math.Abs(1-r)), 100))
}

// FindTargets extracts the outer blobs of a single-channel mask and returns
// those that pass params, best score first.
func FindTargets(mask *Image, params TargetParams) ([]Target, error) {
	if err := mask.check("mask"); err != nil {
		return nil, err
	}
	if mask.Channels != 1 {
		return nil, fmt.Errorf("mask has %d channels, want 1: %w", mask.Channels, ErrInvalidChannelCount)
	}

	hulls, err := maskHulls(mask)
	if err != nil {
		return nil, err
	}

	var targets []Target
	for _, hull := range hulls {
		t, failed := scoreHull(hull, params)
		if failed != "" {
			Logger().WithFields(logrus.Fields{
				"area":   t.Area,
				"bounds": t.Bounds.String(),
				"failed": failed,
			}).Debug("blob rejected")
			continue
		}
		targets = append(targets, t)
	}
	sort.SliceStable(targets, func(i, j int) bool { return targets[i].Score > targets[j].Score })
	return targets, nil
}

// scoreHull measures a hull and names the first check it fails, if any.
func scoreHull(hull []image.Point, params TargetParams) (Target, string) {
	t := Target{Hull: hull, Area: polygonArea(hull)}
	if len(hull) == 0 {
		return t, "area"
	}
	minPt, maxPt := hull[0], hull[0]
	for _, p := range hull[1:] {
		minPt.X, minPt.Y = min(minPt.X, p.X), min(minPt.Y, p.Y)
		maxPt.X, maxPt.Y = max(maxPt.X, p.X), max(maxPt.Y, p.Y)
	}
	t.Bounds = image.Rectangle{Min: minPt, Max: maxPt.Add(image.Pt(1, 1))}
	t.Center = image.Pt((minPt.X+maxPt.X)/2, (minPt.Y+maxPt.Y)/2)

	if !(t.Area > params.MinBlobArea) {
		return t, "area"
	}

	width, height := float64(maxPt.X-minPt.X), float64(maxPt.Y-minPt.Y)
	t.AspectScore = RatioToScore(width / height / TargetAspectRatio)
	if t.AspectScore < params.MinAspectScore {
		return t, "aspect ratio"
	}
	t.RectangularityScore = RatioToScore(t.Area / (width * height))
	if t.RectangularityScore < params.MinRectangularityScore {
		return t, "rectangularity"
	}
	t.Score = (t.AspectScore + t.RectangularityScore) / 2
	return t, ""
}

// polygonArea is the shoelace area of a closed polygon.
func polygonArea(pts []image.Point) float64 {
	var twice int
	for i, p := range pts {
		q := pts[(i+1)%len(pts)]
		twice += p.X*q.Y - q.X*p.Y
	}
	return math.Abs(float64(twice)) / 2
}

func cross(o, a, b image.Point) int {
	return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
}

// convexHull returns the hull of pts by monotone chain, dropping collinear
// points. pts is reordered.
func convexHull(pts []image.Point) []image.Point {
	sort.Slice(pts, func(i, j int) bool {
		if pts[i].X != pts[j].X {
			return pts[i].X < pts[j].X
		}
		return pts[i].Y < pts[j].Y
	})
	uniq := pts[:0]
	for i, p := range pts {
		if i == 0 || p != pts[i-1] {
			uniq = append(uniq, p)
		}
	}
	if len(uniq) < 3 {
		return append([]image.Point(nil), uniq...)
	}

	hull := make([]image.Point, 0, 2*len(uniq))
	for _, p := range uniq {
		for len(hull) >= 2 && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	lower := len(hull) + 1
	for i := len(uniq) - 2; i >= 0; i-- {
		p := uniq[i]
		for len(hull) >= lower && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	return hull[:len(hull)-1]
}

// portableHulls labels the 8-connected blobs of mask and returns the convex
// hull of each, in raster order of their first pixel. Only the leftmost and
// rightmost pixel of each row reach the hull. Blobs nested inside another
// blob's hole are reported too.
func portableHulls(mask *Image) [][]image.Point {
	w, h := mask.Width, mask.Height
	seen := make([]bool, w*h)
	var hulls [][]image.Point
	var stack []image.Point

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if seen[y*w+x] || mask.At(x, y, 0) == 0 {
				continue
			}
			rows := map[int][2]int{}
			seen[y*w+x] = true
			stack = append(stack[:0], image.Pt(x, y))
			for len(stack) > 0 {
				p := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				if span, ok := rows[p.Y]; ok {
					rows[p.Y] = [2]int{min(span[0], p.X), max(span[1], p.X)}
				} else {
					rows[p.Y] = [2]int{p.X, p.X}
				}
				for dy := -1; dy <= 1; dy++ {
					for dx := -1; dx <= 1; dx++ {
						nx, ny := p.X+dx, p.Y+dy
						if nx < 0 || ny < 0 || nx >= w || ny >= h || seen[ny*w+nx] || mask.At(nx, ny, 0) == 0 {
							continue
						}
						seen[ny*w+nx] = true
						stack = append(stack, image.Pt(nx, ny))
					}
				}
			}

			pts := make([]image.Point, 0, 2*len(rows))
			for row, span := range rows {
				pts = append(pts, image.Pt(span[0], row), image.Pt(span[1], row))
			}
			hulls = append(hulls, convexHull(pts))
		}
	}
	return hulls
}
