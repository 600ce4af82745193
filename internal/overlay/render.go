package overlay

import (
	"cmp"
	"image"
	"image/color"
	"math"
	"slices"

	"golang.org/x/image/vector"

	"bone-pruner/internal/mathutil"
)

var (
	KeptColor    = color.NRGBA{255, 0, 0, 255}
	DeletedColor = color.NRGBA{0, 255, 0, 255}
)

// Options controls Render.
type Options struct {
	Size        int     // output width and height in pixels
	Supersample int     // render at Size*Supersample, then downsample
	LineWidth   float64 // in output pixels
	View        mathutil.Mat3
}

// DefaultOptions renders 512px previews with the fixed overlay view.
func DefaultOptions() Options {
	return Options{Size: 512, Supersample: 2, LineWidth: 2, View: mathutil.OverlayView}
}

type projected struct {
	a, b  [2]float64
	depth float64
	col   color.NRGBA
}

// Render rasterizes segs on a transparent square image. The skeleton is
// rotated by opts.View and scaled to fit with a margin. Nearer segments are
// drawn over farther ones.
func Render(segs []Segment, opts Options) *image.NRGBA {
	if opts.Size <= 0 {
		opts.Size = 512
	}
	if opts.Supersample <= 0 {
		opts.Supersample = 1
	}
	if opts.LineWidth <= 0 {
		opts.LineWidth = 2
	}
	if opts.View == (mathutil.Mat3{}) {
		opts.View = mathutil.OverlayView
	}
	size := opts.Size * opts.Supersample
	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	if len(segs) == 0 {
		return Downsample(img, opts.Size)
	}

	proj := make([]projected, len(segs))
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for i, s := range segs {
		a := opts.View.MulVec3(s.From)
		b := opts.View.MulVec3(s.To)
		p := projected{
			a:     [2]float64{a[0], -a[1]},
			b:     [2]float64{b[0], -b[1]},
			depth: (a[2] + b[2]) / 2,
			col:   KeptColor,
		}
		if s.Deleted {
			p.col = DeletedColor
		}
		for _, v := range [][2]float64{p.a, p.b} {
			minX, maxX = math.Min(minX, v[0]), math.Max(maxX, v[0])
			minY, maxY = math.Min(minY, v[1]), math.Max(maxY, v[1])
		}
		proj[i] = p
	}

	// fit with a 10% margin, keep aspect
	extent := math.Max(maxX-minX, maxY-minY)
	if extent < 1e-9 {
		extent = 1
	}
	scale := float64(size) * 0.8 / extent
	cx, cy := (minX+maxX)/2, (minY+maxY)/2
	half := float64(size) / 2
	toPx := func(v [2]float64) (float32, float32) {
		return float32((v[0]-cx)*scale + half), float32((v[1]-cy)*scale + half)
	}

	slices.SortStableFunc(proj, func(x, y projected) int {
		return cmp.Compare(x.depth, y.depth)
	})

	width := float32(opts.LineWidth * float64(opts.Supersample))
	r := vector.NewRasterizer(size, size)
	for _, p := range proj {
		ax, ay := toPx(p.a)
		bx, by := toPx(p.b)
		r.Reset(size, size)
		line(r, ax, ay, bx, by, width)
		joint(r, bx, by, width*1.5)
		r.Draw(img, img.Bounds(), image.NewUniform(p.col), image.Point{})
	}
	return Downsample(img, opts.Size)
}

// line adds a quad of the given width from (ax, ay) to (bx, by).
func line(r *vector.Rasterizer, ax, ay, bx, by, width float32) {
	dx, dy := bx-ax, by-ay
	l := float32(math.Hypot(float64(dx), float64(dy)))
	if l < 1e-3 {
		return
	}
	nx, ny := -dy/l*width/2, dx/l*width/2
	r.MoveTo(ax+nx, ay+ny)
	r.LineTo(bx+nx, by+ny)
	r.LineTo(bx-nx, by-ny)
	r.LineTo(ax-nx, ay-ny)
	r.ClosePath()
}

// joint adds a diamond centered on (x, y).
func joint(r *vector.Rasterizer, x, y, radius float32) {
	r.MoveTo(x, y-radius)
	r.LineTo(x+radius, y)
	r.LineTo(x, y+radius)
	r.LineTo(x-radius, y)
	r.ClosePath()
}
