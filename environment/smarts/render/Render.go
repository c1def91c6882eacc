// Package render draws top-down, ego-centred snapshots of driving
// observations
package render

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/fogleman/gg"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/samuelfneumann/smartslearn/environment/smarts"
	"github.com/samuelfneumann/smartslearn/environment/smarts/ttc"
)

// Vehicle footprint in meters
const (
	VehicleLength = 4.5
	VehicleWidth  = 1.8
)

var (
	Background      = color.RGBA{R: 40, G: 40, B: 40, A: 255}
	EgoColour       = color.RGBA{R: 60, G: 180, B: 75, A: 255}
	NeighbourColour = color.RGBA{R: 230, G: 25, B: 75, A: 255}
	WaypointColour  = color.RGBA{R: 200, G: 200, B: 200, A: 255}
	TextColour      = color.White
)

// Renderer draws observations with the ego vehicle at the centre of
// the image facing up
type Renderer struct {
	Width, Height int

	// Scale is the number of pixels per meter
	Scale float64

	// Radius is the lane radius of the features drawn with Features.
	// Zero draws no features.
	Radius int
}

// New returns a new Renderer
func New(width, height int, scale float64) (*Renderer, error) {
	if width < 1 || height < 1 {
		return nil, fmt.Errorf("new: invalid image size %vx%v", width, height)
	}
	if scale <= 0 {
		return nil, fmt.Errorf("new: scale must be positive\n\thave(%v)",
			scale)
	}
	return &Renderer{Width: width, Height: height, Scale: scale}, nil
}

// Snapshot draws obs
func (r *Renderer) Snapshot(obs smarts.Observation) (image.Image, error) {
	dc, err := r.draw(obs)
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	return dc.Image(), nil
}

// SavePNG draws obs and saves it to path
func (r *Renderer) SavePNG(path string, obs smarts.Observation) error {
	dc, err := r.draw(obs)
	if err != nil {
		return fmt.Errorf("savePNG: %w", err)
	}
	return dc.SavePNG(path)
}

func (r *Renderer) draw(obs smarts.Observation) (*gg.Context, error) {
	dc := gg.NewContext(r.Width, r.Height)
	dc.SetColor(Background)
	dc.Clear()

	ego := obs.Ego
	toPixel := func(p r2.Vec) (float64, float64) {
		return r.toPixel(ego.Position, ego.Heading, p)
	}

	// Waypoint paths
	dc.SetColor(WaypointColour)
	for _, path := range obs.WaypointPaths {
		dc.ClearPath()
		for i, wp := range path {
			x, y := toPixel(wp.Pos)
			if i == 0 {
				dc.MoveTo(x, y)
			} else {
				dc.LineTo(x, y)
			}
		}
		dc.SetLineWidth(1.0)
		dc.Stroke()
		for _, wp := range path {
			x, y := toPixel(wp.Pos)
			dc.DrawCircle(x, y, 1.5)
			dc.Fill()
		}
	}

	// Neighbours
	dc.SetColor(NeighbourColour)
	for _, v := range obs.Neighbors {
		x, y := toPixel(v.Position)
		r.drawVehicle(dc, x, y, v.Heading-ego.Heading)
	}

	// Ego
	dc.SetColor(EgoColour)
	r.drawVehicle(dc, float64(r.Width)/2, float64(r.Height)/2, 0)

	if r.Radius > 0 && len(obs.WaypointPaths) > 0 {
		features, err := ttc.Encode(ego, obs.WaypointPaths, obs.Neighbors,
			r.Radius)
		if err != nil {
			return nil, err
		}
		dc.SetColor(TextColour)
		for i := range features.TTC {
			label := fmt.Sprintf("%+d ttc=%.2f d=%.2f", i-r.Radius,
				features.TTC[i], features.LaneDist[i])
			dc.DrawString(label, 5, 15+float64(i)*15)
		}
	}

	return dc, nil
}

// drawVehicle fills a vehicle footprint centred at pixel (x, y) rotated
// by heading radians relative to the ego
func (r *Renderer) drawVehicle(dc *gg.Context, x, y, heading float64) {
	dc.Push()
	dc.RotateAbout(-heading, x, y)
	w, l := VehicleWidth*r.Scale, VehicleLength*r.Scale
	dc.DrawRectangle(x-w/2, y-l/2, w, l)
	dc.Fill()
	dc.Pop()
}

// toPixel converts world position p into pixel coordinates of an image
// centred on the ego at position origin facing heading
func (r *Renderer) toPixel(origin r2.Vec, heading float64, p r2.Vec) (float64,
	float64) {
	dx, dy := p.X-origin.X, p.Y-origin.Y
	forward := smarts.Direction(heading)
	right := r2.Vec{X: math.Cos(heading), Y: math.Sin(heading)}

	lateral := dx*right.X + dy*right.Y
	longitudinal := dx*forward.X + dy*forward.Y

	x := float64(r.Width)/2 + lateral*r.Scale
	y := float64(r.Height)/2 - longitudinal*r.Scale
	return x, y
}
