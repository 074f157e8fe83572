// Copyright © 2016 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

// Package diag renders offline diagnostics for a leaf index: per-leaf
// occupancy heat-maps and locale-formatted convergence reports. Nothing
// here runs on the per-frame path; it is a developer tool for tuning bloat
// grid size, dirty-loop behaviour, and group overflow thresholds.
package diag

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"

	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/galvanized/leafsys"
)

// Namer optionally labels a renderable handle in a heat-map, e.g. by
// looking up a class or effect name. Left nil, cells are labelled with
// their bare occupancy count.
type Namer func(leafsys.RenderHandle) string

// LeafCell is one leaf's position and occupancy counts, laid out by the
// caller on whatever 2D projection of the level it finds useful (e.g. grid
// cell index, or a portal-graph layout).
type LeafCell struct {
	X, Y        int // cell position in the heat-map grid.
	Renderables int
	Shadows     int
	Entries     []leafsys.RenderHandle // occupants, for Namer labelling.
}

// HeatmapOptions configures WriteHeatmap's rendering.
type HeatmapOptions struct {
	CellSize int    // pixels per cell; defaults to 24 if zero.
	Font     []byte // TrueType/OpenType bytes for occupancy-count labels; labels skipped if nil.
	FontSize int    // point size; defaults to 12 if zero.
	Namer    Namer  // optional per-entry name; falls back to the occupancy count.
}

// WriteHeatmap renders cells as a grid of colour-coded tiles (brighter red
// for more renderables, brighter blue for more shadows), labels each cell
// with its occupancy count when opt.Font is set, and writes the result as
// a PNG to w.
func WriteHeatmap(w io.Writer, cells []LeafCell, opt HeatmapOptions) error {
	if len(cells) == 0 {
		return fmt.Errorf("diag: WriteHeatmap: no cells")
	}
	cellSize := opt.CellSize
	if cellSize <= 0 {
		cellSize = 24
	}

	maxX, maxY := 0, 0
	maxOccupancy := 1
	for _, c := range cells {
		if c.X > maxX {
			maxX = c.X
		}
		if c.Y > maxY {
			maxY = c.Y
		}
		if n := c.Renderables + c.Shadows; n > maxOccupancy {
			maxOccupancy = n
		}
	}

	img := image.NewRGBA(image.Rect(0, 0, (maxX+1)*cellSize, (maxY+1)*cellSize))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)

	var face font.Face
	if opt.Font != nil {
		f, err := opentype.Parse(opt.Font)
		if err != nil {
			return fmt.Errorf("diag: WriteHeatmap: parse font: %w", err)
		}
		size := opt.FontSize
		if size <= 0 {
			size = 12
		}
		face, err = opentype.NewFace(f, &opentype.FaceOptions{Size: float64(size), DPI: 72, Hinting: font.HintingNone})
		if err != nil {
			return fmt.Errorf("diag: WriteHeatmap: new face: %w", err)
		}
	}

	for _, c := range cells {
		paintCell(img, c, cellSize, maxOccupancy)
		if face != nil {
			drawLabel(img, face, c, cellSize, opt.Namer)
		}
	}

	return png.Encode(w, img)
}

func paintCell(img *image.RGBA, c LeafCell, cellSize, maxOccupancy int) {
	rIntensity := uint8(math.Min(255, 255*float64(c.Renderables)/float64(maxOccupancy)))
	bIntensity := uint8(math.Min(255, 255*float64(c.Shadows)/float64(maxOccupancy)))
	fill := color.RGBA{R: rIntensity, G: 32, B: bIntensity, A: 255}
	rect := image.Rect(c.X*cellSize, c.Y*cellSize, (c.X+1)*cellSize-1, (c.Y+1)*cellSize-1)
	draw.Draw(img, rect, image.NewUniform(fill), image.Point{}, draw.Src)
}

// drawLabel writes the cell's occupancy count on its first line. If namer
// is set and c carries entries, it writes up to three namer-resolved names
// below that, truncating the rest with a "+N more" marker so a crowded
// cell doesn't spill into its neighbours.
func drawLabel(img *image.RGBA, face font.Face, c LeafCell, cellSize int, namer Namer) {
	lineHeight := fixed.I(cellSize / 4)
	dot := fixed.Point26_6{
		X: fixed.I(c.X*cellSize + 2),
		Y: fixed.I(c.Y*cellSize + cellSize/4),
	}
	d := &font.Drawer{Dst: img, Src: image.NewUniform(color.White), Face: face, Dot: dot}
	d.DrawString(fmt.Sprintf("%d", c.Renderables+c.Shadows))

	if namer == nil {
		return
	}
	const maxNames = 3
	for i, h := range c.Entries {
		if i >= maxNames {
			d.Dot = fixed.Point26_6{X: dot.X, Y: dot.Y + fixed.Int26_6(i+1)*lineHeight}
			d.DrawString(fmt.Sprintf("+%d more", len(c.Entries)-maxNames))
			break
		}
		d.Dot = fixed.Point26_6{X: dot.X, Y: dot.Y + fixed.Int26_6(i+1)*lineHeight}
		d.DrawString(namer(h))
	}
}
