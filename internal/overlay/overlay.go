// Package overlay draws the hand annotations and dashboard widgets onto
// camera frames.
package overlay

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/ayusman/handvol/internal/detector"
)

// Palette shared with the web dashboard.
var (
	Accent    = color.RGBA{R: 102, G: 126, B: 234, A: 255}
	Pink      = color.RGBA{R: 240, G: 147, B: 251, A: 255}
	Green     = color.RGBA{R: 56, G: 239, B: 125, A: 255}
	Amber     = color.RGBA{R: 255, G: 199, B: 0, A: 255}
	White     = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	BarTrack  = color.RGBA{R: 50, G: 50, B: 50, A: 255}
	JointDot  = color.RGBA{R: 245, G: 87, B: 108, A: 255}
	boneColor = color.RGBA{R: 220, G: 220, B: 220, A: 255}
)

const (
	font       = gocv.FontHersheySimplex
	tipRadius  = 8
	jointSize  = 4
	panelAlpha = 0.7
)

var panelRect = image.Rect(10, 10, 260, 150)

// Metrics is the text shown in the panel.
type Metrics struct {
	Distance int
	Percent  float64
	FPS      float64
	Gesture  string
}

// Skeleton draws the MediaPipe hand connections and joints.
func Skeleton(img *gocv.Mat, hand *detector.HandLandmarks) {
	if hand == nil {
		return
	}
	w, h := img.Cols(), img.Rows()
	for _, c := range detector.Connections {
		gocv.Line(img, hand.Pixel(c[0], w, h), hand.Pixel(c[1], w, h), boneColor, 2)
	}
	for i := range hand.Points {
		gocv.Circle(img, hand.Pixel(i, w, h), jointSize, JointDot, -1)
	}
}

// Pinch draws the thumb-index line, both tips and the distance label.
func Pinch(img *gocv.Mat, hand *detector.HandLandmarks, dist int) {
	if hand == nil {
		return
	}
	w, h := img.Cols(), img.Rows()
	thumb := hand.Pixel(detector.ThumbTip, w, h)
	index := hand.Pixel(detector.IndexTip, w, h)

	gocv.Line(img, thumb, index, Accent, 3)
	gocv.Circle(img, thumb, tipRadius, Pink, -1)
	gocv.Circle(img, index, tipRadius, Green, -1)

	label := image.Pt(min(thumb.X, index.X)+10, min(thumb.Y, index.Y)-10)
	gocv.PutText(img, fmt.Sprintf("%dpx", dist), label, font, 0.7, White, 2)
}

// Panel blends a dark box into the top-left corner and prints the metrics.
func Panel(img *gocv.Mat, m Metrics) {
	darken(img, panelRect, panelAlpha)

	lines := []struct {
		text string
		c    color.RGBA
	}{
		{fmt.Sprintf("Distance: %dpx", m.Distance), Accent},
		{fmt.Sprintf("Volume: %d%%", int(m.Percent)), Pink},
		{fmt.Sprintf("FPS: %d", int(m.FPS)), Green},
		{fmt.Sprintf("Gesture: %s", m.Gesture), Amber},
	}
	for i, l := range lines {
		gocv.PutText(img, l.text, image.Pt(20, 35+25*i), font, 0.6, l.c, 2)
	}
}

// VolumeBar draws a vertical gauge on the right edge filled to pct.
func VolumeBar(img *gocv.Mat, pct float64) {
	w, h := img.Cols(), img.Rows()
	barW, barH := 30, h-80
	if barH <= 0 {
		return
	}
	x, y := w-45, 80
	pct = max(0, min(100, pct))
	fill := int(pct / 100 * float64(barH))

	gocv.Rectangle(img, image.Rect(x, y, x+barW, y+barH), BarTrack, -1)
	gocv.Rectangle(img, image.Rect(x, y+barH-fill, x+barW, y+barH), Accent, -1)
	gocv.PutText(img, fmt.Sprintf("%d%%", int(pct)), image.Pt(x-40, y+barH-fill+10), font, 0.5, White, 2)
}

// Placard dims the whole frame and centers text on it.
func Placard(img *gocv.Mat, text string) {
	darken(img, image.Rect(0, 0, img.Cols(), img.Rows()), 0.5)

	size := gocv.GetTextSize(text, font, 1.2, 2)
	org := image.Pt((img.Cols()-size.X)/2, (img.Rows()+size.Y)/2)
	gocv.PutText(img, text, org, font, 1.2, White, 2)
}

// darken blends black over r with the given opacity.
func darken(img *gocv.Mat, r image.Rectangle, alpha float64) {
	r = r.Intersect(image.Rect(0, 0, img.Cols(), img.Rows()))
	if r.Empty() {
		return
	}
	roi := img.Region(r)
	defer roi.Close()

	black := gocv.NewMatWithSize(roi.Rows(), roi.Cols(), roi.Type())
	defer black.Close()
	black.SetTo(gocv.NewScalar(0, 0, 0, 0))

	gocv.AddWeighted(black, alpha, roi, 1-alpha, 0, &roi)
}
