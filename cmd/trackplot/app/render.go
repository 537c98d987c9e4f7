package app

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/vector"

	"github.com/roman-kulish/glide-recovery/internal/director"
	"github.com/roman-kulish/glide-recovery/internal/flight"
)

const (
	dpi          = 120.0
	fontSize     = 10.0
	lineWidth    = 2.0
	markerSize   = 6.0
	scaleBarSize = 150.0

	// Default border sizes in pixels
	defaultTopBorder    = 40
	defaultLeftBorder   = 40
	defaultBottomBorder = 60
	defaultRightBorder  = 40

	defaultDatetimeFormat = time.DateTime
)

// BorderConfig defines the sizes of white space around the plot
type BorderConfig struct {
	Top    int // Space for the legend
	Left   int
	Bottom int // Space for the scale and information bar
	Right  int
}

// RenderConfig holds all configuration options for track visualization
type RenderConfig struct {
	DatetimeFormat string         // Format string for date/time display
	Location       *time.Location // Timezone for time display
	Size           int            // Longest side of the plot area in pixels

	FontSize      float64
	NoAnnotations bool

	BorderConfig BorderConfig
}

// TrackRenderer draws a recorded ground track colored by guidance mode
type TrackRenderer struct {
	config RenderConfig
}

// NewTrackRenderer creates a new track renderer with the given configuration
func NewTrackRenderer(config RenderConfig) (*TrackRenderer, error) {
	if config.DatetimeFormat == "" {
		config.DatetimeFormat = defaultDatetimeFormat
	}
	if config.Location == nil {
		config.Location = time.Local
	}
	if config.Size == 0 {
		config.Size = 1200
	}
	if config.FontSize == 0 {
		config.FontSize = fontSize
	}
	if config.BorderConfig.Top == 0 {
		config.BorderConfig.Top = defaultTopBorder
	}
	if config.BorderConfig.Left == 0 {
		config.BorderConfig.Left = defaultLeftBorder
	}
	if config.BorderConfig.Bottom == 0 {
		config.BorderConfig.Bottom = defaultBottomBorder
	}
	if config.BorderConfig.Right == 0 {
		config.BorderConfig.Right = defaultRightBorder
	}
	if config.Size < 1 {
		return nil, fmt.Errorf("invalid plot size %d", config.Size)
	}

	return &TrackRenderer{config: config}, nil
}

// Render creates an image of the track with annotations
func (r *TrackRenderer) Render(track *TrackData) (*image.RGBA, error) {
	if track.Empty() {
		return nil, fmt.Errorf("no records to render")
	}

	proj := NewProjection(track, r.config.Size)
	borders := r.config.BorderConfig

	fullWidth := proj.Width + borders.Left + borders.Right
	fullHeight := proj.Height + borders.Top + borders.Bottom
	img := image.NewRGBA(image.Rect(0, 0, fullWidth, fullHeight))

	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	plotArea := image.Rect(borders.Left, borders.Top, borders.Left+proj.Width, borders.Top+proj.Height)
	drawFrame(img, plotArea)

	p := &plotter{img: img, proj: proj, origin: plotArea.Min}
	p.drawTrack(track)
	p.drawSites(track)

	if r.config.NoAnnotations {
		return img, nil
	}

	ann, err := newAnnotator(annotatorConfig{
		DatetimeFormat: r.config.DatetimeFormat,
		Location:       r.config.Location,
		FontSize:       r.config.FontSize,
		Borders:        borders,
	})
	if err != nil {
		return nil, fmt.Errorf("creating annotator: %w", err)
	}
	defer ann.Close()

	if err = ann.annotate(img, plotArea, proj, track); err != nil {
		return nil, fmt.Errorf("drawing annotations: %w", err)
	}

	return img, nil
}

func drawFrame(img *image.RGBA, area image.Rectangle) {
	for x := area.Min.X - 1; x <= area.Max.X; x++ {
		img.Set(x, area.Min.Y-1, gridColor)
		img.Set(x, area.Max.Y, gridColor)
	}
	for y := area.Min.Y - 1; y <= area.Max.Y; y++ {
		img.Set(area.Min.X-1, y, gridColor)
		img.Set(area.Max.X, y, gridColor)
	}
}

// plotter rasterizes track segments and markers into the plot area
type plotter struct {
	img    *image.RGBA
	proj   *Projection
	origin image.Point
}

func (p *plotter) point(r *flight.Record) (float32, float32) {
	x, y := p.proj.Point(r.Position)
	return float32(x) + float32(p.origin.X), float32(y) + float32(p.origin.Y)
}

// drawTrack draws every leg as a polyline of quads, one rasterizer pass per
// leg and altitude band. Consecutive legs are joined at the leg boundary.
func (p *plotter) drawTrack(track *TrackData) {
	const bands = 8

	w, h := p.img.Bounds().Dx(), p.img.Bounds().Dy()
	altRange := track.MaxAltitude - track.MinAltitude
	band := func(alt float64) int {
		if altRange <= 0 {
			return bands - 1
		}
		return min(int((alt-track.MinAltitude)/altRange*bands), bands-1)
	}

	var zs [bands]*vector.Rasterizer
	var used [bands]bool

	var prev *flight.Record
	for li := range track.Legs {
		leg := &track.Legs[li]

		for i := range leg.Records {
			r := &leg.Records[i]
			if prev == nil {
				prev = r
				continue
			}

			b := band(r.Altitude)
			if zs[b] == nil {
				zs[b] = vector.NewRasterizer(w, h)
			}
			used[b] = true

			x0, y0 := p.point(prev)
			x1, y1 := p.point(r)
			addSegment(zs[b], x0, y0, x1, y1, lineWidth/2)
			prev = r
		}

		for b, z := range zs {
			if !used[b] {
				continue
			}
			alt := (float64(b) + 0.5) / bands
			z.Draw(p.img, p.img.Bounds(), image.NewUniform(ModeColor(leg.Mode, alt)), image.Point{})
			z.Reset(w, h)
			used[b] = false
		}
	}

	// Single record tracks still get a dot.
	if track.Records == 1 {
		r := &track.Legs[0].Records[0]
		x, y := p.point(r)
		z := vector.NewRasterizer(w, h)
		addSquare(z, x, y, lineWidth*2)
		z.Draw(p.img, p.img.Bounds(), image.NewUniform(ModeColor(r.Mode, 1)), image.Point{})
	}
}

// drawSites draws a triangle on each recovery location.
func (p *plotter) drawSites(track *TrackData) {
	if len(track.Sites) == 0 {
		return
	}

	z := vector.NewRasterizer(p.img.Bounds().Dx(), p.img.Bounds().Dy())
	for _, site := range track.Sites {
		x, y := p.proj.Point(site.Position)
		cx, cy := float32(x)+float32(p.origin.X), float32(y)+float32(p.origin.Y)

		z.MoveTo(cx, cy-markerSize)
		z.LineTo(cx+markerSize, cy+markerSize*0.75)
		z.LineTo(cx-markerSize, cy+markerSize*0.75)
		z.ClosePath()
	}
	z.Draw(p.img, p.img.Bounds(), image.NewUniform(siteColor), image.Point{})
}

// addSegment adds a line segment of half width hw as a closed quad.
func addSegment(z *vector.Rasterizer, x0, y0, x1, y1, hw float32) {
	dx, dy := x1-x0, y1-y0
	l := float32(math.Hypot(float64(dx), float64(dy)))
	if l == 0 {
		addSquare(z, x0, y0, hw*2)
		return
	}

	// Extend by hw on both ends so joints overlap.
	ux, uy := dx/l*hw, dy/l*hw
	nx, ny := -uy, ux

	z.MoveTo(x0-ux+nx, y0-uy+ny)
	z.LineTo(x1+ux+nx, y1+uy+ny)
	z.LineTo(x1+ux-nx, y1+uy-ny)
	z.LineTo(x0-ux-nx, y0-uy-ny)
	z.ClosePath()
}

func addSquare(z *vector.Rasterizer, x, y, size float32) {
	h := size / 2
	z.MoveTo(x-h, y-h)
	z.LineTo(x+h, y-h)
	z.LineTo(x+h, y+h)
	z.LineTo(x-h, y+h)
	z.ClosePath()
}

type annotatorConfig struct {
	DatetimeFormat string
	Location       *time.Location
	FontSize       float64
	Borders        BorderConfig
}

type annotator struct {
	context  *freetype.Context
	config   annotatorConfig
	fontFace font.Face
}

func newAnnotator(config annotatorConfig) (*annotator, error) {
	parsedFont, err := freetype.ParseFont(gomono.TTF)
	if err != nil {
		return nil, fmt.Errorf("parsing font: %w", err)
	}

	ctx := freetype.NewContext()
	ctx.SetDPI(dpi)
	ctx.SetFont(parsedFont)
	ctx.SetFontSize(config.FontSize)
	ctx.SetHinting(font.HintingNone)
	ctx.SetSrc(image.Black)

	return &annotator{
		context: ctx,
		config:  config,
		fontFace: truetype.NewFace(parsedFont, &truetype.Options{
			Size:    config.FontSize,
			DPI:     dpi,
			Hinting: font.HintingNone,
		}),
	}, nil
}

func (a *annotator) Close() error {
	if a.fontFace != nil {
		return a.fontFace.Close()
	}
	return nil
}

func (a *annotator) annotate(img *image.RGBA, area image.Rectangle, proj *Projection, track *TrackData) error {
	a.context.SetClip(img.Bounds())
	a.context.SetDst(img)

	if err := a.drawLegend(img, track); err != nil {
		return fmt.Errorf("drawing legend: %w", err)
	}
	if err := a.drawSiteLabels(area, proj, track); err != nil {
		return fmt.Errorf("drawing site labels: %w", err)
	}
	if err := a.drawScale(img, area, proj); err != nil {
		return fmt.Errorf("drawing scale: %w", err)
	}
	if err := a.drawInfoBar(img, track); err != nil {
		return fmt.Errorf("drawing info bar: %w", err)
	}

	return nil
}

func (a *annotator) fontHeight() int {
	metrics := a.fontFace.Metrics()
	return (metrics.Ascent + metrics.Descent).Round()
}

func (a *annotator) drawLegend(img *image.RGBA, track *TrackData) error {
	times := track.ModeTime()
	textY := a.config.Borders.Top/2 + a.fontHeight()/2 - a.fontFace.Metrics().Descent.Round()
	x := a.config.Borders.Left

	for _, mode := range []director.Mode{director.ModeSeek, director.ModeTrack, director.ModeCircle} {
		swatch := image.Rect(x, textY-a.fontHeight()/2-5, x+10, textY-a.fontHeight()/2+5)
		draw.Draw(img, swatch, image.NewUniform(ModeColor(mode, 1)), image.Point{}, draw.Src)
		x += 14

		label := fmt.Sprintf("%s %s", mode, formatDuration(times[mode]))
		if _, err := a.context.DrawString(label, freetype.Pt(x, textY)); err != nil {
			return fmt.Errorf("drawing legend label: %w", err)
		}
		x += font.MeasureString(a.fontFace, label).Round() + 24
	}

	if len(track.Sites) > 0 {
		draw.Draw(img, image.Rect(x, textY-a.fontHeight()/2-5, x+10, textY-a.fontHeight()/2+5),
			image.NewUniform(siteColor), image.Point{}, draw.Src)
		if _, err := a.context.DrawString("recovery", freetype.Pt(x+14, textY)); err != nil {
			return fmt.Errorf("drawing legend label: %w", err)
		}
	}

	return nil
}

func (a *annotator) drawSiteLabels(area image.Rectangle, proj *Projection, track *TrackData) error {
	for _, site := range track.Sites {
		x, y := proj.Point(site.Position)
		pt := freetype.Pt(area.Min.X+int(x)+int(markerSize)+2, area.Min.Y+int(y)+a.fontHeight()/3)
		if _, err := a.context.DrawString(site.Ident, pt); err != nil {
			return fmt.Errorf("drawing label %s: %w", site.Ident, err)
		}
	}
	return nil
}

func (a *annotator) drawScale(img *image.RGBA, area image.Rectangle, proj *Projection) error {
	nmPerPixel := proj.NMPerPixel()
	step := calculateNiceDistanceStep(scaleBarSize * nmPerPixel)
	length := int(math.Round(step / nmPerPixel))

	y := area.Max.Y + 12
	x0 := area.Min.X
	for x := x0; x <= x0+length; x++ {
		img.Set(x, y, color.Black)
		img.Set(x, y+1, color.Black)
	}
	for i := 0; i < 6; i++ {
		img.Set(x0, y-i, color.Black)
		img.Set(x0+length, y-i, color.Black)
	}

	label := formatDistance(step)
	pt := freetype.Pt(x0+length+6, y+a.fontHeight()/3)
	if _, err := a.context.DrawString(label, pt); err != nil {
		return fmt.Errorf("drawing scale label: %w", err)
	}
	return nil
}

func (a *annotator) drawInfoBar(img *image.RGBA, track *TrackData) error {
	var sb strings.Builder

	if track.Session != nil {
		sb.WriteString(fmt.Sprintf("Session %d (%s); ", track.Session.ID, track.Session.Source))
	}
	sb.WriteString(fmt.Sprintf("Time: %s - %s",
		track.TimestampStart.In(a.config.Location).Format(a.config.DatetimeFormat),
		track.TimestampEnd.In(a.config.Location).Format(a.config.DatetimeFormat)))
	sb.WriteString(fmt.Sprintf("; %s legs, %s records", humanize.Comma(int64(len(track.Legs))), humanize.Comma(int64(track.Records))))
	sb.WriteString(fmt.Sprintf("; %s flown, %s ft lost", formatDistance(track.Distance), humanize.Comma(int64(math.Round(track.AltitudeLost())))))

	metrics := a.fontFace.Metrics()
	textY := img.Bounds().Max.Y - (a.config.Borders.Bottom/2-a.fontHeight())/2 - metrics.Descent.Round()

	pt := freetype.Pt(a.config.Borders.Left, textY)
	if _, err := a.context.DrawString(sb.String(), pt); err != nil {
		return fmt.Errorf("drawing info text: %w", err)
	}

	return nil
}

// Helper functions

func calculateNiceDistanceStep(target float64) float64 {
	steps := []float64{0.1, 0.2, 0.5, 1, 2, 5, 10, 20, 50, 100, 200, 500}

	for _, step := range steps {
		if step >= target {
			return step
		}
	}
	return steps[len(steps)-1]
}

func formatDistance(nm float64) string {
	if nm < 10 {
		return humanize.FtoaWithDigits(nm, 1) + " nm"
	}
	return humanize.Comma(int64(math.Round(nm))) + " nm"
}

func formatDuration(d time.Duration) string {
	return d.Round(time.Second).String()
}
