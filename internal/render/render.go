// Package render draws a member name onto a welcome background.
package render

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"os"

	"github.com/rs/zerolog"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
	_ "golang.org/x/image/webp"
)

// Layout of the name on the card.
const (
	CenterX      = 1395
	CenterY      = 806
	MaxTextWidth = 900
	StartSize    = 120
	MinSize      = 50
	SizeStep     = 5
	StrokeWidth  = 8

	// MaxPixels bounds the decoded background size.
	MaxPixels = 25_000_000
)

// ErrTooLarge is returned for backgrounds over MaxPixels.
var ErrTooLarge = errors.New("background image too large")

var (
	ColorTop    = color.RGBA{0x00, 0xA2, 0xE8, 0xff}
	ColorBottom = color.RGBA{0xFF, 0xD7, 0x00, 0xff}
	ColorStroke = color.RGBA{0xff, 0xff, 0xff, 0xff}
)

// Renderer composites names onto backgrounds. It is safe for concurrent use.
type Renderer struct {
	font *opentype.Font
}

// New loads the TrueType font at fontPath. When the font cannot be read the
// renderer falls back to a scaled built-in bitmap face.
func New(fontPath string, logger zerolog.Logger) *Renderer {
	r := &Renderer{}
	if fontPath == "" {
		return r
	}
	data, err := os.ReadFile(fontPath)
	if err != nil {
		logger.Warn().Err(err).Str("font", fontPath).Msg("font unavailable, using built-in face")
		return r
	}
	f, err := opentype.Parse(data)
	if err != nil {
		logger.Warn().Err(err).Str("font", fontPath).Msg("font unreadable, using built-in face")
		return r
	}
	r.font = f
	return r
}

// Render decodes background, draws name at the card centre and returns PNG bytes.
func (r *Renderer) Render(background []byte, name string) ([]byte, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(background))
	if err != nil {
		return nil, fmt.Errorf("decode background: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width*cfg.Height > MaxPixels {
		return nil, fmt.Errorf("%w: %dx%d", ErrTooLarge, cfg.Width, cfg.Height)
	}

	src, _, err := image.Decode(bytes.NewReader(background))
	if err != nil {
		return nil, fmt.Errorf("decode background: %w", err)
	}
	canvas := image.NewRGBA(src.Bounds())
	draw.Draw(canvas, canvas.Bounds(), src, src.Bounds().Min, draw.Src)

	mask, err := r.textMask(name)
	if err != nil {
		return nil, err
	}

	center := image.Pt(CenterX, CenterY).Add(canvas.Bounds().Min)
	if !center.In(canvas.Bounds()) {
		b := canvas.Bounds()
		center = image.Pt((b.Min.X+b.Max.X)/2, (b.Min.Y+b.Max.Y)/2)
	}
	mb := mask.Bounds()
	origin := center.Sub(image.Pt(mb.Dx()/2, mb.Dy()/2))
	placed := mb.Add(origin.Sub(mb.Min))

	stroke := image.NewUniform(ColorStroke)
	for dy := -StrokeWidth; dy <= StrokeWidth; dy++ {
		for dx := -StrokeWidth; dx <= StrokeWidth; dx++ {
			if dx*dx+dy*dy > StrokeWidth*StrokeWidth {
				continue
			}
			draw.DrawMask(canvas, placed.Add(image.Pt(dx, dy)), stroke, image.Point{}, mask, mb.Min, draw.Over)
		}
	}

	top := image.Rect(placed.Min.X, placed.Min.Y, placed.Max.X, center.Y)
	bottom := image.Rect(placed.Min.X, center.Y, placed.Max.X, placed.Max.Y)
	draw.DrawMask(canvas, top, image.NewUniform(ColorTop), image.Point{}, mask, mb.Min, draw.Over)
	draw.DrawMask(canvas, bottom, image.NewUniform(ColorBottom), image.Point{}, mask, image.Pt(mb.Min.X, mb.Min.Y+top.Dy()), draw.Over)

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return nil, fmt.Errorf("encode card: %w", err)
	}
	return buf.Bytes(), nil
}

// textMask renders name as an alpha mask at the largest size that fits
// MaxTextWidth, padded for the stroke.
func (r *Renderer) textMask(name string) (*image.Alpha, error) {
	if r.font == nil {
		return fallbackMask(name), nil
	}
	var face font.Face
	for size := StartSize; ; size -= SizeStep {
		f, err := opentype.NewFace(r.font, &opentype.FaceOptions{Size: float64(size), DPI: 72, Hinting: font.HintingFull})
		if err != nil {
			return nil, fmt.Errorf("font face: %w", err)
		}
		if font.MeasureString(f, name).Ceil() <= MaxTextWidth || size-SizeStep < MinSize {
			face = f
			break
		}
		f.Close()
	}
	defer face.Close()
	return drawMask(face, name), nil
}

func drawMask(face font.Face, name string) *image.Alpha {
	m := face.Metrics()
	width := font.MeasureString(face, name).Ceil()
	height := (m.Ascent + m.Descent).Ceil()
	mask := image.NewAlpha(image.Rect(0, 0, width+2*StrokeWidth, height+2*StrokeWidth))
	d := &font.Drawer{
		Dst:  mask,
		Src:  image.Opaque,
		Face: face,
		Dot:  fixed.P(StrokeWidth, StrokeWidth+m.Ascent.Ceil()),
	}
	d.DrawString(name)
	return mask
}

// fallbackMask scales the 7x13 bitmap face up to roughly the start size.
func fallbackMask(name string) *image.Alpha {
	small := drawMask(basicfont.Face7x13, name)
	scale := StartSize / basicfont.Face7x13.Height
	w := (small.Bounds().Dx() - 2*StrokeWidth) * scale
	for w > MaxTextWidth && scale > 1 {
		scale--
		w = (small.Bounds().Dx() - 2*StrokeWidth) * scale
	}
	h := (small.Bounds().Dy() - 2*StrokeWidth) * scale
	mask := image.NewAlpha(image.Rect(0, 0, w+2*StrokeWidth, h+2*StrokeWidth))
	inner := image.Rect(StrokeWidth, StrokeWidth, StrokeWidth+w, StrokeWidth+h)
	srcInner := image.Rect(StrokeWidth, StrokeWidth, small.Bounds().Dx()-StrokeWidth, small.Bounds().Dy()-StrokeWidth)
	draw.NearestNeighbor.Scale(mask, inner, small, srcInner, draw.Src, nil)
	return mask
}
