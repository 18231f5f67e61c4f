// Package identicon renders blockies-style avatars for wallet addresses.
//
// The pixel pattern and palette come from a xorshift generator seeded by the
// address string, so the same address always yields the same image.
package identicon

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
)

const (
	DefaultSize  = 8
	DefaultScale = 16
)

type prng struct {
	seed [4]int32
}

func newPRNG(seed string) *prng {
	var acc [4]int64
	for i := 0; i < len(seed); i++ {
		v := acc[i%4]
		acc[i%4] = int64(int32(uint32(v))<<5) - v + int64(seed[i])
	}
	p := &prng{}
	for i, v := range acc {
		p.seed[i] = int32(uint32(v))
	}
	return p
}

func (p *prng) next() float64 {
	t := p.seed[0] ^ (p.seed[0] << 11)
	p.seed[0] = p.seed[1]
	p.seed[1] = p.seed[2]
	p.seed[2] = p.seed[3]
	p.seed[3] = p.seed[3] ^ (p.seed[3] >> 19) ^ t ^ (t >> 8)
	return float64(uint32(p.seed[3])) / float64(uint32(1)<<31)
}

func (p *prng) color() color.RGBA {
	h := math.Floor(p.next() * 360)
	s := p.next()*60 + 40
	l := (p.next() + p.next() + p.next() + p.next()) * 25
	return hsl(h, s, l)
}

// hsl converts CSS-style hsl(h, s%, l%) to RGB, clamping s and l like a browser.
func hsl(h, s, l float64) color.RGBA {
	s = math.Min(math.Max(s, 0), 100) / 100
	l = math.Min(math.Max(l, 0), 100) / 100
	h = math.Mod(h, 360) / 360

	if s == 0 {
		v := uint8(math.Round(l * 255))
		return color.RGBA{v, v, v, 0xff}
	}
	var q float64
	if l < 0.5 {
		q = l * (1 + s)
	} else {
		q = l + s - l*s
	}
	p := 2*l - q
	channel := func(t float64) uint8 {
		if t < 0 {
			t++
		}
		if t > 1 {
			t--
		}
		var v float64
		switch {
		case t < 1.0/6:
			v = p + (q-p)*6*t
		case t < 0.5:
			v = q
		case t < 2.0/3:
			v = p + (q-p)*(2.0/3-t)*6
		default:
			v = p
		}
		return uint8(math.Round(v * 255))
	}
	return color.RGBA{channel(h + 1.0/3), channel(h), channel(h - 1.0/3), 0xff}
}

// Blockies renders a size x size mirrored pattern, each cell scale pixels wide.
func Blockies(seed string, size, scale int) image.Image {
	if size <= 0 {
		size = DefaultSize
	}
	if scale <= 0 {
		scale = DefaultScale
	}
	r := newPRNG(seed)
	fg := r.color()
	bg := r.color()
	spot := r.color()

	img := image.NewRGBA(image.Rect(0, 0, size*scale, size*scale))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: bg}, image.Point{}, draw.Src)

	dataWidth := (size + 1) / 2
	mirrorWidth := size - dataWidth
	row := make([]int, size)
	for y := 0; y < size; y++ {
		for x := 0; x < dataWidth; x++ {
			row[x] = int(math.Floor(r.next() * 2.3))
		}
		for x := 0; x < mirrorWidth; x++ {
			row[dataWidth+x] = row[mirrorWidth-1-x]
		}
		for x, cell := range row {
			if cell == 0 {
				continue
			}
			c := fg
			if cell != 1 {
				c = spot
			}
			rect := image.Rect(x*scale, y*scale, (x+1)*scale, (y+1)*scale)
			draw.Draw(img, rect, &image.Uniform{C: c}, image.Point{}, draw.Src)
		}
	}
	return img
}

// PNG encodes the default-sized identicon for seed.
func PNG(seed string) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, Blockies(seed, DefaultSize, DefaultScale)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DataURL returns the identicon for seed as an inline PNG data URL.
// It returns an empty string if encoding fails.
func DataURL(seed string) string {
	b, err := PNG(seed)
	if err != nil {
		return ""
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(b)
}
