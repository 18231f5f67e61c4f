package identicon

import (
	"bytes"
	"image/color"
	"strings"
	"testing"
)

const addrA = "0x6257F57569e1e65A651E89e86ACb9fB4069581Eb"
const addrB = "0x874069Fa1Eb16D44d622F2e0Ca25eeA172369bC1"

func TestBlockiesDeterministic(t *testing.T) {
	a1, err := PNG(addrA)
	if err != nil {
		t.Fatalf("PNG: %v", err)
	}
	a2, _ := PNG(addrA)
	b, _ := PNG(addrB)
	if !bytes.Equal(a1, a2) {
		t.Fatal("same seed produced different images")
	}
	if bytes.Equal(a1, b) {
		t.Fatal("different seeds produced identical images")
	}
}

func TestBlockiesDimensionsAndMirror(t *testing.T) {
	img := Blockies(addrA, DefaultSize, DefaultScale)
	b := img.Bounds()
	if b.Dx() != DefaultSize*DefaultScale || b.Dy() != DefaultSize*DefaultScale {
		t.Fatalf("bounds=%v", b)
	}
	for y := 0; y < DefaultSize; y++ {
		for x := 0; x < DefaultSize/2; x++ {
			left := img.At(x*DefaultScale, y*DefaultScale)
			right := img.At((DefaultSize-1-x)*DefaultScale, y*DefaultScale)
			if left != right {
				t.Fatalf("row %d col %d not mirrored: %v vs %v", y, x, left, right)
			}
		}
	}
}

func TestHSLPrimaries(t *testing.T) {
	cases := []struct {
		h, s, l float64
		want    color.RGBA
	}{
		{0, 100, 50, color.RGBA{255, 0, 0, 255}},
		{120, 100, 50, color.RGBA{0, 255, 0, 255}},
		{240, 100, 50, color.RGBA{0, 0, 255, 255}},
		{0, 0, 100, color.RGBA{255, 255, 255, 255}},
		{0, 50, 150, color.RGBA{255, 255, 255, 255}},
	}
	for _, c := range cases {
		if got := hsl(c.h, c.s, c.l); got != c.want {
			t.Errorf("hsl(%v,%v,%v)=%v want %v", c.h, c.s, c.l, got, c.want)
		}
	}
}

func TestDataURL(t *testing.T) {
	if got := DataURL(addrA); !strings.HasPrefix(got, "data:image/png;base64,") {
		t.Fatalf("DataURL=%q", got)
	}
}
