package media

import (
	"encoding/base64"
	"image"
	"image/color"
	"image/draw"
)

// CoverSize is the edge length of the bitmap the display expects.
const CoverSize = 64

// EncodeCover scales img to size×size, dithers it to black and white and
// packs it as an XBM-style bitmap: rows top to bottom, 8 pixels per byte,
// least significant bit first, set bit = white. The result is base64.
// Providers call it with CoverSize to fill Snapshot.Cover.
func EncodeCover(img image.Image, size int) string {
	if img == nil || size <= 0 || size%8 != 0 {
		return ""
	}
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return ""
	}

	gray := scaleGray(img, size)

	bw := image.NewPaletted(gray.Bounds(), color.Palette{color.Black, color.White})
	draw.FloydSteinberg.Draw(bw, bw.Bounds(), gray, image.Point{})

	bitmap := make([]byte, 0, size*size/8)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x += 8 {
			var packed byte
			for bit := 0; bit < 8; bit++ {
				if bw.ColorIndexAt(x+bit, y) == 1 {
					packed |= 1 << bit
				}
			}
			bitmap = append(bitmap, packed)
		}
	}
	return base64.StdEncoding.EncodeToString(bitmap)
}

// scaleGray box-averages img down (or nearest-samples up) to a size×size
// grayscale image.
func scaleGray(img image.Image, size int) *image.Gray {
	b := img.Bounds()
	dst := image.NewGray(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		y0 := b.Min.Y + y*b.Dy()/size
		y1 := b.Min.Y + (y+1)*b.Dy()/size
		if y1 <= y0 {
			y1 = y0 + 1
		}
		for x := 0; x < size; x++ {
			x0 := b.Min.X + x*b.Dx()/size
			x1 := b.Min.X + (x+1)*b.Dx()/size
			if x1 <= x0 {
				x1 = x0 + 1
			}
			var sum, n uint32
			for sy := y0; sy < y1; sy++ {
				for sx := x0; sx < x1; sx++ {
					g := color.GrayModel.Convert(img.At(sx, sy)).(color.Gray)
					sum += uint32(g.Y)
					n++
				}
			}
			dst.SetGray(x, y, color.Gray{Y: uint8(sum / n)})
		}
	}
	return dst
}
