package media

import (
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSnapshot(t *testing.T) {
	s := New(strings.Repeat("a", 40), "Song", false, "")

	assert.Len(t, s.Artist, 30)
	assert.True(t, s.Idle)
	assert.Equal(t, "PAUSED", s.Status())
	assert.Equal(t, strings.Repeat("a", 30)+"|Song", s.TrackKey())

	playing := New("Artist", "Song", true, "x")
	assert.False(t, playing.Idle)
	assert.Equal(t, "PLAYING", playing.Status())

	empty := New("", "", false, "")
	assert.False(t, empty.Idle)
}

func TestProviders(t *testing.T) {
	s, err := NoopProvider{}.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Snapshot{}, s)

	p := &StaticProvider{}
	p.Set(New("A", "B", true, ""))
	s, err = p.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "A|B", s.TrackKey())
}

func TestProviderCarriesEncodedCover(t *testing.T) {
	art := image.NewGray(image.Rect(0, 0, 4, 4))
	for i := range art.Pix {
		art.Pix[i] = 0xff
	}
	cover := EncodeCover(art, CoverSize)
	require.NotEmpty(t, cover)

	p := &StaticProvider{}
	p.Set(New("Artist", "Song", true, cover))
	s, err := p.Current(context.Background())
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(s.Cover)
	require.NoError(t, err)
	assert.Len(t, raw, CoverSize*CoverSize/8)
}

func TestEncodeCoverSolidColors(t *testing.T) {
	white := image.NewGray(image.Rect(0, 0, 128, 128))
	for i := range white.Pix {
		white.Pix[i] = 255
	}
	black := image.NewGray(image.Rect(0, 0, 32, 32))

	wb, err := base64.StdEncoding.DecodeString(EncodeCover(white, CoverSize))
	require.NoError(t, err)
	require.Len(t, wb, CoverSize*CoverSize/8)
	for _, b := range wb {
		assert.Equal(t, byte(0xFF), b)
	}

	bb, err := base64.StdEncoding.DecodeString(EncodeCover(black, CoverSize))
	require.NoError(t, err)
	require.Len(t, bb, CoverSize*CoverSize/8)
	for _, b := range bb {
		assert.Equal(t, byte(0x00), b)
	}
}

func TestEncodeCoverBitOrder(t *testing.T) {
	// Left column white, rest black: bit 0 of every row's first byte is set.
	img := image.NewGray(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		img.SetGray(0, y, color.Gray{Y: 255})
	}

	raw, err := base64.StdEncoding.DecodeString(EncodeCover(img, 8))
	require.NoError(t, err)

	assert.Equal(t, []byte{1, 1, 1, 1, 1, 1, 1, 1}, raw)
}

func TestEncodeCoverRejectsBadInput(t *testing.T) {
	assert.Empty(t, EncodeCover(nil, CoverSize))
	assert.Empty(t, EncodeCover(image.NewGray(image.Rect(0, 0, 0, 0)), CoverSize))
	assert.Empty(t, EncodeCover(image.NewGray(image.Rect(0, 0, 4, 4)), 10))
}
