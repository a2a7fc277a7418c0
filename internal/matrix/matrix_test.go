package matrix

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/d2sight/pkg/formats"
	"github.com/Faultbox/d2sight/pkg/geom"
	"github.com/Faultbox/d2sight/pkg/palette"
)

func seq(dims geom.PointU16) *Matrix {
	m := Empty(dims)
	for i := range m.Data {
		m.Data[i] = byte(i + 1)
	}
	return m
}

func TestNewDimensionMismatch(t *testing.T) {
	_, err := New(geom.Pt(2, 3), make([]byte, 5))
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	m, err := New(geom.Pt(2, 3), make([]byte, 6))
	require.NoError(t, err)
	assert.Equal(t, 6, m.Len())
}

func TestNonZeroWidth(t *testing.T) {
	m := Empty(geom.Pt(8, 8))
	m.Set(geom.Pt(2, 3), 1)
	m.Set(geom.Pt(6, 4), 1)
	m.Set(geom.Pt(4, 5), 1)
	assert.Equal(t, uint16(6), m.NonZeroWidth())

	assert.Equal(t, uint16(0), Empty(geom.Pt(3, 3)).NonZeroWidth())
}

func TestSubAndInsert(t *testing.T) {
	m := seq(geom.Pt(4, 5))

	sub, err := m.Sub(geom.Box{Offset: geom.Pt(1, 2), Dims: geom.Pt(2, 3)})
	require.NoError(t, err)
	assert.Equal(t, []byte{8, 9, 10, 13, 14, 15}, sub.Data)

	_, err = m.Sub(geom.Box{Offset: geom.Pt(3, 3), Dims: geom.Pt(2, 2)})
	assert.ErrorIs(t, err, ErrOutOfBounds)

	dst := Empty(geom.Pt(3, 4))
	require.NoError(t, dst.Insert(geom.Pt(1, 1), sub))
	assert.Equal(t, []byte{
		0, 0, 0, 0,
		0, 8, 9, 10,
		0, 13, 14, 15,
	}, dst.Data)

	assert.ErrorIs(t, dst.Insert(geom.Pt(2, 2), sub), ErrOutOfBounds)
}

func TestClearArea(t *testing.T) {
	m := seq(geom.Pt(3, 3))
	m.ClearAreas([]geom.Box{
		{Offset: geom.Pt(0, 0), Dims: geom.Pt(1, 2)},
		{Offset: geom.Pt(2, 2), Dims: geom.Pt(5, 5)},
	})
	assert.Equal(t, []byte{0, 0, 3, 4, 5, 6, 7, 8, 0}, m.Data)
}

func TestWindowOffsets(t *testing.T) {
	m := Empty(geom.Pt(5, 6))
	offsets := m.WindowOffsets(geom.Pt(WindowSize, WindowSize))
	require.Len(t, offsets, 2*3)
	assert.Equal(t, geom.Pt(0, 0), offsets[0])
	assert.Equal(t, geom.Pt(1, 2), offsets[len(offsets)-1])

	assert.Empty(t, Empty(geom.Pt(3, 8)).WindowOffsets(geom.Pt(4, 4)))
	assert.Len(t, m.WindowPoints(geom.Pt(4, 4)), 16)
}

func TestWindow(t *testing.T) {
	m := seq(geom.Pt(5, 5))
	w := m.Window(geom.Pt(1, 1))
	assert.Equal(t, Window{
		7, 8, 9, 10,
		12, 13, 14, 15,
		17, 18, 19, 20,
		22, 23, 24, 25,
	}, w)
}

func TestNonZeroPointValues(t *testing.T) {
	m := Empty(geom.Pt(2, 2))
	m.Set(geom.Pt(1, 0), 9)
	m.Set(geom.Pt(0, 1), 4)

	assert.Equal(t, []PointValue{
		{Point: geom.Pt(0, 1), Value: 4},
		{Point: geom.Pt(1, 0), Value: 9},
	}, m.NonZeroPointValues())
	assert.Equal(t, []geom.PointU16{geom.Pt(0, 1), geom.Pt(1, 0)}, m.NonZeroPoints())
}

func TestTransformAndDiff(t *testing.T) {
	m := seq(geom.Pt(2, 2))
	p := palette.Neutral()
	p[1] = 50

	out := m.Transform(&p)
	assert.Equal(t, []byte{50, 2, 3, 4}, out.Data)
	assert.Equal(t, []byte{1, 2, 3, 4}, m.Data, "source must be untouched")

	ratio, err := m.DiffRatio(out)
	require.NoError(t, err)
	assert.InDelta(t, 0.25, ratio, 1e-9)

	_, err = m.DiffRatio(Empty(geom.Pt(1, 1)))
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestRemoveLastRow(t *testing.T) {
	m := seq(geom.Pt(2, 2))
	m.RemoveLastRow()
	assert.Equal(t, geom.Pt(1, 2), m.Dims)
	assert.Equal(t, []byte{1, 2}, m.Data)

	e := Empty(geom.Pt(0, 3))
	e.RemoveLastRow()
	assert.Equal(t, geom.Pt(0, 3), e.Dims)
}

func TestFromDC6Frame(t *testing.T) {
	f := &formats.DC6Frame{
		DC6FrameHeader: formats.DC6FrameHeader{Width: 2, Height: 2},
		Payload:        []byte{0x01, 0x05, 0x80, 0x81, 0x01, 0x07, 0x80},
	}
	m, err := FromDC6Frame(f)
	require.NoError(t, err)
	assert.Equal(t, geom.Pt(2, 2), m.Dims)
	assert.Equal(t, []byte{0, 7, 5, 0}, m.Data)
}

func TestImageRoundTrip(t *testing.T) {
	var pp palette.PixelPalette
	for i := range pp {
		pp[i] = palette.Pixel{R: byte(i) & 0xFC, G: byte(i&3) << 6, B: 0x10}
	}
	pp[palette.TransparentIndex] = palette.Transparent

	m := seq(geom.Pt(3, 4))
	m.Set(geom.Pt(2, 3), palette.TransparentIndex)

	img := m.ToImage(&pp)
	back := img.ToMatrix(palette.NewContractor(&pp))
	assert.True(t, m.Equal(back))

	crop, err := img.Crop(geom.Box{Offset: geom.Pt(1, 1), Dims: geom.Pt(2, 2)})
	require.NoError(t, err)
	assert.Equal(t, img.At(geom.Pt(1, 1)), crop.At(geom.Pt(0, 0)))
	assert.Equal(t, img.At(geom.Pt(2, 2)), crop.At(geom.Pt(1, 1)))

	_, err = img.Crop(geom.Box{Offset: geom.Pt(2, 2), Dims: geom.Pt(2, 2)})
	assert.ErrorIs(t, err, ErrOutOfBounds)
}

func TestFromImage(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 3, 2))
	src.Set(2, 1, color.RGBA{R: 10, G: 20, B: 30, A: 255})

	img := FromImage(src)
	assert.Equal(t, geom.Pt(2, 3), img.Dims)
	assert.Equal(t, palette.Pixel{R: 10, G: 20, B: 30}, img.At(geom.Pt(1, 2)))

	gray := image.NewGray(image.Rect(0, 0, 1, 1))
	gray.Set(0, 0, color.Gray{Y: 77})
	assert.Equal(t, palette.Pixel{R: 77, G: 77, B: 77}, FromImage(gray).At(geom.Pt(0, 0)))

	rgba := img.RGBA()
	assert.Equal(t, color.RGBA{R: 10, G: 20, B: 30, A: 255}, rgba.At(2, 1))
}
