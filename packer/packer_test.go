package packer

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-atlas/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// assertBinInvariants checks the square power-of-two bin contract and that no
// two rects overlap once inflated by the padding charged to their right and
// bottom edges.
func assertBinInvariants(t *testing.T, bins []Bin, minSize, maxSize, padding int) {
	t.Helper()
	for _, bin := range bins {
		assert.Equal(t, bin.Width, bin.Height)
		assert.True(t, common.IsPow2(bin.Width))
		assert.GreaterOrEqual(t, bin.Width, minSize)
		assert.LessOrEqual(t, bin.Width, maxSize)

		for i, a := range bin.Rects {
			assert.GreaterOrEqual(t, a.X, 0)
			assert.GreaterOrEqual(t, a.Y, 0)
			assert.LessOrEqual(t, a.X+a.Width, bin.Width)
			assert.LessOrEqual(t, a.Y+a.Height, bin.Height)

			for j, b := range bin.Rects {
				if i == j {
					continue
				}
				separated := a.X+a.Width+padding <= b.X ||
					b.X+b.Width+padding <= a.X ||
					a.Y+a.Height+padding <= b.Y ||
					b.Y+b.Height+padding <= a.Y
				assert.True(t, separated, "rects %d and %d overlap or violate padding", i, j)
			}
		}
	}
}

func TestPackThreeTexturesSingleBin(t *testing.T) {
	// Native pow2 textures 1024/512/256 with padding 2 and one bin allowed
	// must land in a single bin no larger than 2048.
	p := NewPacker(WithMaxSize(2048), WithMaxBins(1), WithPadding(2))

	items := []PackItem{
		{ID: 0, Width: 1024, Height: 1024},
		{ID: 1, Width: 512, Height: 512},
		{ID: 2, Width: 256, Height: 256},
	}

	bins, err := p.Pack(items)
	require.NoError(t, err)
	require.Len(t, bins, 1)
	assert.LessOrEqual(t, bins[0].Width, 2048)
	assert.Len(t, bins[0].Rects, 3)
	assertBinInvariants(t, bins, 256, 2048, 2)
}

func TestPackGrowsUntilBinCountFits(t *testing.T) {
	p := NewPacker(WithMaxSize(1024), WithMaxBins(1), WithPadding(2))

	items := make([]PackItem, 10)
	for i := range items {
		items[i] = PackItem{ID: i, Width: 200, Height: 200}
	}

	bins, err := p.Pack(items)
	require.NoError(t, err)
	require.Len(t, bins, 1)
	assert.Equal(t, 1024, bins[0].Width)
	assert.Len(t, bins[0].Rects, 10)
	assertBinInvariants(t, bins, 256, 1024, 2)
}

func TestPackAllowsMultipleBins(t *testing.T) {
	p := NewPacker(WithMaxSize(256), WithMaxBins(4), WithPadding(0))

	items := make([]PackItem, 3)
	for i := range items {
		items[i] = PackItem{ID: i, Width: 256, Height: 256}
	}

	bins, err := p.Pack(items)
	require.NoError(t, err)
	assert.Len(t, bins, 3)
	assertBinInvariants(t, bins, 256, 256, 0)
}

func TestPackCapacityError(t *testing.T) {
	p := NewPacker(WithMaxSize(256), WithMaxBins(4))

	_, err := p.Pack([]PackItem{{ID: 0, Width: 300, Height: 300}})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCapacity)
	assert.Contains(t, err.Error(), "maxSize=256")
}

func TestPackEmpty(t *testing.T) {
	p := NewPacker()
	_, err := p.Pack(nil)
	assert.Error(t, err)
}

func TestPackDeterministic(t *testing.T) {
	p := NewPacker(WithMaxSize(2048), WithMaxBins(2), WithPadding(2))

	items := []PackItem{
		{ID: 3, Width: 640, Height: 480},
		{ID: 1, Width: 512, Height: 512},
		{ID: 2, Width: 300, Height: 700},
		{ID: 0, Width: 128, Height: 128},
	}

	first, err := p.Pack(items)
	require.NoError(t, err)
	second, err := p.Pack(items)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestPackSingleNoDownscaleNeeded(t *testing.T) {
	p := NewPacker(WithMaxSize(2048), WithPadding(2))

	bins, scale, err := p.PackSingle([]PackItem{
		{ID: 0, Width: 256, Height: 256},
		{ID: 1, Width: 128, Height: 128},
	})
	require.NoError(t, err)
	require.Len(t, bins, 1)
	assert.Equal(t, 1.0, scale)
}

func TestPackSingleBinarySearchDownscale(t *testing.T) {
	// Two full-size squares cannot share one 256 bin; the search must find a
	// uniform downscale in (0, 1) that fits both.
	p := NewPacker(WithMaxSize(256), WithPadding(2))

	bins, scale, err := p.PackSingle([]PackItem{
		{ID: 0, Width: 256, Height: 256},
		{ID: 1, Width: 256, Height: 256},
	})
	require.NoError(t, err)
	require.Len(t, bins, 1)
	assert.Len(t, bins[0].Rects, 2)
	assert.Greater(t, scale, 0.0)
	assert.Less(t, scale, 1.0)
	assertBinInvariants(t, bins, 256, 256, 2)

	// The refined scale must actually shrink the rects.
	for _, r := range bins[0].Rects {
		assert.Less(t, r.Width, 256)
	}
}

func TestPackSingleFailsBelowScaleFloor(t *testing.T) {
	p := NewPacker(WithMaxSize(256), WithPadding(2))

	items := make([]PackItem, 100)
	for i := range items {
		items[i] = PackItem{ID: i, Width: 2048, Height: 2048}
	}

	_, _, err := p.PackSingle(items)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCapacity)
}

func TestPackPayloadCarriedThrough(t *testing.T) {
	p := NewPacker(WithMaxSize(512), WithMaxBins(1))

	type payload struct{ name string }
	bins, err := p.Pack([]PackItem{
		{ID: 0, Width: 64, Height: 64, Payload: &payload{name: "brick"}},
	})
	require.NoError(t, err)
	require.Len(t, bins[0].Rects, 1)

	got, ok := bins[0].Rects[0].Item.Payload.(*payload)
	require.True(t, ok)
	assert.Equal(t, "brick", got.name)
}
