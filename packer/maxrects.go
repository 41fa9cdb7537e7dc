package packer

import "math"

// freeRect is one free region inside a bin.
type freeRect struct {
	x, y, w, h int
}

// maxRectsBin packs one bin with the MaxRects algorithm using the
// best-short-side-fit rule and no rotation: the candidate free rectangle with
// the smallest leftover short side wins, long side breaks ties. Padding is
// charged to the right and bottom of every placed rect; the free area is
// extended by one padding so rects flush against the bin edge do not pay for
// trailing padding.
type maxRectsBin struct {
	size    int
	padding int
	free    []freeRect
	rects   []Rect
}

func newMaxRectsBin(size, padding int) *maxRectsBin {
	return &maxRectsBin{
		size:    size,
		padding: padding,
		free:    []freeRect{{0, 0, size + padding, size + padding}},
	}
}

// place attempts to place the item, returning false when no free rectangle
// can hold it.
func (b *maxRectsBin) place(it PackItem) bool {
	w := it.Width + b.padding
	h := it.Height + b.padding

	bestIdx := -1
	bestShort := math.MaxInt
	bestLong := math.MaxInt
	var bx, by int

	for i, fr := range b.free {
		if fr.w < w || fr.h < h {
			continue
		}
		leftoverW := fr.w - w
		leftoverH := fr.h - h
		short := min(leftoverW, leftoverH)
		long := max(leftoverW, leftoverH)
		if short < bestShort || (short == bestShort && long < bestLong) {
			bestIdx = i
			bestShort = short
			bestLong = long
			bx, by = fr.x, fr.y
		}
	}
	if bestIdx < 0 {
		return false
	}

	used := freeRect{x: bx, y: by, w: w, h: h}
	b.rects = append(b.rects, Rect{X: bx, Y: by, Width: it.Width, Height: it.Height, Item: it})

	next := make([]freeRect, 0, len(b.free)+3)
	for _, fr := range b.free {
		next = appendSplit(next, fr, used)
	}
	b.free = pruneContained(next)
	return true
}

// appendSplit splits fr around the used area and appends the surviving free
// regions to out. A free rect not touching the used area survives whole.
func appendSplit(out []freeRect, fr, used freeRect) []freeRect {
	if used.x >= fr.x+fr.w || used.x+used.w <= fr.x ||
		used.y >= fr.y+fr.h || used.y+used.h <= fr.y {
		return append(out, fr)
	}

	if used.x > fr.x {
		out = append(out, freeRect{fr.x, fr.y, used.x - fr.x, fr.h})
	}
	if used.x+used.w < fr.x+fr.w {
		out = append(out, freeRect{used.x + used.w, fr.y, fr.x + fr.w - used.x - used.w, fr.h})
	}
	if used.y > fr.y {
		out = append(out, freeRect{fr.x, fr.y, fr.w, used.y - fr.y})
	}
	if used.y+used.h < fr.y+fr.h {
		out = append(out, freeRect{fr.x, used.y + used.h, fr.w, fr.y + fr.h - used.y - used.h})
	}
	return out
}

// pruneContained removes free rects fully contained in another free rect.
func pruneContained(rects []freeRect) []freeRect {
	out := rects[:0]
	for i, a := range rects {
		contained := false
		for j, b := range rects {
			if i == j {
				continue
			}
			if a.x >= b.x && a.y >= b.y &&
				a.x+a.w <= b.x+b.w && a.y+a.h <= b.y+b.h {
				// Identical rects keep the first occurrence.
				if a == b && i < j {
					continue
				}
				contained = true
				break
			}
		}
		if !contained {
			out = append(out, a)
		}
	}
	return out
}
