// Package ladder derives the resolution ladder for a source video track:
// which rendition heights to encode, their proportional widths, and the
// target bitrate for each rung.
package ladder

import "math"

// WidthAuto tells the encoder to derive the width from the target height
// while preserving the source aspect ratio.
const WidthAuto = -2

// candidateHeights is the fixed rung set, ascending.
var candidateHeights = []int{240, 360, 480, 720, 1080, 2160}

// bitrateKbps maps rung heights to target video bitrates.
var bitrateKbps = map[int]int{
	240:  400,
	360:  800,
	480:  1200,
	720:  2500,
	1080: 5000,
	2160: 12000,
}

// Rung is one ladder entry: a target height, the computed even width (or
// WidthAuto), and the video bitrate in kbps.
type Rung struct {
	Height      int
	Width       int
	BitrateKbps int
}

// BandwidthBits returns the rung bitrate in bits per second, the unit the
// master manifest declares.
func (r Rung) BandwidthBits() int {
	return r.BitrateKbps * 1000
}

// Plan derives the ladder for a source of the given native dimensions.
// Rungs above the source height are dropped; a source below the smallest
// candidate yields an empty ladder. When the height is unknown (<= 0) the
// full candidate set is used and every rung gets WidthAuto, since no aspect
// ratio is available.
func Plan(srcWidth, srcHeight int) []Rung {
	heights := candidateHeights
	if srcHeight > 0 {
		kept := make([]int, 0, len(candidateHeights))
		for _, h := range candidateHeights {
			if h <= srcHeight {
				kept = append(kept, h)
			}
		}
		heights = kept
	}

	rungs := make([]Rung, 0, len(heights))
	for _, h := range heights {
		rungs = append(rungs, Rung{
			Height:      h,
			Width:       scaledWidth(srcWidth, srcHeight, h),
			BitrateKbps: bitrateFor(h),
		})
	}
	return rungs
}

// scaledWidth computes the even pixel width preserving the source aspect
// ratio. Common codecs reject odd widths, hence the rounding to a multiple
// of two.
func scaledWidth(srcWidth, srcHeight, target int) int {
	if srcWidth <= 0 || srcHeight <= 0 {
		return WidthAuto
	}
	aspect := float64(srcWidth) / float64(srcHeight)
	width := int(math.Round(float64(target)*aspect/2)) * 2
	if width <= 0 {
		return WidthAuto
	}
	return width
}

// bitrateFor looks up the tabulated bitrate, falling back to a height-scaled
// estimate for rungs outside the table. The estimate stays on the table's
// kbps scale, between the neighbouring tabulated values.
func bitrateFor(height int) int {
	if kbps, ok := bitrateKbps[height]; ok {
		return kbps
	}
	return height * 5
}
