package features

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"math"
	"strings"

	// Registered decoders for the screenshot formats the extension captures.
	_ "image/jpeg"
	_ "image/png"
)

// VisualFeatureCount is the fixed length of the visual feature vector.
const VisualFeatureCount = 16

// maxSamplesPerAxis bounds pixel sampling so huge screenshots stay cheap.
const maxSamplesPerAxis = 256

// DecodeScreenshot decodes a raw or base64-encoded screenshot into an
// image. It accepts data URI prefixes ("data:image/png;base64,...") since
// browser extensions commonly send captures in that form.
func DecodeScreenshot(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty screenshot payload")
	}
	if img, _, err := image.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}
	s := string(data)
	if i := strings.Index(s, "base64,"); i >= 0 {
		s = s[i+len("base64,"):]
	}
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("screenshot is neither raw image data nor base64: %w", err)
	}
	img, _, err := image.Decode(bytes.NewReader(decoded))
	if err != nil {
		return nil, fmt.Errorf("decode screenshot: %w", err)
	}
	return img, nil
}

// VisualFeatures extracts the 16-slot visual feature vector from a rendered
// page screenshot. A nil image yields the all-zero vector.
//
// Slots: 0 width, 1 height, 2 aspect ratio, 3-5 mean R/G/B, 6-8 stddev
// R/G/B, 9 mean luminance, 10 stddev luminance, 11 edge density,
// 12 dominant-color concentration, 13 color variety, 14 dark fraction,
// 15 light fraction.
func VisualFeatures(img image.Image) []float64 {
	v := make([]float64, VisualFeatureCount)
	if img == nil {
		return v
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return v
	}
	v[0] = float64(w)
	v[1] = float64(h)
	v[2] = float64(w) / float64(h)

	strideX := max(1, w/maxSamplesPerAxis)
	strideY := max(1, h/maxSamplesPerAxis)

	var n float64
	var sum, sumSq [3]float64
	var lumSum, lumSq float64
	var edges, dark, light float64
	colorBins := make(map[uint16]int)

	prevLum := make([]float64, 0, w/strideX+1)
	for y := b.Min.Y; y < b.Max.Y; y += strideY {
		col := 0
		for x := b.Min.X; x < b.Max.X; x += strideX {
			r, g, bl, _ := img.At(x, y).RGBA()
			rf := float64(r>>8) / 255
			gf := float64(g>>8) / 255
			bf := float64(bl>>8) / 255
			sum[0] += rf
			sum[1] += gf
			sum[2] += bf
			sumSq[0] += rf * rf
			sumSq[1] += gf * gf
			sumSq[2] += bf * bf

			lum := 0.299*rf + 0.587*gf + 0.114*bf
			lumSum += lum
			lumSq += lum * lum
			if lum < 0.15 {
				dark++
			} else if lum > 0.85 {
				light++
			}
			// 4 bits per channel color quantization
			bin := uint16(r>>12)<<8 | uint16(g>>12)<<4 | uint16(bl>>12)
			colorBins[bin]++

			if col < len(prevLum) && math.Abs(lum-prevLum[col]) > 0.25 {
				edges++
			}
			if col < cap(prevLum) {
				prevLum = prevLum[:col+1]
				prevLum[col] = lum
			}
			col++
			n++
		}
	}
	if n == 0 {
		return v
	}

	for i := 0; i < 3; i++ {
		mean := sum[i] / n
		v[3+i] = mean
		v[6+i] = math.Sqrt(max(0, sumSq[i]/n-mean*mean))
	}
	lumMean := lumSum / n
	v[9] = lumMean
	v[10] = math.Sqrt(max(0, lumSq/n-lumMean*lumMean))
	v[11] = edges / n

	maxBin := 0
	for _, c := range colorBins {
		if c > maxBin {
			maxBin = c
		}
	}
	v[12] = float64(maxBin) / n
	v[13] = float64(len(colorBins)) / n
	v[14] = dark / n
	v[15] = light / n
	return v
}
