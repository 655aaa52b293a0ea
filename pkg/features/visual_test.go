package features

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func testImage(w, h int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestVisualFeaturesNil(t *testing.T) {
	v := VisualFeatures(nil)
	if len(v) != VisualFeatureCount {
		t.Fatalf("length = %d, want %d", len(v), VisualFeatureCount)
	}
	for i, f := range v {
		if f != 0 {
			t.Errorf("slot %d = %f, want 0 for nil image", i, f)
		}
	}
}

func TestVisualFeaturesSolidColor(t *testing.T) {
	v := VisualFeatures(testImage(64, 32, color.RGBA{R: 255, A: 255}))
	if v[0] != 64 || v[1] != 32 {
		t.Errorf("dimensions = %fx%f, want 64x32", v[0], v[1])
	}
	if v[2] != 2 {
		t.Errorf("aspect ratio = %f, want 2", v[2])
	}
	if v[3] < 0.99 || v[4] > 0.01 || v[5] > 0.01 {
		t.Errorf("mean RGB = %v, want pure red", v[3:6])
	}
	// Solid color: no variance, no edges, full dominant-color concentration
	if v[6] > 0.01 || v[11] != 0 {
		t.Errorf("stddev/edge density = %f/%f, want 0/0", v[6], v[11])
	}
	if v[12] < 0.99 {
		t.Errorf("dominant color concentration = %f, want ~1", v[12])
	}
}

func TestVisualFeaturesDeterministic(t *testing.T) {
	img := testImage(100, 100, color.Gray{Y: 128})
	a := VisualFeatures(img)
	b := VisualFeatures(img)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("slot %d differs across calls: %f vs %f", i, a[i], b[i])
		}
	}
}

func TestDecodeScreenshot(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, testImage(8, 8, color.White)); err != nil {
		t.Fatal(err)
	}
	raw := buf.Bytes()

	t.Run("raw bytes", func(t *testing.T) {
		img, err := DecodeScreenshot(raw)
		if err != nil {
			t.Fatalf("decode raw: %v", err)
		}
		if img.Bounds().Dx() != 8 {
			t.Errorf("width = %d, want 8", img.Bounds().Dx())
		}
	})

	t.Run("base64", func(t *testing.T) {
		enc := base64.StdEncoding.EncodeToString(raw)
		if _, err := DecodeScreenshot([]byte(enc)); err != nil {
			t.Fatalf("decode base64: %v", err)
		}
	})

	t.Run("data uri", func(t *testing.T) {
		uri := "data:image/png;base64," + base64.StdEncoding.EncodeToString(raw)
		if _, err := DecodeScreenshot([]byte(uri)); err != nil {
			t.Fatalf("decode data uri: %v", err)
		}
	})

	t.Run("garbage", func(t *testing.T) {
		if _, err := DecodeScreenshot([]byte("not an image!!")); err == nil {
			t.Fatal("expected error for garbage input")
		}
	})
}
