package imaging

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

func solid(w, h int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func createTestJPEG(w, h int) []byte {
	var buf bytes.Buffer
	jpeg.Encode(&buf, solid(w, h, color.RGBA{255, 0, 0, 255}), &jpeg.Options{Quality: 90})
	return buf.Bytes()
}

func createTestPNG(w, h int) []byte {
	var buf bytes.Buffer
	png.Encode(&buf, solid(w, h, color.RGBA{0, 0, 255, 255}))
	return buf.Bytes()
}

func decode(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decoding result: %v", err)
	}
	return img
}

func TestProcessPNGBecomesJPEG(t *testing.T) {
	result, err := Process(bytes.NewReader(createTestPNG(100, 100)))
	if err != nil {
		t.Fatalf("Process PNG: %v", err)
	}
	if result.MIME != "image/jpeg" {
		t.Errorf("expected image/jpeg, got %s", result.MIME)
	}
	if len(result.Data) == 0 {
		t.Error("expected non-empty data")
	}
}

func TestProcessDownscaleKeepsAspect(t *testing.T) {
	result, err := Process(bytes.NewReader(createTestJPEG(2048, 1024)))
	if err != nil {
		t.Fatalf("Process large image: %v", err)
	}

	bounds := decode(t, result.Data).Bounds()
	if bounds.Dx() != MaxDimension || bounds.Dy() != MaxDimension/2 {
		t.Errorf("expected %dx%d, got %dx%d", MaxDimension, MaxDimension/2, bounds.Dx(), bounds.Dy())
	}
}

func TestProcessSmallImageNotUpscaled(t *testing.T) {
	result, err := Process(bytes.NewReader(createTestJPEG(50, 50)))
	if err != nil {
		t.Fatalf("Process small image: %v", err)
	}

	bounds := decode(t, result.Data).Bounds()
	if bounds.Dx() != 50 || bounds.Dy() != 50 {
		t.Errorf("small image should not be resized: got %dx%d", bounds.Dx(), bounds.Dy())
	}
}

func TestProcessRejectsOtherFormats(t *testing.T) {
	for _, data := range [][]byte{[]byte("not an image"), []byte("GIF89a...")} {
		_, err := Process(bytes.NewReader(data))
		if !errors.Is(err, ErrUnsupported) {
			t.Errorf("Process(%q) = %v, want ErrUnsupported", data, err)
		}
	}
}

func TestProcessRejectsOversizedUpload(t *testing.T) {
	data := append(createTestPNG(1, 1), make([]byte, MaxUploadBytes)...)
	_, err := Process(bytes.NewReader(data))
	if !errors.Is(err, ErrTooLarge) {
		t.Errorf("expected ErrTooLarge, got %v", err)
	}
}

func TestRenderQR(t *testing.T) {
	result, err := RenderQR("3f6c1a9e-2b1d-4c55-9b8e-0f1d2e3c4b5a", DefaultQRSize)
	if err != nil {
		t.Fatalf("RenderQR: %v", err)
	}
	if result.MIME != "image/png" {
		t.Errorf("expected image/png, got %s", result.MIME)
	}

	bounds := decode(t, result.Data).Bounds()
	if bounds.Dx() != bounds.Dy() {
		t.Errorf("expected a square image, got %dx%d", bounds.Dx(), bounds.Dy())
	}
	if bounds.Dx() > DefaultQRSize || bounds.Dx() < DefaultQRSize/2 {
		t.Errorf("unexpected edge length %d for target %d", bounds.Dx(), DefaultQRSize)
	}
}

func TestRenderQRNeverBelowOnePixelPerModule(t *testing.T) {
	result, err := RenderQR("tiny", 1)
	if err != nil {
		t.Fatalf("RenderQR: %v", err)
	}
	if decode(t, result.Data).Bounds().Dx() < 21 {
		t.Error("expected at least one pixel per module")
	}
}
