package datauri

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func pngURI(t *testing.T, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{255, 0, 0, 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return Encode("image/png", buf.Bytes())
}

func TestParse(t *testing.T) {
	mime, data, err := Parse("data:image/png;base64,AAE=")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if mime != "image/png" || !bytes.Equal(data, []byte{0, 1}) {
		t.Errorf("unexpected result %q %v", mime, data)
	}
}

func TestParseMalformed(t *testing.T) {
	for _, uri := range []string{
		"",
		"http://example.com/a.png",
		"data:image/png;base64",
		"data:image/png,plain",
		"data:image/png;base64,!!!",
	} {
		if _, _, err := Parse(uri); !errors.Is(err, ErrMalformed) {
			t.Errorf("Parse(%q): expected ErrMalformed, got %v", uri, err)
		}
	}
}

func TestImage(t *testing.T) {
	img, err := Image(pngURI(t, 4, 3))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 4 || b.Dy() != 3 {
		t.Errorf("expected 4x3, got %v", b)
	}
	r, _, _, _ := img.At(0, 0).RGBA()
	if r>>8 != 255 {
		t.Errorf("expected red pixel, got %v", img.At(0, 0))
	}
}

func TestExtension(t *testing.T) {
	if Extension("image/jpeg") != ".jpg" || Extension("image/png") != ".png" || Extension("") != ".png" {
		t.Error("unexpected extension mapping")
	}
}
