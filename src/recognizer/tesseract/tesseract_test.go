package tesseract

import (
	"context"
	"reflect"
	"testing"

	"clipboard-ocr/src/recognizer"
)

func TestRejectsEmptyImage(t *testing.T) {
	if _, err := New().Recognize(context.Background(), recognizer.Image{ID: "empty"}, "eng", nil); err == nil {
		t.Error("expected error for empty image")
	}
}

func TestInputPassesNativeFormats(t *testing.T) {
	data := []byte{1, 2, 3}
	got, err := input(recognizer.Image{MediaType: "image/jpeg", Data: data})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, data) {
		t.Error("expected jpeg bytes to pass through")
	}
	if _, err := input(recognizer.Image{MediaType: "image/webp", Data: data}); err == nil {
		t.Error("expected normalize error for invalid webp data")
	}
}
