package screenshot

import (
	"testing"

	"clipboard-ocr/src/imageref"
)

func TestParseRegion(t *testing.T) {
	tests := []struct {
		in      string
		want    Region
		wantErr bool
	}{
		{"0,0,100,50", Region{0, 0, 100, 50}, false},
		{" -10, 20 , 30,40", Region{-10, 20, 30, 40}, false},
		{"0,0,0,10", Region{}, true},
		{"0,0,10", Region{}, true},
		{"a,b,c,d", Region{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRegion(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseRegion(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseRegion(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestCaptureRegion(t *testing.T) {
	if _, err := CaptureRegion(Region{X: 0, Y: 0, Width: 0, Height: 0}); err == nil {
		t.Error("Expected error for invalid region dimensions")
	}

	blob, err := CaptureRegion(Region{X: 0, Y: 0, Width: 100, Height: 100})
	if err != nil {
		t.Skipf("Failed to capture region (expected in headless environment): %v", err)
	}
	if blob.MediaType != imageref.MediaTypePNG || len(blob.Data) == 0 {
		t.Errorf("unexpected blob: type=%s size=%d", blob.MediaType, len(blob.Data))
	}
}

func TestCaptureScreen(t *testing.T) {
	if _, err := VirtualScreen(); err != nil {
		t.Skipf("no display: %v", err)
	}
	blob, err := CaptureScreen()
	if err != nil {
		t.Skipf("Failed to capture screen (expected in headless environment): %v", err)
	}
	if !imageref.IsImageType(blob.MediaType) {
		t.Errorf("unexpected media type %s", blob.MediaType)
	}
}
