package recognizer

import (
	"context"
	"reflect"
	"testing"
)

func TestSplitLanguages(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"eng", []string{"eng"}},
		{"eng+spa", []string{"eng", "spa"}},
		{" eng + spa +", []string{"eng", "spa"}},
		{"", nil},
	}
	for _, tt := range tests {
		if got := SplitLanguages(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("SplitLanguages(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestFuncRecognizer(t *testing.T) {
	var r Recognizer = Func(func(ctx context.Context, img Image, language string, obs ProgressObserver) (Result, error) {
		obs.OnProgress(Progress{Status: "x", Value: 1})
		return Result{Text: img.ID + ":" + language}, nil
	})
	var got Progress
	res, err := r.Recognize(context.Background(), Image{ID: "a"}, "eng", ProgressFunc(func(p Progress) { got = p }))
	if err != nil {
		t.Fatal(err)
	}
	if res.Text != "a:eng" {
		t.Errorf("Text = %q", res.Text)
	}
	if got.Value != 1 {
		t.Errorf("progress not forwarded: %+v", got)
	}
}
