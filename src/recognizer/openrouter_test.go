package recognizer

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"clipboard-ocr/src/imageref"
)

func pngImage(t *testing.T) Image {
	t.Helper()
	data, err := imageref.EncodePNG(image.NewRGBA(image.Rect(0, 0, 2, 2)))
	if err != nil {
		t.Fatal(err)
	}
	return Image{ID: "test", MediaType: imageref.MediaTypePNG, Data: data}
}

func newTestOpenRouter(t *testing.T, handler http.HandlerFunc) *OpenRouter {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	o, err := NewOpenRouter(OpenRouterConfig{
		APIKey:     "mock_key_for_testing",
		Model:      "test_model",
		BaseURL:    srv.URL,
		RetryDelay: time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewOpenRouter: %v", err)
	}
	return o
}

func reply(w http.ResponseWriter, text string) {
	fmt.Fprintf(w, `{"choices":[{"message":{"content":%q}}]}`, text)
}

func TestNewOpenRouterValidation(t *testing.T) {
	if _, err := NewOpenRouter(OpenRouterConfig{Model: "m"}); err == nil {
		t.Error("Expected error with missing API key")
	}
	if _, err := NewOpenRouter(OpenRouterConfig{APIKey: "k"}); err == nil {
		t.Error("Expected error with missing model")
	}
}

func TestOpenRouterRecognize(t *testing.T) {
	var gotReq chatRequest
	o := newTestOpenRouter(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer mock_key_for_testing" {
			t.Errorf("unexpected Authorization header %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		reply(w, "  line one\nline two  \n</image>")
	})

	var mu sync.Mutex
	var ticks []Progress
	res, err := o.Recognize(context.Background(), pngImage(t), "eng+spa", ProgressFunc(func(p Progress) {
		mu.Lock()
		ticks = append(ticks, p)
		mu.Unlock()
	}))
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	if res.Text != "  line one\nline two  \n" {
		t.Errorf("Text = %q, want whitespace preserved and artifact removed", res.Text)
	}
	if res.Engine != "openrouter" || res.Language != "eng+spa" {
		t.Errorf("unexpected result metadata: %+v", res)
	}
	if gotReq.Model != "test_model" {
		t.Errorf("request model = %q", gotReq.Model)
	}
	if len(gotReq.Messages) != 1 || len(gotReq.Messages[0].Content) != 2 {
		t.Fatalf("unexpected request messages: %+v", gotReq.Messages)
	}
	if !strings.Contains(gotReq.Messages[0].Content[0].Text, "eng, spa") {
		t.Errorf("prompt missing language hint: %q", gotReq.Messages[0].Content[0].Text)
	}
	if !strings.HasPrefix(gotReq.Messages[0].Content[1].ImageURL.URL, "data:image/png;base64,") {
		t.Errorf("unexpected image URL prefix")
	}
	if gotReq.Provider != nil {
		t.Errorf("expected no provider preferences, got %+v", gotReq.Provider)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(ticks) < 2 || ticks[len(ticks)-1].Value != 1 {
		t.Errorf("expected progress ticks ending at 1, got %+v", ticks)
	}
}

func TestOpenRouterNoTextFound(t *testing.T) {
	o := newTestOpenRouter(t, func(w http.ResponseWriter, r *http.Request) {
		reply(w, noTextMarker)
	})
	res, err := o.Recognize(context.Background(), pngImage(t), "eng", nil)
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	if res.Text != "" {
		t.Errorf("Text = %q, want empty", res.Text)
	}
}

func TestOpenRouterRetriesThenSucceeds(t *testing.T) {
	var calls int32
	o := newTestOpenRouter(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			fmt.Fprint(w, `{"error":{"message":"upstream","type":"server","code":502}}`)
			return
		}
		reply(w, "ok")
	})
	res, err := o.Recognize(context.Background(), pngImage(t), "eng", nil)
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	if res.Text != "ok" {
		t.Errorf("Text = %q, want ok", res.Text)
	}
	if atomic.LoadInt32(&calls) != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestOpenRouterFailsAfterRetries(t *testing.T) {
	o := newTestOpenRouter(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"choices":[]}`)
	})
	_, err := o.Recognize(context.Background(), pngImage(t), "eng", nil)
	if err == nil || !strings.Contains(err.Error(), "failed after 3 attempts") {
		t.Errorf("err = %v, want retry exhaustion", err)
	}
}

func TestOpenRouterContextCancelled(t *testing.T) {
	o := newTestOpenRouter(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := o.Recognize(ctx, pngImage(t), "eng", nil); err == nil {
		t.Error("expected context error")
	}
}

func TestOpenRouterProviders(t *testing.T) {
	o, err := NewOpenRouter(OpenRouterConfig{APIKey: "k", Model: "m", Providers: []string{"a", "b"}})
	if err != nil {
		t.Fatal(err)
	}
	p := o.providerPreferences()
	if p == nil || len(p.Order) != 2 || p.AllowFallbacks == nil || *p.AllowFallbacks {
		t.Errorf("unexpected provider preferences: %+v", p)
	}
}

func TestOpenRouterPing(t *testing.T) {
	o := newTestOpenRouter(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/key" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		fmt.Fprint(w, `{"data":{}}`)
	})
	if err := o.Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}

	bad := newTestOpenRouter(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	if err := bad.Ping(context.Background()); err == nil {
		t.Error("expected ping error on 401")
	}
}
