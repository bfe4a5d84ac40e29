package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

func newTestClient(t *testing.T, key string, h http.HandlerFunc) (*Client, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		h(w, r)
	}))
	t.Cleanup(srv.Close)

	return New(Options{APIKey: key, BaseURL: srv.URL, HTTPClient: srv.Client()}), &calls
}

func TestGenerateImageRequestShape(t *testing.T) {
	var got generateContentRequest
	client, _ := newTestClient(t, "k-123", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1beta/models/gemini-2.5-flash-image:generateContent" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("x-goog-api-key") != "k-123" {
			t.Errorf("api key header = %q", r.Header.Get("x-goog-api-key"))
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"inlineData":{"mimeType":"image/png","data":"QUJD"}}]}}]}`))
	})

	out, err := client.GenerateImage(context.Background(), ImageRequest{
		Image:       ImageInput{DataBase64: "eHl6", MimeType: "image/jpeg"},
		Prompt:      "make a mascot",
		AspectRatio: "1:1",
	})
	if err != nil {
		t.Fatalf("GenerateImage: %v", err)
	}
	if out.Kind != OutcomeImage || out.Image.DataBase64 != "QUJD" {
		t.Errorf("outcome = %+v", out)
	}

	if len(got.Contents) != 1 || len(got.Contents[0].Parts) != 2 {
		t.Fatalf("contents = %+v", got.Contents)
	}
	parts := got.Contents[0].Parts
	if parts[0].InlineData == nil || parts[0].InlineData.Data != "eHl6" || parts[0].InlineData.MimeType != "image/jpeg" {
		t.Errorf("image part = %+v", parts[0])
	}
	if parts[1].Text != "make a mascot" {
		t.Errorf("text part = %q", parts[1].Text)
	}
	if got.GenerationConfig.ImageConfig == nil || got.GenerationConfig.ImageConfig.AspectRatio != "1:1" {
		t.Errorf("imageConfig = %+v", got.GenerationConfig.ImageConfig)
	}
}

func TestGenerateImageFirstImagePartWins(t *testing.T) {
	client, _ := newTestClient(t, "k", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[
			{"text":"here you go"},
			{"inlineData":{"mimeType":"image/png","data":"Rmlyc3Q="}},
			{"inlineData":{"mimeType":"image/png","data":"U2Vjb25k"}}
		]}}]}`))
	})

	out, err := client.GenerateImage(context.Background(), ImageRequest{Prompt: "p"})
	if err != nil {
		t.Fatalf("GenerateImage: %v", err)
	}
	if out.Image.DataBase64 != "Rmlyc3Q=" {
		t.Errorf("image = %q, want first part", out.Image.DataBase64)
	}
	if out.Text != "here you go" {
		t.Errorf("text = %q", out.Text)
	}
}

func TestGenerateImageNoImage(t *testing.T) {
	for name, body := range map[string]string{
		"no candidates": `{"candidates":[]}`,
		"text only":     `{"candidates":[{"content":{"parts":[{"text":"I cannot do that"}]}}]}`,
		"empty data":    `{"candidates":[{"content":{"parts":[{"inlineData":{"mimeType":"image/png","data":""}}]}}]}`,
	} {
		t.Run(name, func(t *testing.T) {
			client, _ := newTestClient(t, "k", func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			})
			out, err := client.GenerateImage(context.Background(), ImageRequest{Prompt: "p"})
			if err != nil {
				t.Fatalf("GenerateImage: %v", err)
			}
			if out.Kind != OutcomeNoImage {
				t.Errorf("kind = %v, want no_image", out.Kind)
			}
		})
	}
}

func TestGenerateImageAPIError(t *testing.T) {
	client, calls := newTestClient(t, "k", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"code":429,"message":"Quota exceeded for metric","status":"RESOURCE_EXHAUSTED"}}`))
	})

	_, err := client.GenerateImage(context.Background(), ImageRequest{Prompt: "p", AspectRatio: "1:1"})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *APIError", err)
	}
	if apiErr.StatusCode != 429 || apiErr.Status != "RESOURCE_EXHAUSTED" || apiErr.Message != "Quota exceeded for metric" {
		t.Errorf("apiErr = %+v", apiErr)
	}
	if *calls != 1 {
		t.Errorf("calls = %d, want exactly one", *calls)
	}
}

func TestGenerateImageRawErrorBody(t *testing.T) {
	client, _ := newTestClient(t, "k", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	})

	_, err := client.GenerateImage(context.Background(), ImageRequest{Prompt: "p"})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v", err)
	}
	if apiErr.Message != "upstream exploded" {
		t.Errorf("message = %q", apiErr.Message)
	}
}

func TestGenerateImageDropsUnknownImageConfig(t *testing.T) {
	client, calls := newTestClient(t, "k", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if strings.Contains(string(body), "imageConfig") {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"code":400,"message":"Invalid JSON payload received. Unknown name \"imageConfig\"","status":"INVALID_ARGUMENT"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"inlineData":{"mimeType":"image/png","data":"QQ=="}}]}}]}`))
	})

	out, err := client.GenerateImage(context.Background(), ImageRequest{Prompt: "p", AspectRatio: "1:1"})
	if err != nil {
		t.Fatalf("GenerateImage: %v", err)
	}
	if out.Kind != OutcomeImage {
		t.Errorf("kind = %v", out.Kind)
	}
	if *calls != 2 {
		t.Errorf("calls = %d, want 2", *calls)
	}
}

func TestGenerateImageMissingKey(t *testing.T) {
	for _, key := range []string{"", "   ", "undefined"} {
		client, calls := newTestClient(t, key, func(w http.ResponseWriter, r *http.Request) {})
		_, err := client.GenerateImage(context.Background(), ImageRequest{Prompt: "p"})
		if !errors.Is(err, ErrMissingAPIKey) {
			t.Errorf("key %q: err = %v", key, err)
		}
		if *calls != 0 {
			t.Errorf("key %q: made %d calls", key, *calls)
		}
	}
}

func TestParseDataURL(t *testing.T) {
	tests := []struct {
		in       string
		wantMime string
		wantData string
		ok       bool
	}{
		{"data:image/png;base64,QUJD", "image/png", "QUJD", true},
		{"data:image/webp;charset=x;base64,Zm9v", "image/webp", "Zm9v", true},
		{"QUJD", "image/jpeg", "QUJD", true},
		{"data:image/png;base64,", "", "", false},
		{"  ", "", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseDataURL(tt.in, "image/jpeg")
		if ok != tt.ok {
			t.Errorf("ParseDataURL(%q) ok = %v", tt.in, ok)
			continue
		}
		if ok && (got.MimeType != tt.wantMime || got.DataBase64 != tt.wantData) {
			t.Errorf("ParseDataURL(%q) = %+v", tt.in, got)
		}
	}
}
