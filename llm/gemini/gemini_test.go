package gemini

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/genrelay/genrelay/llm"
)

// capture holds the last request the fake API received.
type capture struct {
	path  string
	query string
	body  generateRequest
}

// newFakeAPI starts an httptest server that records the request and replies
// with one text candidate.
func newFakeAPI(t *testing.T, reply string, status int) (*httptest.Server, *capture) {
	t.Helper()
	seen := &capture{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen.path = r.URL.Path
		seen.query = r.URL.RawQuery
		if err := json.NewDecoder(r.Body).Decode(&seen.body); err != nil {
			t.Errorf("decoding request body: %v", err)
		}
		if status != http.StatusOK {
			http.Error(w, "upstream error", status)
			return
		}
		resp := map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]any{{"text": reply}}}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv, seen
}

func TestGenerateText(t *testing.T) {
	srv, seen := newFakeAPI(t, "generated!", http.StatusOK)
	c := New("secret-key", "", WithBaseURL(srv.URL))

	got, err := c.GenerateText(context.Background(), "say hi")
	if err != nil {
		t.Fatalf("GenerateText: %v", err)
	}
	if got != "generated!" {
		t.Errorf("GenerateText = %q; want %q", got, "generated!")
	}

	if !strings.Contains(seen.path, "models/gemini-1.5-flash-latest:generateContent") {
		t.Errorf("request path = %q; want the default model endpoint", seen.path)
	}
	if !strings.Contains(seen.query, "key=secret-key") {
		t.Errorf("request query = %q; want the API key", seen.query)
	}

	if len(seen.body.Contents) != 1 || len(seen.body.Contents[0].Parts) != 1 {
		t.Fatalf("request contents = %+v; want one content with one part", seen.body.Contents)
	}
	if seen.body.Contents[0].Parts[0].Text != "say hi" {
		t.Errorf("prompt part = %q; want %q", seen.body.Contents[0].Parts[0].Text, "say hi")
	}
}

func TestGenerateText_CustomModel(t *testing.T) {
	srv, seen := newFakeAPI(t, "ok", http.StatusOK)
	c := New("k", "gemini-1.5-pro", WithBaseURL(srv.URL))

	if _, err := c.GenerateText(context.Background(), "x"); err != nil {
		t.Fatalf("GenerateText: %v", err)
	}
	if !strings.Contains(seen.path, "models/gemini-1.5-pro:generateContent") {
		t.Errorf("request path = %q; want the custom model endpoint", seen.path)
	}
}

func TestGenerateFromImage(t *testing.T) {
	srv, seen := newFakeAPI(t, "a photo of a cat", http.StatusOK)
	c := New("k", "", WithBaseURL(srv.URL))

	img := llm.Image{MIMEType: "image/jpeg", Data: []byte{0xff, 0xd8, 0xff}}
	got, err := c.GenerateFromImage(context.Background(), "What is in this photo?", img)
	if err != nil {
		t.Fatalf("GenerateFromImage: %v", err)
	}
	if got != "a photo of a cat" {
		t.Errorf("GenerateFromImage = %q; want the candidate text", got)
	}

	parts := seen.body.Contents[0].Parts
	if len(parts) != 2 {
		t.Fatalf("request has %d parts; want instruction + image", len(parts))
	}
	if parts[0].Text != "What is in this photo?" {
		t.Errorf("first part = %q; want the instruction", parts[0].Text)
	}
	if parts[1].InlineData == nil {
		t.Fatal("second part has no inline_data")
	}
	if parts[1].InlineData.MIMEType != "image/jpeg" {
		t.Errorf("inline_data mime_type = %q; want image/jpeg", parts[1].InlineData.MIMEType)
	}
	wantData := base64.StdEncoding.EncodeToString(img.Data)
	if parts[1].InlineData.Data != wantData {
		t.Errorf("inline_data data = %q; want %q", parts[1].InlineData.Data, wantData)
	}
}

func TestGenerate_UpstreamError(t *testing.T) {
	srv, _ := newFakeAPI(t, "", http.StatusForbidden)
	c := New("bad-key", "", WithBaseURL(srv.URL))

	if _, err := c.GenerateText(context.Background(), "x"); err == nil {
		t.Fatal("expected error for upstream 403, got nil")
	}
}

func TestGenerate_NoCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates": []}`))
	}))
	defer srv.Close()
	c := New("k", "", WithBaseURL(srv.URL))

	if _, err := c.GenerateText(context.Background(), "x"); err == nil {
		t.Fatal("expected error for empty candidates, got nil")
	}
}
