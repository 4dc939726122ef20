package creative

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"
)

func imageServer(t *testing.T, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if status != http.StatusOK {
			writeJSON(w, status, map[string]any{"error": map[string]any{"message": "MODEL_NOT_FOUND"}})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"created": 1,
			"data":    []map[string]any{{"b64_json": base64.StdEncoding.EncodeToString([]byte("GEN"))}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestStudio_GeneratedImage(t *testing.T) {
	srv := imageServer(t, http.StatusOK)
	images, _ := NewImageGenerator(ImageConfig{APIKey: "k", BaseURL: srv.URL})
	s := NewStudio(NewGenerator(&stubWriter{answer: `{"text":"t","image_prompt":"p"}`}, nil, nil), images, nil)

	res, err := s.Create(context.Background(), testDigest(), Options{WithImage: true})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !res.HasImage() || string(res.Image) != "GEN" || res.ImageSource != ImageSourceGenerated {
		t.Errorf("result = %+v", res)
	}
	if res.ImagePrompt != "p" {
		t.Errorf("image prompt = %q", res.ImagePrompt)
	}
}

func TestStudio_ImageFailureKeepsText(t *testing.T) {
	srv := imageServer(t, http.StatusBadRequest)
	images, _ := NewImageGenerator(ImageConfig{APIKey: "k", BaseURL: srv.URL})
	s := NewStudio(NewGenerator(&stubWriter{answer: `{"text":"t","image_prompt":"p"}`}, nil, nil), images, nil)

	res, err := s.Create(context.Background(), testDigest(), Options{WithImage: true})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if res.Text != "t" || res.HasImage() || res.ImageError == "" {
		t.Errorf("result = %+v, want text with image error", res)
	}
}

func TestStudio_ImagesNotConfigured(t *testing.T) {
	s := NewStudio(NewGenerator(&stubWriter{answer: `{"text":"t","image_prompt":"p"}`}, nil, nil), nil, nil)
	res, err := s.Create(context.Background(), testDigest(), Options{WithImage: true})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if res.ImageError != ErrNotConfigured.Error() {
		t.Errorf("image error = %q", res.ImageError)
	}
}

func TestStudio_NoPromptIsNotAnImageError(t *testing.T) {
	images, _ := NewImageGenerator(ImageConfig{APIKey: "k", BaseURL: "http://127.0.0.1:1"})
	s := NewStudio(NewGenerator(&stubWriter{answer: `{"text":"t","image_prompt":null}`}, nil, nil), images, nil)

	res, err := s.Create(context.Background(), testDigest(), Options{WithImage: true})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if res.Text != "t" || res.HasImage() || res.ImageError != "" {
		t.Errorf("result = %+v, want text without image or image error", res)
	}
}

func TestStudio_ReusePostImage(t *testing.T) {
	w := &stubWriter{answer: `{"text":"t","image_prompt":"p"}`}
	s := NewStudio(NewGenerator(w, nil, nil), nil, nil)

	withMedia := post("photo", 300, 2)
	withMedia.Media = []byte("POST")
	withMedia.MediaType = "image/jpeg"

	res, err := s.Create(context.Background(), testDigest(post("text", 1000, 0), withMedia), Options{WithImage: true, ReusePostImage: true})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if string(res.Image) != "POST" || res.ImageType != "image/jpeg" || res.ImageSource != ImageSourcePost {
		t.Errorf("result = %+v", res)
	}
	if res.ImagePrompt != "" {
		t.Errorf("image prompt = %q, want none when reusing a post picture", res.ImagePrompt)
	}
}

func TestStudio_ReuseWithoutMediaFallsBackToGeneration(t *testing.T) {
	srv := imageServer(t, http.StatusOK)
	images, _ := NewImageGenerator(ImageConfig{APIKey: "k", BaseURL: srv.URL})
	s := NewStudio(NewGenerator(&stubWriter{answer: `{"text":"t","image_prompt":"p"}`}, nil, nil), images, nil)

	res, err := s.Create(context.Background(), testDigest(post("text", 10, 0)), Options{WithImage: true, ReusePostImage: true})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if res.ImageSource != ImageSourceGenerated {
		t.Errorf("image source = %q, want generated", res.ImageSource)
	}
}

func TestStudio_TextOnly(t *testing.T) {
	s := NewStudio(NewGenerator(&stubWriter{answer: "just text"}, nil, nil), nil, nil)
	res, err := s.Create(context.Background(), testDigest(), Options{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if res.Text != "just text" || res.HasImage() || res.ImageError != "" {
		t.Errorf("result = %+v", res)
	}
}
