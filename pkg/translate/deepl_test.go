package translate

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestDeepLTranslate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/translate" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "DeepL-Auth-Key test-key" {
			t.Errorf("unexpected auth header %q", got)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatal(err)
		}
		if got := r.PostForm.Get("target_lang"); got != "FR" {
			t.Errorf("unexpected target_lang %q", got)
		}
		if got := r.PostForm.Get("text"); got != "hello" {
			t.Errorf("unexpected text %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"translations":[{"text":"bonjour","detected_source_language":"EN"}]}`))
	}))
	defer srv.Close()

	d := NewDeepL("test-key", srv.URL)
	got, err := d.Translate(context.Background(), "hello", "FR")
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	if got != "bonjour" {
		t.Errorf("got %q, want %q", got, "bonjour")
	}
}

func TestDeepLErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	d := NewDeepL("bad-key", srv.URL)
	_, err := d.Translate(context.Background(), "hello", "FR")
	if err == nil {
		t.Fatal("expected error for non-200 response")
	}
	if !errors.Is(err, ErrTranslation) {
		t.Errorf("error should wrap ErrTranslation, got %v", err)
	}
}

func TestDeepLEmptyTranslations(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"translations":[]}`))
	}))
	defer srv.Close()

	d := NewDeepL("test-key", srv.URL)
	if _, err := d.Translate(context.Background(), "hello", "FR"); !errors.Is(err, ErrTranslation) {
		t.Errorf("expected ErrTranslation for empty result, got %v", err)
	}
}

func TestNewUnknownProvider(t *testing.T) {
	if _, err := New(Config{Provider: "babelfish"}); err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestNewDefaultsToDeepL(t *testing.T) {
	tr, err := New(Config{APIKey: "k"})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := tr.(*DeepL); !ok {
		t.Errorf("empty provider should default to DeepL, got %T", tr)
	}
}
