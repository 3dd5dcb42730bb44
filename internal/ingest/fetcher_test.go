package ingest

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alterego-ai/alterego/internal/model"
)

func testHTTPConfig() model.HTTPConfig {
	return model.HTTPConfig{
		Timeout:      5 * time.Second,
		UserAgent:    "AlterEgo/0.1 (+https://github.com/alterego-ai/alterego)",
		MaxBodyBytes: 1_000_000,
	}
}

func TestFetchURLHTML(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/robots.txt":
			http.NotFound(w, r)
		case "/profile/jane-doe":
			if ua := r.Header.Get("User-Agent"); !strings.HasPrefix(ua, "AlterEgo/") {
				t.Errorf("Expected AlterEgo user agent, got %q", ua)
			}
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			fmt.Fprint(w, `<html><head><title>Jane's Page</title></head>
<body><script>analytics()</script><p>I am 24 and work as a nurse.</p></body></html>`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	fetcher := NewFetcher(testHTTPConfig())

	doc, err := fetcher.FetchURL(context.Background(), server.URL+"/profile/jane-doe")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if !strings.Contains(doc.Text, "I am 24 and work as a nurse.") {
		t.Errorf("Expected visible text, got %q", doc.Text)
	}
	if strings.Contains(doc.Text, "analytics") {
		t.Errorf("Expected script content excluded, got %q", doc.Text)
	}
	if doc.Subject != "Jane's Page" {
		t.Errorf("Expected title as subject, got %q", doc.Subject)
	}
	if doc.Source != server.URL+"/profile/jane-doe" {
		t.Errorf("Expected final URL as source, got %q", doc.Source)
	}
}

func TestFetchURLPlainText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		fmt.Fprint(w, "just plain text")
	}))
	defer server.Close()

	fetcher := NewFetcher(testHTTPConfig())

	doc, err := fetcher.FetchURL(context.Background(), server.URL+"/notes.txt")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if doc.Text != "just plain text" {
		t.Errorf("Expected raw body, got %q", doc.Text)
	}
	if doc.Subject != "notes" {
		t.Errorf("Expected subject from path, got %q", doc.Subject)
	}
}

func TestFetchURLRobotsDisallowed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			fmt.Fprint(w, "User-agent: *\nDisallow: /private/")
			return
		}
		fmt.Fprint(w, "should never be served")
	}))
	defer server.Close()

	fetcher := NewFetcher(testHTTPConfig())

	_, err := fetcher.FetchURL(context.Background(), server.URL+"/private/diary")
	if err == nil {
		t.Fatal("Expected robots.txt denial")
	}
	if !strings.Contains(err.Error(), "robots.txt") {
		t.Errorf("Expected robots error, got %v", err)
	}
}

func TestFetchURLErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	fetcher := NewFetcher(testHTTPConfig())

	if _, err := fetcher.FetchURL(context.Background(), server.URL+"/broken"); err == nil {
		t.Error("Expected error for 500 response")
	}
}

func TestFetchURLBodyLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		fmt.Fprint(w, strings.Repeat("x", 1000))
	}))
	defer server.Close()

	cfg := testHTTPConfig()
	cfg.MaxBodyBytes = 100
	fetcher := NewFetcher(cfg)

	doc, err := fetcher.FetchURL(context.Background(), server.URL+"/big")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(doc.Text) != 100 {
		t.Errorf("Expected body truncated to 100 bytes, got %d", len(doc.Text))
	}
}
