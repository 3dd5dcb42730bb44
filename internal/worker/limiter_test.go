package worker

import (
	"context"
	"testing"
	"time"
)

func TestLimiterAllow(t *testing.T) {
	limiter := NewLimiter(1, 2)

	url := "http://localhost:11434/api/chat"
	if !limiter.Allow(url) {
		t.Error("Expected first request within burst to be allowed")
	}
	if !limiter.Allow(url) {
		t.Error("Expected second request within burst to be allowed")
	}
	if limiter.Allow(url) {
		t.Error("Expected request over burst to be denied")
	}
}

func TestLimiterPerHost(t *testing.T) {
	limiter := NewLimiter(1, 1)

	if !limiter.Allow("http://localhost:11434/api/chat") {
		t.Error("Expected first host's burst to be available")
	}
	if !limiter.Allow("http://inference.internal:8080/v1/chat/completions") {
		t.Error("Expected second host to have its own budget")
	}
	if limiter.Allow("http://localhost:11434/api/tags") {
		t.Error("Expected same host to share one budget across paths")
	}
}

func TestLimiterWaitHonorsContext(t *testing.T) {
	limiter := NewLimiter(0.1, 1)

	url := "http://localhost:11434/api/chat"
	if err := limiter.Wait(context.Background(), url); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	// Budget exhausted; the next wait should abort with the context
	if err := limiter.Wait(ctx, url); err == nil {
		t.Error("Expected context deadline error")
	}
}

func TestLimiterSetEndpointRate(t *testing.T) {
	limiter := NewLimiter(0.001, 1)
	limiter.SetEndpointRate("localhost:11434", 100, 10)

	url := "http://localhost:11434/api/chat"
	for i := 0; i < 5; i++ {
		if !limiter.Allow(url) {
			t.Fatalf("Expected custom rate to allow request %d", i)
		}
	}
}

func TestLimiterInvalidURL(t *testing.T) {
	limiter := NewLimiter(1, 1)

	if limiter.Allow("://not a url") {
		t.Error("Expected invalid URL to be denied")
	}
}
