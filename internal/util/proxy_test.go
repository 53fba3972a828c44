package util

import (
	"net/http"
	"testing"
	"time"
)

func TestProxyFunc_ByScheme(t *testing.T) {
	proxy, err := ProxyFunc("http://proxy.local:3128", "http://secure.local:3129")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req, _ := http.NewRequest(http.MethodGet, "https://api.openai.com/v1/audio/transcriptions", nil)
	u, err := proxy(req)
	if err != nil || u.Host != "secure.local:3129" {
		t.Errorf("expected https proxy, got %v (%v)", u, err)
	}

	req, _ = http.NewRequest(http.MethodGet, "http://localhost:8080", nil)
	u, err = proxy(req)
	if err != nil || u.Host != "proxy.local:3128" {
		t.Errorf("expected http proxy, got %v (%v)", u, err)
	}
}

func TestProxyFunc_HTTPProxyServesHTTPS(t *testing.T) {
	proxy, err := ProxyFunc("http://proxy.local:3128", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req, _ := http.NewRequest(http.MethodGet, "https://example.com", nil)
	u, _ := proxy(req)
	if u == nil || u.Host != "proxy.local:3128" {
		t.Errorf("expected http proxy for https without https proxy, got %v", u)
	}
}

func TestProxyFunc_InvalidURL(t *testing.T) {
	if _, err := ProxyFunc("://bad", ""); err == nil {
		t.Error("expected parse error")
	}
}

func TestNewHTTPClient(t *testing.T) {
	client, err := NewHTTPClient(5*time.Second, "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.Timeout != 5*time.Second {
		t.Errorf("expected 5s timeout, got %v", client.Timeout)
	}
	if _, ok := client.Transport.(*http.Transport); !ok {
		t.Errorf("expected *http.Transport, got %T", client.Transport)
	}
}
