package utils

import "testing"

func TestNormalizeURL(t *testing.T) {
	normalized, domain, err := NormalizeURL("https://Example.com/path?utm_source=test&x=1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if domain != "example.com" {
		t.Fatalf("unexpected domain: %s", domain)
	}
	if normalized != "https://example.com/path?x=1" {
		t.Fatalf("unexpected normalized url: %s", normalized)
	}
}

func TestNormalizeURLPunycode(t *testing.T) {
	_, domain, err := NormalizeURL("bücher.example/x")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if domain != "xn--bcher-kva.example" {
		t.Fatalf("unexpected domain: %s", domain)
	}
}

func TestHasLink(t *testing.T) {
	cases := map[string]bool{
		"see https://example.com/docs":  true,
		"plain text":                    false,
		"broken https:// nothing there": false,
		"http://localhost":              false,
	}
	for content, want := range cases {
		if got := HasLink(content); got != want {
			t.Fatalf("HasLink(%q) = %v, want %v", content, got, want)
		}
	}
}
