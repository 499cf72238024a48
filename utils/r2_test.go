package utils

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"mock-assessment-service/config"
)

func TestDisabledR2Client(t *testing.T) {
	r, err := NewR2Client(context.Background(), config.StorageConfig{})
	if err != nil {
		t.Fatalf("NewR2Client() error = %v", err)
	}
	if r.Enabled() {
		t.Fatal("client without bucket reports enabled")
	}
	if _, _, err := r.PresignUpload(context.Background(), "k", "image/png"); !errors.Is(err, ErrStorageDisabled) {
		t.Errorf("PresignUpload() error = %v, want ErrStorageDisabled", err)
	}
	if err := r.DeleteByURL(context.Background(), "https://cdn.example/k"); err != nil {
		t.Errorf("DeleteByURL() error = %v, want nil", err)
	}
}

func newTestClient(t *testing.T, cdn string) *R2Client {
	t.Helper()
	r, err := NewR2Client(context.Background(), config.StorageConfig{
		Endpoint:        "http://localhost:9000",
		AccessKeyID:     "key",
		AccessKeySecret: "secret",
		Bucket:          "assets",
		CDNBaseURL:      cdn,
		PresignTTL:      5 * time.Minute,
	})
	if err != nil {
		t.Fatalf("NewR2Client() error = %v", err)
	}
	return r
}

func TestPresignUpload(t *testing.T) {
	r := newTestClient(t, "https://cdn.example/")
	upload, public, err := r.PresignUpload(context.Background(), "assessments/go-1/logo.png", "image/png")
	if err != nil {
		t.Fatalf("PresignUpload() error = %v", err)
	}
	if !strings.HasPrefix(upload, "http://localhost:9000/assets/assessments/go-1/logo.png?") {
		t.Errorf("upload URL = %q", upload)
	}
	if !strings.Contains(upload, "X-Amz-Expires=300") {
		t.Errorf("upload URL %q does not carry the configured expiry", upload)
	}
	if public != "https://cdn.example/assessments/go-1/logo.png" {
		t.Errorf("public URL = %q", public)
	}
}

func TestKeyFromURL(t *testing.T) {
	tests := []struct {
		name    string
		cdn     string
		url     string
		wantKey string
		wantOK  bool
	}{
		{"cdn url", "https://cdn.example", "https://cdn.example/assessments/a/logo.png", "assessments/a/logo.png", true},
		{"foreign url", "https://cdn.example", "https://elsewhere.example/logo.png", "", false},
		{"bare base", "https://cdn.example", "https://cdn.example/", "", false},
		{"endpoint fallback", "", "http://localhost:9000/assets/x.png", "x.png", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, ok := newTestClient(t, tt.cdn).KeyFromURL(tt.url)
			if key != tt.wantKey || ok != tt.wantOK {
				t.Errorf("KeyFromURL(%q) = %q, %v, want %q, %v", tt.url, key, ok, tt.wantKey, tt.wantOK)
			}
		})
	}
}
