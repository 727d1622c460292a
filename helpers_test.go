package spacetraveling

import (
	"strings"
	"testing"
)

func TestBuildURL(t *testing.T) {
	tests := []struct {
		base string
		segs []string
		want string
	}{
		{"https://blog.example.com", nil, "https://blog.example.com/"},
		{"https://blog.example.com/", []string{"post", "hello"}, "https://blog.example.com/post/hello"},
		{"https://blog.example.com/sub", []string{"feed.xml"}, "https://blog.example.com/sub/feed.xml"},
		{"://bad", []string{"x"}, "://bad"},
	}
	for _, tt := range tests {
		if got := BuildURL(tt.base, tt.segs...); got != tt.want {
			t.Errorf("BuildURL(%q, %v) = %q, want %q", tt.base, tt.segs, got, tt.want)
		}
	}
}

func TestRobotsTxt(t *testing.T) {
	got := robotsTxt("https://blog.example.com")
	if !strings.HasPrefix(got, "User-agent: *\n") {
		t.Fatalf("robots.txt should start with the user agent line, got %q", got)
	}
	if !strings.Contains(got, "Sitemap: https://blog.example.com/sitemap.xml\n") {
		t.Fatalf("robots.txt should point at the sitemap, got %q", got)
	}
}

func TestSiteConfigDefaults(t *testing.T) {
	var cfg SiteConfig
	cfg.setDefaults()
	if cfg.Name != "spacetraveling" || cfg.Addr != ":3000" || cfg.PageSize != 2 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.PostRevalidate.Seconds() != 3600 {
		t.Fatalf("PostRevalidate = %v, want 1h", cfg.PostRevalidate)
	}
	if cfg.location() == nil {
		t.Fatalf("location should never be nil")
	}

	cfg.Timezone = "Not/AZone"
	if cfg.location().String() != "UTC" {
		t.Fatalf("unknown zone should fall back to UTC, got %s", cfg.location())
	}
}
