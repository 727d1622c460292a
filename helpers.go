package spacetraveling

import (
	"net/url"
	"path"
	"strings"
)

// BuildURL joins a base URL with path segments. Post URLs carry no trailing
// slash, matching the /post/:uid route.
func BuildURL(base string, pathSegments ...string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	u.Path = path.Join(u.Path, path.Join(pathSegments...))
	if u.Path == "" || u.Path == "." {
		u.Path = "/"
	}
	return u.String()
}

func robotsTxt(base string) string {
	var b strings.Builder
	b.WriteString("User-agent: *\n")
	b.WriteString("Allow: /\n")
	b.WriteString("Disallow: /api/\n")
	b.WriteString("\nSitemap: " + BuildURL(base, "sitemap.xml") + "\n")
	return b.String()
}
