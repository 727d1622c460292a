package views

import "github.com/a-h/templ"

// Layout wraps body in the document shell shared by every page.
func Layout(site Site, meta PageMeta, body templ.Component) templ.Component {
	return component(func(h *html) {
		title := orDefault(meta.Title, site.Name)
		description := orDefault(meta.Description, site.Description)
		ogType := orDefault(meta.OGType, "website")

		h.raw(`<!DOCTYPE html><html lang="pt-BR"><head><meta charset="utf-8"/>`)
		h.raw(`<meta name="viewport" content="width=device-width, initial-scale=1"/>`)
		h.raw(`<title>`)
		h.text(title)
		h.raw(`</title>`)
		if description != "" {
			h.raw(`<meta name="description"`)
			h.attr("content", description)
			h.raw(`/>`)
		}
		if meta.URL != "" {
			h.raw(`<link rel="canonical"`)
			h.attr("href", meta.URL)
			h.raw(`/><meta property="og:url"`)
			h.attr("content", meta.URL)
			h.raw(`/>`)
		}
		h.raw(`<meta property="og:title"`)
		h.attr("content", title)
		h.raw(`/><meta property="og:type"`)
		h.attr("content", ogType)
		h.raw(`/>`)
		if meta.Image != "" {
			h.raw(`<meta property="og:image"`)
			h.attr("content", meta.Image)
			h.raw(`/>`)
		}
		h.raw(`<link rel="icon" type="image/svg+xml" href="/favicon.svg"/>`)
		h.raw(`<link rel="alternate" type="application/rss+xml" href="/feed.xml"`)
		h.attr("title", site.Name)
		h.raw(`/>`)
		h.raw(`<link rel="stylesheet" href="/public/styles.css"/>`)
		if meta.JSONLD != "" {
			// json.Marshal escapes <, > and &, so the payload cannot close the tag.
			h.raw(`<script type="application/ld+json">`, meta.JSONLD, `</script>`)
		}
		h.raw(`<script src="/public/loadmore.js" defer></script>`)
		h.raw(`</head><body>`)
		header(h, site)
		h.component(body)
		h.raw(`</body></html>`)
	})
}

func header(h *html, site Site) {
	h.raw(`<header class="header"><div class="container"><a href="/" class="logo">`)
	h.raw(`<img src="/public/logo.svg"`)
	h.attr("alt", site.Name)
	h.raw(`/></a></div></header>`)
}
