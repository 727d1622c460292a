package views

import (
	"strconv"
	"time"

	"github.com/a-h/templ"

	"github.com/eringen/spacetraveling/detail"
	"github.com/eringen/spacetraveling/richtext"
)

// ExitPreviewPath is the route that leaves preview mode.
const ExitPreviewPath = "/api/exit-preview"

// Post renders a post page. comments is rendered only outside preview mode.
func Post(site Site, d detail.Detail, comments templ.Component) templ.Component {
	p := d.Post
	meta := PageMeta{
		Title:       p.Data.Title + " | " + site.Name,
		Description: p.Data.Title,
		URL:         PostURL(site, p.UID),
		OGType:      "article",
		Image:       p.Data.Banner.URL,
		JSONLD:      BlogPostingJsonLD(site, d),
	}
	body := component(func(h *html) {
		h.raw(`<main>`)
		if p.Data.Banner.URL != "" {
			h.raw(`<div class="banner"><img`)
			h.attr("src", p.Data.Banner.URL)
			h.attr("alt", orDefault(p.Data.Banner.Alt, "banner"))
			h.raw(`/></div>`)
		}

		h.raw(`<article class="container post"><h1>`)
		h.text(p.Data.Title)
		h.raw(`</h1><div class="info">`)
		if published, ok := p.FirstPublished(); ok {
			h.raw(`<time`)
			h.attr("datetime", published.UTC().Format(time.RFC3339))
			h.raw(`><span class="icon icon-calendar"></span>`)
			h.text(FormatDate(published, site.Location))
			h.raw(`</time>`)
		}
		h.raw(`<span><span class="icon icon-user"></span>`)
		h.text(p.Data.Author)
		h.raw(`</span><time><span class="icon icon-clock"></span>`)
		h.text(strconv.Itoa(d.ReadingTime) + " min")
		h.raw(`</time></div>`)

		if d.Edited {
			if edited, ok := p.LastPublished(); ok {
				h.raw(`<span class="edited">* editado em `)
				h.text(FormatDateTime(edited, site.Location))
				h.raw(`</span>`)
			}
		}

		for _, group := range p.Data.Content {
			h.raw(`<section class="post-content"><h2>`)
			h.text(group.Heading)
			h.raw(`</h2><div>`)
			h.component(richtext.Component(group.Body))
			h.raw(`</div></section>`)
		}
		h.raw(`</article>`)

		h.raw(`<footer class="container footer"><div class="navigation"><div>`)
		if d.Prev != nil {
			h.raw(`<a class="previous"`)
			h.attr("href", "/post/"+PathEscape(d.Prev.UID))
			h.raw(`><span>`)
			h.text(d.Prev.Data.Title)
			h.raw(`</span>Post anterior</a>`)
		}
		h.raw(`</div><div>`)
		if d.Next != nil {
			h.raw(`<a class="next"`)
			h.attr("href", "/post/"+PathEscape(d.Next.UID))
			h.raw(`><span>`)
			h.text(d.Next.Data.Title)
			h.raw(`</span>Próximo post</a>`)
		}
		h.raw(`</div></div>`)

		if d.Preview {
			h.raw(`<aside class="exit-preview"><a href="` + ExitPreviewPath + `">Sair do modo Preview</a></aside>`)
		} else {
			h.component(comments)
		}
		h.raw(`</footer></main>`)
	})
	return Layout(site, meta, body)
}
