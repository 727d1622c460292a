package views

import (
	"time"

	"github.com/a-h/templ"

	"github.com/eringen/spacetraveling/listing"
)

// Home renders the listing page.
func Home(site Site, page listing.Page) templ.Component {
	meta := PageMeta{
		Title:       "Início | " + site.Name,
		Description: site.Description,
		URL:         buildURL(site.URL),
		JSONLD:      WebsiteJsonLD(site),
	}
	body := component(func(h *html) {
		h.raw(`<main class="container"><div class="content"><div class="posts" id="posts">`)
		h.component(PostItems(site, page))
		h.raw(`</div></div></main>`)
	})
	return Layout(site, meta, body)
}

// PostItems renders listing entries followed by the load-more button when
// another page exists. The load-more endpoint returns this fragment alone.
func PostItems(site Site, page listing.Page) templ.Component {
	return component(func(h *html) {
		for _, p := range page.Posts {
			h.raw(`<a class="post"`)
			h.attr("href", "/post/"+PathEscape(p.UID))
			h.raw(`><strong>`)
			h.text(p.Title)
			h.raw(`</strong><p>`)
			h.text(p.Subtitle)
			h.raw(`</p><div class="info">`)
			if !p.PublishedAt.IsZero() {
				h.raw(`<time`)
				h.attr("datetime", p.PublishedAt.UTC().Format(time.RFC3339))
				h.raw(`><span class="icon icon-calendar"></span>`)
				h.text(FormatDate(p.PublishedAt, site.Location))
				h.raw(`</time>`)
			}
			h.raw(`<span><span class="icon icon-user"></span>`)
			h.text(p.Author)
			h.raw(`</span></div></a>`)
		}
		if page.HasMore {
			h.raw(`<button type="button" class="load-more"`)
			h.attr("data-next-page", page.NextPage)
			h.raw(`>Carregar mais posts</button>`)
		}
	})
}

// LoadMoreFailed replaces the load-more button when the next page could not
// be fetched. The button keeps its cursor so the reader can retry.
func LoadMoreFailed(cursor string) templ.Component {
	return component(func(h *html) {
		h.raw(`<p class="load-more-error" role="alert">Não foi possível carregar mais posts.</p>`)
		h.raw(`<button type="button" class="load-more"`)
		h.attr("data-next-page", cursor)
		h.raw(`>Tentar novamente</button>`)
	})
}
