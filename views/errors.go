package views

import "github.com/a-h/templ"

// NotFound renders the 404 page.
func NotFound(site Site) templ.Component {
	return statusPage(site, "Página não encontrada", "O post que você procura não existe ou foi removido.")
}

// ServerError renders the 500 page.
func ServerError(site Site) templ.Component {
	return statusPage(site, "Algo deu errado", "Não foi possível carregar esta página. Tente novamente em instantes.")
}

func statusPage(site Site, title, message string) templ.Component {
	body := component(func(h *html) {
		h.raw(`<main class="container status"><h1>`)
		h.text(title)
		h.raw(`</h1><p>`)
		h.text(message)
		h.raw(`</p><a href="/">Voltar para o início</a></main>`)
	})
	return Layout(site, PageMeta{Title: title + " | " + site.Name}, body)
}
