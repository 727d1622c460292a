// Package comments embeds the utterances comment widget on post pages.
//
// The widget is a third-party script bound to a mount node. Hosts expose the
// attach/detach capability; Embed guarantees a single script per mount.
package comments

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/a-h/templ"
)

// ScriptURL is the utterances client script.
const ScriptURL = "https://utteranc.es/client.js"

// DefaultMountID is the id of the node the widget is attached to.
const DefaultMountID = "commentsBox"

// Config is the static widget configuration.
type Config struct {
	Repo      string // GitHub "owner/name" holding the comment issues
	IssueTerm string // issue-matching strategy: pathname, url, title, og:title
	Label     string // label applied to created issues
	Theme     string // widget theme, e.g. github-dark
}

// DefaultConfig returns the stock configuration for repo.
func DefaultConfig(repo string) Config {
	return Config{Repo: repo, IssueTerm: "title", Label: "blog-comment", Theme: "github-dark"}
}

// Enabled reports whether comments are configured at all.
func (c Config) Enabled() bool { return c.Repo != "" }

// Validate checks that the configuration can produce a working widget.
func (c Config) Validate() error {
	owner, name, ok := strings.Cut(c.Repo, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return fmt.Errorf("comments: repo %q must be owner/name", c.Repo)
	}
	if c.IssueTerm == "" {
		return errors.New("comments: issue term is required")
	}
	return nil
}

// Host attaches the widget script to a document.
type Host interface {
	AttachEmbed(mountID string, cfg Config) error
	DetachEmbed() error
}

// Embed removes any existing widget from host and attaches a fresh one.
// Calling it again on re-render leaves exactly one instance.
func Embed(host Host, mountID string, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := host.DetachEmbed(); err != nil {
		return fmt.Errorf("comments: detach: %w", err)
	}
	if err := host.AttachEmbed(mountID, cfg); err != nil {
		return fmt.Errorf("comments: attach: %w", err)
	}
	return nil
}

// Fragment is a server-side Host: it holds at most one attached widget and
// renders it as an HTML fragment.
type Fragment struct {
	mu      sync.Mutex
	mountID string
	cfg     *Config
}

// AttachEmbed records the widget. Attaching twice without a detach is an error.
func (f *Fragment) AttachEmbed(mountID string, cfg Config) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cfg != nil {
		return errors.New("widget already attached")
	}
	if mountID == "" {
		mountID = DefaultMountID
	}
	f.mountID = mountID
	f.cfg = &cfg
	return nil
}

// DetachEmbed removes the widget if present.
func (f *Fragment) DetachEmbed() error {
	f.mu.Lock()
	f.cfg = nil
	f.mu.Unlock()
	return nil
}

// Attached reports whether a widget is attached.
func (f *Fragment) Attached() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cfg != nil
}

// Component renders the mount node and, when attached, the widget script.
func (f *Fragment) Component() templ.Component {
	f.mu.Lock()
	mountID, cfg := f.mountID, f.cfg
	f.mu.Unlock()
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if mountID == "" {
			mountID = DefaultMountID
		}
		var b strings.Builder
		b.WriteString(`<div id="` + templ.EscapeString(mountID) + `" class="comments">`)
		if cfg != nil {
			b.WriteString(`<script src="` + ScriptURL + `"`)
			writeAttr(&b, "repo", cfg.Repo)
			writeAttr(&b, "issue-term", cfg.IssueTerm)
			if cfg.Label != "" {
				writeAttr(&b, "label", cfg.Label)
			}
			if cfg.Theme != "" {
				writeAttr(&b, "theme", cfg.Theme)
			}
			b.WriteString(` crossorigin="anonymous" async></script>`)
		}
		b.WriteString(`</div>`)
		_, err := io.WriteString(w, b.String())
		return err
	})
}

func writeAttr(b *strings.Builder, name, value string) {
	b.WriteString(" " + name + `="` + templ.EscapeString(value) + `"`)
}

// Widget renders the comment widget for cfg, or nothing when comments are
// disabled or the configuration is invalid.
func Widget(cfg Config) templ.Component {
	if !cfg.Enabled() {
		return templ.NopComponent
	}
	f := &Fragment{}
	if err := Embed(f, DefaultMountID, cfg); err != nil {
		return templ.NopComponent
	}
	return f.Component()
}
