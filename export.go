package spacetraveling

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"

	"github.com/a-h/templ"
	"golang.org/x/sync/errgroup"

	"github.com/eringen/spacetraveling/comments"
	"github.com/eringen/spacetraveling/listing"
)

// Export renders the site as static files under dir: the listing at
// index.html, every post at post/<uid>/index.html, the feed, the sitemap,
// robots.txt and the embedded assets. Pages are rendered outside preview mode
// with comments enabled. It returns the number of post pages written.
func (a *App) Export(ctx context.Context, dir string) (int, error) {
	first, err := listing.FirstPage(ctx, a.Repo, a.Config.PageSize, "")
	if err != nil {
		return 0, err
	}
	w := listing.NewWalker(a.Repo, first)
	if err := writeComponent(ctx, filepath.Join(dir, "index.html"), a.Views.Home(a.Site, listing.PageOf(w))); err != nil {
		return 0, err
	}

	uids, err := listing.AllUIDs(ctx, a.Repo)
	if err != nil {
		return 0, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for _, uid := range uids {
		g.Go(func() error {
			d, err := a.Details.Load(gctx, uid, "")
			if err != nil {
				return err
			}
			page := a.Views.Post(a.Site, d, comments.Widget(a.Config.Comments))
			return writeComponent(gctx, filepath.Join(dir, "post", uid, "index.html"), page)
		})
	}
	if err := g.Wait(); err != nil {
		return 0, fmt.Errorf("export posts: %w", err)
	}

	recent, err := listing.Recent(ctx, a.Repo, feedSize)
	if err != nil {
		return 0, err
	}
	if err := writeFile(filepath.Join(dir, "feed.xml"), func(w io.Writer) error {
		return writeRSS(w, a.Config, recent)
	}); err != nil {
		return 0, err
	}
	if err := writeFile(filepath.Join(dir, "sitemap.xml"), func(w io.Writer) error {
		return writeSitemap(w, a.Config.URL, uids)
	}); err != nil {
		return 0, err
	}
	if err := writeFile(filepath.Join(dir, "robots.txt"), func(w io.Writer) error {
		_, err := io.WriteString(w, robotsTxt(a.Config.URL))
		return err
	}); err != nil {
		return 0, err
	}
	if err := exportAssets(filepath.Join(dir, "public")); err != nil {
		return 0, err
	}
	return len(uids), nil
}

func writeComponent(ctx context.Context, name string, cmp templ.Component) error {
	return writeFile(name, func(w io.Writer) error {
		return cmp.Render(ctx, w)
	})
}

// writeFile renders into memory and writes name only on success.
func writeFile(name string, render func(io.Writer) error) error {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}
	if err := os.MkdirAll(filepath.Dir(name), 0o755); err != nil {
		return err
	}
	return os.WriteFile(name, buf.Bytes(), 0o644)
}

func exportAssets(dir string) error {
	for _, name := range embeddedAssetNames {
		data, err := fs.ReadFile(EmbeddedAssets, "embedded/"+name)
		if err != nil {
			return err
		}
		if err := writeFile(filepath.Join(dir, name), func(w io.Writer) error {
			_, err := w.Write(data)
			return err
		}); err != nil {
			return err
		}
	}
	return nil
}
