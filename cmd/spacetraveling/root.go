package main

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/eringen/spacetraveling"
	"github.com/eringen/spacetraveling/comments"
	"github.com/eringen/spacetraveling/content"
	"github.com/eringen/spacetraveling/localstore"
	"github.com/eringen/spacetraveling/prismic"
)

const (
	driverPrismic = "prismic"
	driverSQLite  = "sqlite"
)

var rootCmd = &cobra.Command{
	Use:   "spacetraveling",
	Short: "Blog front-end over the Prismic content API",
	Long: `spacetraveling serves a blog whose posts live in Prismic, or in a local
SQLite database for development. It can also export the site as static HTML.

Configuration is read from the environment (and an optional .env file):
  PRISMIC_API_ENDPOINT   e.g. https://your-repo.cdn.prismic.io/api/v2
  PRISMIC_ACCESS_TOKEN   access token for private repositories
  CONTENT_DRIVER         prismic (default) or sqlite
  DATABASE_PATH          SQLite path for the sqlite driver
  SESSION_SECRET         preview session secret (required by serve)`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	viper.SetDefault("site_name", "spacetraveling")
	viper.SetDefault("site_url", "http://localhost:3000")
	viper.SetDefault("site_timezone", "America/Sao_Paulo")
	viper.SetDefault("addr", ":3000")
	viper.SetDefault("content_driver", driverPrismic)
	viper.SetDefault("database_path", "data/content.db")
	viper.SetDefault("page_size", 2)
	viper.SetDefault("listing_revalidate", time.Minute)
	viper.SetDefault("post_revalidate", time.Hour)
	viper.SetDefault("comments_repo", "")
	viper.SetDefault("comments_issue_term", "title")
	viper.SetDefault("comments_label", "blog-comment")
	viper.SetDefault("comments_theme", "github-dark")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	rootCmd.PersistentFlags().String("driver", "", "content driver: prismic or sqlite")
	rootCmd.PersistentFlags().String("db", "", "SQLite database path for the sqlite driver")
	_ = viper.BindPFlag("content_driver", rootCmd.PersistentFlags().Lookup("driver"))
	_ = viper.BindPFlag("database_path", rootCmd.PersistentFlags().Lookup("db"))
}

func siteConfig() spacetraveling.SiteConfig {
	return spacetraveling.SiteConfig{
		Name:              viper.GetString("site_name"),
		URL:               viper.GetString("site_url"),
		Description:       viper.GetString("site_description"),
		Timezone:          viper.GetString("site_timezone"),
		Addr:              viper.GetString("addr"),
		PageSize:          viper.GetInt("page_size"),
		ListingRevalidate: viper.GetDuration("listing_revalidate"),
		PostRevalidate:    viper.GetDuration("post_revalidate"),
		SessionSecret:     viper.GetString("session_secret"),
		CookieSecure:      viper.GetBool("cookie_secure"),
		Comments: comments.Config{
			Repo:      viper.GetString("comments_repo"),
			IssueTerm: viper.GetString("comments_issue_term"),
			Label:     viper.GetString("comments_label"),
			Theme:     viper.GetString("comments_theme"),
		},
	}
}

// openRepository builds the configured content repository. The returned
// closer releases it and is never nil.
func openRepository() (content.Repository, func() error, error) {
	switch driver := viper.GetString("content_driver"); driver {
	case driverPrismic:
		endpoint := viper.GetString("prismic_api_endpoint")
		if endpoint == "" {
			return nil, nil, fmt.Errorf("PRISMIC_API_ENDPOINT is required for the %s driver", driverPrismic)
		}
		client, err := prismic.New(endpoint,
			prismic.WithAccessToken(viper.GetString("prismic_access_token")),
			prismic.WithUserAgent("spacetraveling/"+version),
		)
		if err != nil {
			return nil, nil, err
		}
		return client, func() error { return nil }, nil
	case driverSQLite:
		store, err := openStore()
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown content driver %q", driver)
	}
}

func openStore() (*localstore.Store, error) {
	store, err := localstore.NewStore(viper.GetString("database_path"))
	if err != nil {
		return nil, fmt.Errorf("open content database: %w", err)
	}
	return store, nil
}
