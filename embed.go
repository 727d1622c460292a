package spacetraveling

import "embed"

// EmbeddedAssets contains static assets shipped with the app:
// loadmore.js, styles.css, logo.svg
//
//go:embed embedded/*
var EmbeddedAssets embed.FS

var embeddedAssetNames = []string{"loadmore.js", "styles.css", "logo.svg"}
