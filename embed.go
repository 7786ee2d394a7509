package folio

import "embed"

// EmbeddedAssets holds the fallback favicon served when the static dir has
// none.
//
//go:embed embedded/*
var EmbeddedAssets embed.FS
