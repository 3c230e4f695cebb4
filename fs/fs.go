// Package appfs embeds the files the binaries need at runtime:
// SQL migrations, email templates, the quiz bank and the sample catalog.
package appfs

import "embed"

//go:embed migrations assets
var FS embed.FS
