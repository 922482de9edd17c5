// Package web embeds the storefront's HTML templates.
package web

import "embed"

//go:embed templates/*.html
var Templates embed.FS
