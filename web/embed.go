// Package web holds the server-rendered templates, compiled into the binary.
package web

import "embed"

// Templates contains templates/layout.html, templates/partials/*.html and
// templates/pages/*.html.
//
//go:embed templates
var Templates embed.FS
