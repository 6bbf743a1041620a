// Package templates embeds the HTML pages served by the app and ops
// handlers.
package templates

import "embed"

//go:embed index.html ops.html
var FS embed.FS
