package static

import "embed"

// FS exposes the front-end assets served under /static/.
//
//go:embed *.html *.css *.js
var FS embed.FS
