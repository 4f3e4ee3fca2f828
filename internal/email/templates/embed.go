package templates

import "embed"

// FS holds the HTML bodies of every outgoing email, parsed once at startup.
//
//go:embed *.html
var FS embed.FS
