// Package help holds the user guide shown by the web and terminal front ends.
package help

import (
	_ "embed"
)

//go:embed help.md
var markdown string

// Markdown returns the guide as Markdown source.
func Markdown() string { return markdown }
