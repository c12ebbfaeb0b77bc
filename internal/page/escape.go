package page

import "html/template"

// EscapeHTML returns text in a form that is displayed verbatim when inserted into
// HTML markup: no tag, entity or attribute delimiter in text stays live.
func EscapeHTML(text string) string {
	return template.HTMLEscapeString(text)
}
