// Package web embeds the server-rendered page.
package web

import (
	"embed"
	"html/template"
	"strconv"
)

//go:embed templates/*.html
var files embed.FS

// Templates holds every page template, keyed by file name.
var Templates = template.Must(template.New("").Funcs(template.FuncMap{
	"percent": Percent,
}).ParseFS(files, "templates/*.html"))

// Percent formats an optional average for display.
func Percent(v *float64) string {
	if v == nil {
		return "no data"
	}
	return strconv.FormatFloat(*v, 'f', 2, 64) + "%"
}
