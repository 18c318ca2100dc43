package view

import (
	"embed"
	"html/template"
	"io"
)

//go:embed templates/page.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/page.html"))

type pageData struct {
	Title string
	Page  PageView
}

// Render writes the HTML page for the view.
func Render(w io.Writer, title string, page PageView) error {
	return pageTemplate.Execute(w, pageData{Title: title, Page: page})
}
