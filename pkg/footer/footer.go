package footer

import (
	"bytes"
	"errors"
	"html/template"
	"strings"
)

// ErrMissingBrand indicates a footer without a brand label.
var ErrMissingBrand = errors.New("footer: brand label is required")

// Link is one entry of the footer link row.
type Link struct {
	Label string
	URL   string
}

// Config captures the markup and style hooks required to render the footer.
type Config struct {
	ElementID  string
	BaseClass  string
	InnerClass string
	LinkClass  string
	BrandLabel string
	BrandURL   string
	Year       int
	Links      []Link
}

var footerTemplate = template.Must(template.New("footer").Parse(`<footer id="{{.ElementID}}" class="{{.BaseClass}}">
  <div class="{{.InnerClass}}">
    <span>&copy; {{if .Year}}{{.Year}} {{end}}{{if .BrandURL}}<a class="{{.LinkClass}}" href="{{.BrandURL}}">{{.BrandLabel}}</a>{{else}}{{.BrandLabel}}{{end}}</span>
    {{range .Links}}<a class="{{$.LinkClass}}" href="{{.URL}}" target="_blank" rel="noopener noreferrer">{{.Label}}</a>
    {{end}}
  </div>
</footer>`))

// Render returns the footer HTML for the provided configuration.
func Render(config Config) (template.HTML, error) {
	if strings.TrimSpace(config.BrandLabel) == "" {
		return "", ErrMissingBrand
	}
	var buffer bytes.Buffer
	if executeErr := footerTemplate.Execute(&buffer, config); executeErr != nil {
		return "", executeErr
	}
	return template.HTML(buffer.String()), nil
}
