package notification

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"

	"github.com/garyjia/shared-staff/internal/application/port"
)

//go:embed templates/*.html templates/*.txt
var templateFS embed.FS

var knownParams = []string{
	port.ParamStaffName, port.ParamWeekStart, port.ParamWeekEnd, port.ParamDecidedBy,
	port.ParamComment, port.ParamMonth, port.ParamReportRef,
}

// Templates lists every template the renderer loads
var Templates = []string{
	port.TemplateReportSubmitted,
	port.TemplateReportApproved,
	port.TemplateReportRejected,
	port.TemplateWeeklyReminder,
	port.TemplateClosureClosed,
}

// Message is a rendered notification
type Message struct {
	Subject string
	Text    string
	HTML    string
}

type templateSet struct {
	text *texttemplate.Template
	html *htmltemplate.Template
}

// Renderer renders the embedded notification templates
type Renderer struct {
	sets map[string]templateSet
}

// NewRenderer parses the embedded templates
func NewRenderer() (*Renderer, error) {
	r := &Renderer{sets: make(map[string]templateSet, len(Templates))}

	for _, name := range Templates {
		txt, err := texttemplate.ParseFS(templateFS, "templates/"+name+".txt")
		if err != nil {
			return nil, fmt.Errorf("parse text template %s: %w", name, err)
		}
		html, err := htmltemplate.ParseFS(templateFS, "templates/footer.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse html template %s: %w", name, err)
		}
		r.sets[name] = templateSet{text: txt, html: html}
	}

	return r, nil
}

// Render produces the subject, plain text and HTML bodies of a template.
// Unknown template names are an error; missing params render empty.
func (r *Renderer) Render(name string, params map[string]interface{}) (*Message, error) {
	set, ok := r.sets[name]
	if !ok {
		return nil, fmt.Errorf("unknown template: %s", name)
	}

	data := make(map[string]interface{}, len(knownParams)+len(params))
	for _, key := range knownParams {
		data[key] = ""
	}
	for k, v := range params {
		data[k] = v
	}

	var subject, text, html bytes.Buffer
	if err := set.text.ExecuteTemplate(&subject, "subject", data); err != nil {
		return nil, fmt.Errorf("render subject %s: %w", name, err)
	}
	if err := set.text.ExecuteTemplate(&text, "text", data); err != nil {
		return nil, fmt.Errorf("render text %s: %w", name, err)
	}
	if err := set.html.ExecuteTemplate(&html, "body", data); err != nil {
		return nil, fmt.Errorf("render html %s: %w", name, err)
	}

	return &Message{
		Subject: strings.TrimSpace(subject.String()),
		Text:    strings.TrimSpace(text.String()),
		HTML:    html.String(),
	}, nil
}
