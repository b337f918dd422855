// Package templates renders the transactional emails sent by the email worker.
package templates

import (
	"bytes"
	"embed"
	"fmt"
	htmpl "html/template"
	"strings"
	texttpl "text/template"
)

//go:embed *.tmpl
var FS embed.FS

const Welcome = "welcome"

var subjects = map[string]string{
	Welcome: "Welcome to {{ .AppName | default \"Postboard\" }}",
}

var funcs = map[string]any{
	"default": func(fallback string, value any) string {
		s, _ := value.(string)
		if strings.TrimSpace(s) == "" {
			return fallback
		}
		return s
	},
}

// WelcomeData builds the data map for the welcome template.
func WelcomeData(appName, email string) map[string]any {
	return map[string]any{"AppName": appName, "Email": email}
}

// Render renders subject, text and HTML bodies for a named template.
func Render(name string, data map[string]any) (subject, text, html string, err error) {
	subjectTpl, ok := subjects[name]
	if !ok {
		return "", "", "", fmt.Errorf("unknown email template %q", name)
	}
	if data == nil {
		data = map[string]any{}
	}

	subject, err = renderText(name+".subject", subjectTpl, data)
	if err != nil {
		return "", "", "", err
	}
	textSrc, err := FS.ReadFile(name + ".txt.tmpl")
	if err != nil {
		return "", "", "", err
	}
	text, err = renderText(name+".txt", string(textSrc), data)
	if err != nil {
		return "", "", "", err
	}

	h, err := htmpl.New(name+".html.tmpl").Funcs(funcs).ParseFS(FS, name+".html.tmpl")
	if err != nil {
		return "", "", "", err
	}
	var buf bytes.Buffer
	if err := h.Execute(&buf, data); err != nil {
		return "", "", "", err
	}
	return subject, text, buf.String(), nil
}

func renderText(name, src string, data map[string]any) (string, error) {
	t, err := texttpl.New(name).Funcs(funcs).Parse(src)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}
