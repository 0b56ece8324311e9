package notifications

import (
	"bytes"
	"embed"
	"fmt"
	"html"
	"strings"
	"text/template"
	"time"

	"github.com/bissquit/comment-notifications/internal/domain"
	"github.com/bissquit/comment-notifications/internal/pkg/i18n"
	"golang.org/x/text/language"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

const newCommentTemplate = "new_comment"

// EmailData is the template input of a new comment notification.
type EmailData struct {
	Title           string
	AuthorName      string
	Body            string
	CreatedAt       time.Time
	UnsubscribeLink string
}

// Renderer renders notification emails from templates.
type Renderer struct {
	templates map[string]*template.Template
}

// NewRenderer creates a new renderer and loads all templates.
func NewRenderer() (*Renderer, error) {
	funcMap := template.FuncMap{
		"formatTime": formatTime,
	}

	r := &Renderer{
		templates: make(map[string]*template.Template),
	}

	filename := fmt.Sprintf("templates/%s.tmpl", newCommentTemplate)
	content, err := templatesFS.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("read template %s: %w", filename, err)
	}

	tmpl, err := template.New(newCommentTemplate).Funcs(funcMap).Parse(string(content))
	if err != nil {
		return nil, fmt.Errorf("parse template %s: %w", newCommentTemplate, err)
	}
	r.templates[newCommentTemplate] = tmpl

	return r, nil
}

// RenderNewComment renders the subject and body announcing comment on item.
// The title is HTML-escaped in the subject only.
func (r *Renderer) RenderNewComment(
	lang language.Tag,
	item *domain.ContentItem,
	comment *domain.Comment,
	unsubscribeLink string,
) (subject, body string, err error) {
	subject = Subject(lang, item.Title)

	tmpl, ok := r.templates[newCommentTemplate]
	if !ok {
		return "", "", fmt.Errorf("template not found: %s", newCommentTemplate)
	}

	data := EmailData{
		Title:           item.Title,
		AuthorName:      comment.AuthorName,
		Body:            comment.Body,
		CreatedAt:       comment.CreatedAt,
		UnsubscribeLink: unsubscribeLink,
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", "", fmt.Errorf("execute template %s: %w", newCommentTemplate, err)
	}

	body = strings.TrimSpace(buf.String())
	return subject, body, nil
}

// Subject returns the localized subject line for a new comment on title.
func Subject(lang language.Tag, title string) string {
	return i18n.Printer(lang).Sprintf(msgSubject, html.EscapeString(title))
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("Jan 2, 2006 15:04 UTC")
}
