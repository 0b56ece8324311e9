package comments

import (
	"golang.org/x/text/language"
)

// Field types of the comment form.
const (
	FieldTypeText     = "text"
	FieldTypeEmail    = "email"
	FieldTypeTextarea = "textarea"
	FieldTypeCheckbox = "checkbox"
)

// Form field names of the comment form.
const (
	FormFieldName    = "Name"
	FormFieldEmail   = "Email"
	FormFieldComment = "Comment"
)

// FormField describes one control of the comment form.
type FormField struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Label    string `json:"label"`
	Required bool   `json:"required"`
}

// Form is the comment submission form definition.
type Form struct {
	Fields []FormField `json:"fields"`
}

// FormAlterer changes the comment form before it is rendered.
type FormAlterer interface {
	AlterCommentForm(form *Form, lang language.Tag)
}

// NewForm returns the base comment form.
// Guests must give a name and email; signed-in users do not see those fields.
func NewForm(signedIn bool) *Form {
	form := &Form{}
	if !signedIn {
		form.Fields = append(form.Fields,
			FormField{Name: FormFieldName, Type: FieldTypeText, Label: "Your name", Required: true},
			FormField{Name: FormFieldEmail, Type: FieldTypeEmail, Label: "Email", Required: true},
		)
	}
	form.Fields = append(form.Fields,
		FormField{Name: FormFieldComment, Type: FieldTypeTextarea, Label: "Comments", Required: true},
	)
	return form
}

// Field returns the field with the given name.
func (f *Form) Field(name string) (FormField, bool) {
	for _, field := range f.Fields {
		if field.Name == name {
			return field, true
		}
	}
	return FormField{}, false
}

// InsertAfter inserts field right after the field named after.
// The field is appended when after does not exist.
func (f *Form) InsertAfter(after string, field FormField) {
	for i, existing := range f.Fields {
		if existing.Name == after {
			f.Fields = append(f.Fields[:i+1], append([]FormField{field}, f.Fields[i+1:]...)...)
			return
		}
	}
	f.Fields = append(f.Fields, field)
}
