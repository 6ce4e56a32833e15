// Package formval cleans and validates dialog input before it reaches the
// classroom store. Text fields are stripped of markup and trimmed; rules
// are enforced with struct tags.
package formval

import (
	"errors"
	"html"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/dalemusser/exposite/internal/domain/models"
	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
)

// Errors maps a form field to a user-facing message.
type Errors map[string]string

func (e Errors) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = f + " " + e[f]
	}
	return "invalid input: " + strings.Join(parts, "; ")
}

type GroupForm struct {
	Name string `form:"name" validate:"required,max=120"`
}

type MemberForm struct {
	ListNumber      int    `form:"listNumber" validate:"min=1"`
	FirstName       string `form:"firstName" validate:"required,max=80"`
	PaternalSurname string `form:"paternalSurname" validate:"required,max=80"`
	MaternalSurname string `form:"maternalSurname" validate:"max=80"`
}

type RubricItemForm struct {
	Title       string `form:"title" validate:"required,max=120"`
	Description string `form:"description" validate:"max=1000"`
	MaxPoints   int    `form:"maxPoints" validate:"min=1"`
}

var (
	once     sync.Once
	validate *validator.Validate
	strict   *bluemonday.Policy
)

func setup() {
	once.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			if name := f.Tag.Get("form"); name != "" {
				return name
			}
			return f.Name
		})
		strict = bluemonday.StrictPolicy()
	})
}

// Clean strips every tag, decodes entities the policy escaped and trims.
func Clean(s string) string {
	setup()
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(s)))
}

// Group returns the cleaned name.
func Group(f GroupForm) (string, error) {
	f.Name = Clean(f.Name)
	if err := check(f); err != nil {
		return "", err
	}
	return f.Name, nil
}

// Member returns cleaned member details.
func Member(f MemberForm) (models.MemberDetails, error) {
	f.FirstName = Clean(f.FirstName)
	f.PaternalSurname = Clean(f.PaternalSurname)
	f.MaternalSurname = Clean(f.MaternalSurname)
	if err := check(f); err != nil {
		return models.MemberDetails{}, err
	}
	return models.MemberDetails{
		ListNumber:      f.ListNumber,
		FirstName:       f.FirstName,
		PaternalSurname: f.PaternalSurname,
		MaternalSurname: f.MaternalSurname,
	}, nil
}

// RubricItem returns the cleaned form.
func RubricItem(f RubricItemForm) (RubricItemForm, error) {
	f.Title = Clean(f.Title)
	f.Description = Clean(f.Description)
	if err := check(f); err != nil {
		return RubricItemForm{}, err
	}
	return f, nil
}

func check(v any) error {
	setup()
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err
	}
	out := make(Errors, len(ve))
	for _, fe := range ve {
		out[fe.Field()] = message(fe)
	}
	return out
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		if fe.Kind() == reflect.String {
			return "must be at most " + fe.Param() + " characters"
		}
		return "must be at most " + fe.Param()
	}
	return "is invalid"
}
