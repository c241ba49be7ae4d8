package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"

	"github.com/iliyamo/product-catalog/internal/model"
)

// ValidationError reports request input that cannot become a ProductInput.
// Fields maps the JSON field name (or "body") to a human readable problem.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+" "+e.Fields[k])
	}
	return "invalid product input: " + strings.Join(parts, "; ")
}

// createProductRequest mirrors the POST body.  Pointers distinguish an
// absent field from a zero value.
type createProductRequest struct {
	Name        *string `json:"name" validate:"required,notblank,max=191"`
	Description *string `json:"description" validate:"omitempty,max=65535"`
	Price       *int64  `json:"price" validate:"required,gte=0"`
	Stock       *int64  `json:"stock" validate:"required,gte=0"`
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("notblank", validators.NotBlank)
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeProductInput reads a JSON object from r and validates it.  Any
// problem is reported as *ValidationError; the input is never partially
// accepted.
func decodeProductInput(v *validator.Validate, r io.Reader) (model.ProductInput, error) {
	var req createProductRequest
	dec := json.NewDecoder(r)
	if err := dec.Decode(&req); err != nil {
		return model.ProductInput{}, decodeError(err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return model.ProductInput{}, &ValidationError{Fields: map[string]string{"body": "must contain a single JSON object"}}
	}

	if err := v.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return model.ProductInput{}, err
		}
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = describe(fe)
		}
		return model.ProductInput{}, &ValidationError{Fields: fields}
	}

	return model.ProductInput{
		Name:        strings.TrimSpace(*req.Name),
		Description: req.Description,
		Price:       *req.Price,
		Stock:       *req.Stock,
	}, nil
}

func decodeError(err error) error {
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &typeErr) && typeErr.Field != "":
		return &ValidationError{Fields: map[string]string{
			typeErr.Field: fmt.Sprintf("must be of type %s", jsonKind(typeErr.Type)),
		}}
	case errors.Is(err, io.EOF):
		return &ValidationError{Fields: map[string]string{"body": "is required"}}
	default:
		return &ValidationError{Fields: map[string]string{"body": "must be a JSON object"}}
	}
}

func jsonKind(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.String:
		return "string"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return "integer"
	default:
		return t.Kind().String()
	}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "notblank":
		return "must not be blank"
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "max":
		return "must be at most " + fe.Param() + " characters"
	default:
		return "is invalid"
	}
}
