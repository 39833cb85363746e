package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"f1-pass-storefront/internal/middleware"
)

const maxJSONBody = 1 << 20

var errMissingVisitor = errors.New("missing visitor session")

// ValidationErrorResponse is returned when a form fails validation
type ValidationErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// newValidator reports fields by their JSON names so clients can map errors
// back to form inputs.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	middleware.WriteError(w, status, message)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dest interface{}) error {
	body := http.MaxBytesReader(w, r.Body, maxJSONBody)
	decoder := json.NewDecoder(body)
	if err := decoder.Decode(dest); err != nil {
		return fmt.Errorf("failed to decode request body: %w", err)
	}
	if _, err := decoder.Token(); err != io.EOF {
		return errors.New("request body must contain a single JSON value")
	}
	return nil
}

// fieldMessages turns validator errors into one message per field, keyed by
// the namespace without the top-level struct name (e.g. "ticketHolders[1].email").
func fieldMessages(err error) map[string]string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return nil
	}

	messages := make(map[string]string, len(validationErrors))
	for _, fe := range validationErrors {
		key := fe.Namespace()
		if _, rest, ok := strings.Cut(key, "."); ok {
			key = rest
		}
		if _, exists := messages[key]; exists {
			continue
		}
		messages[key] = fieldMessage(fe)
	}
	return messages
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "email":
		return "Enter a valid email address."
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("Add at least %s.", fe.Param())
		}
		return fmt.Sprintf("Must be at least %s characters.", fe.Param())
	default:
		return "Invalid value."
	}
}

func visitorID(r *http.Request) (string, error) {
	id := middleware.VisitorID(r.Context())
	if id == "" {
		return "", errMissingVisitor
	}
	return id, nil
}
