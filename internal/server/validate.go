package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"reflect"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/Amund-Fremming/tero.platform/internal/apierror"
)

const maxBodyBytes = 1 << 20

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("gamename", validateGameName)
	_ = v.RegisterValidation("username", validateUsername)
	_ = v.RegisterValidation("personname", validatePersonName)
	return v
}

// validateGameName: 1-100 characters, not only whitespace.
func validateGameName(fl validator.FieldLevel) bool {
	name := strings.TrimSpace(fl.Field().String())
	n := utf8.RuneCountInString(name)
	return n >= 1 && n <= 100
}

// validateUsername: 3-30 characters of letters, digits, '_', '-' and '.',
// not starting with '.'.
func validateUsername(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	n := utf8.RuneCountInString(s)
	if n < 3 || n > 30 || strings.HasPrefix(s, ".") {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && !strings.ContainsRune("_-.", r) {
			return false
		}
	}
	return true
}

// validatePersonName: 1-50 characters of letters, spaces, apostrophes, '-' and '.'.
func validatePersonName(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	n := utf8.RuneCountInString(strings.TrimSpace(s))
	if n < 1 || n > 50 {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsSpace(r) && !strings.ContainsRune("'-.", r) {
			return false
		}
	}
	return true
}

var fieldMessages = map[string]string{
	"required":   "is required",
	"gamename":   "must be 1-100 characters",
	"username":   "must be 3-30 letters, digits, '_', '-' or '.'",
	"personname": "must be 1-50 letters",
	"oneof":      "must be one of [%s]",
	"max":        "must be at most %s",
	"min":        "must be at least %s",
}

// decodeJSON reads a JSON body into dst and runs its validate tags. Every
// failure is a 400 with a readable message.
func decodeJSON(r *http.Request, dst any) error {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "application/json" {
		return apierror.BadRequest("expected Content-Type: application/json")
	}

	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return apierror.BadRequest(fmt.Sprintf("invalid JSON body: %s", jsonErrorMessage(err)))
	}

	if err := validate.Struct(dst); err != nil {
		return apierror.BadRequest(validationMessage(err))
	}
	return nil
}

func jsonErrorMessage(err error) string {
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.Is(err, io.EOF):
		return "empty body"
	case errors.As(err, &typeErr):
		return fmt.Sprintf("field %q has the wrong type", typeErr.Field)
	}
	return err.Error()
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "validation failed"
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		tmpl, ok := fieldMessages[fe.Tag()]
		if !ok {
			msgs = append(msgs, fmt.Sprintf("%s is invalid", fe.Field()))
			continue
		}
		if strings.Contains(tmpl, "%s") {
			tmpl = fmt.Sprintf(tmpl, fe.Param())
		}
		msgs = append(msgs, fe.Field()+" "+tmpl)
	}
	return strings.Join(msgs, ", ")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
