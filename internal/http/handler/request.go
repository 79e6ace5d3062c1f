package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/ezenity/ezenity-api/internal/http/response"
)

type fieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeAndValidate reads a JSON body into dst and runs struct validation.
// It writes the error response itself and reports whether the caller should
// continue.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, v *validator.Validate, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(w, r, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "request body too large", nil)
			return false
		}
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body", nil)
		return false
	}
	if err := v.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			response.Error(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request", nil)
			return false
		}
		details := make([]fieldError, 0, len(verrs))
		for _, fe := range verrs {
			details = append(details, fieldError{Field: fe.Field(), Rule: fe.Tag()})
		}
		response.Error(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request", details)
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id == 0 {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid account id", nil)
		return 0, false
	}
	return uint(id), true
}

func queryInt(r *http.Request, name string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return 0
	}
	return n
}
