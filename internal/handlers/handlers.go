package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/devwebtn/facturation/internal/auth"
	"github.com/devwebtn/facturation/internal/core"
	"github.com/devwebtn/facturation/internal/httpx"
)

var validate = validator.New()

// decode parses the JSON body into dst and runs its validation tags.
func decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return core.Validation("corps JSON invalide", nil)
	}
	if err := validate.Struct(dst); err != nil {
		fields := map[string]string{}
		var verrs validator.ValidationErrors
		if ok := asValidationErrors(err, &verrs); ok {
			for _, fe := range verrs {
				fields[fe.Field()] = fe.Tag()
			}
		}
		return core.Validation("requête invalide", fields)
	}
	return nil
}

func asValidationErrors(err error, target *validator.ValidationErrors) bool {
	if verrs, ok := err.(validator.ValidationErrors); ok {
		*target = verrs
		return true
	}
	return false
}

// urlID reads a numeric chi URL parameter.
func urlID(r *http.Request, name string) (uint, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, core.Validation("identifiant invalide", map[string]string{name: raw})
	}
	return uint(id), nil
}

// identity pulls the verified identity; routes behind RequireAuth always
// have one, this guards direct handler use in tests.
func identity(r *http.Request) (core.Identity, bool) {
	return auth.IdentityFrom(r.Context())
}

func unauthorized(w http.ResponseWriter) {
	httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
}
