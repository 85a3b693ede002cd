package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/baharkarakas/imagegen-backend/internal/api/httpx"
	"github.com/baharkarakas/imagegen-backend/internal/api/validate"
	"github.com/baharkarakas/imagegen-backend/internal/apperr"
)

const maxBodyBytes = 1 << 20

// decode reads a JSON body into dst and validates it. On failure the
// response is already written and ok is false.
func decode(w http.ResponseWriter, r *http.Request, dst any) (ok bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		httpx.WriteAppError(w, r, apperr.Wrap(apperr.ErrInvalidArgument, "Invalid request body", err))
		return false
	}
	if err := validate.Struct(dst); err != nil {
		var errs validate.Errs
		if errors.As(err, &errs) {
			httpx.WriteError(w, http.StatusBadRequest, "invalid_argument", errs.Error(), errs)
			return false
		}
		httpx.WriteAppError(w, r, err)
		return false
	}
	return true
}
