package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	codeerr "github.com/matzehuels/codeflow/pkg/errors"
	"github.com/matzehuels/codeflow/pkg/session"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeRaw(w http.ResponseWriter, contentType string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, codeerr.HTTPStatus(err), errorResponse{Error: toErrorBody(err)})
}

func toErrorBody(err error) errorBody {
	code := codeerr.GetCode(err)
	if code == "" {
		code = codeerr.ErrCodeInternal
	}
	return errorBody{Code: string(code), Message: codeerr.UserMessage(err)}
}

// decode reads a JSON request body into v.
func decode(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return codeerr.Wrap(codeerr.ErrCodeSourceTooLarge, err, "request body exceeds %d bytes", tooLarge.Limit)
		case errors.Is(err, io.EOF):
			return codeerr.New(codeerr.ErrCodeInvalidInput, "request body is empty")
		default:
			return codeerr.Wrap(codeerr.ErrCodeInvalidInput, err, "invalid JSON body")
		}
	}
	return nil
}

func errNotFound(path string) error {
	return codeerr.New(codeerr.ErrCodeNotFound, "no route for %s", path)
}

// sessionErr gives store and navigation errors their API codes.
func sessionErr(id string, err error) error {
	switch {
	case errors.Is(err, session.ErrNotFound):
		return codeerr.Wrap(codeerr.ErrCodeSessionNotFound, err, "session %s not found", id)
	case errors.Is(err, session.ErrStepOutOfRange):
		return codeerr.Wrap(codeerr.ErrCodeStepOutOfRange, err, "step out of range")
	case codeerr.GetCode(err) != "":
		return err
	default:
		return codeerr.Wrap(codeerr.ErrCodeInternal, err, "session store")
	}
}
