package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

// Request bodies are small JSON objects; anything past this is not a
// legitimate client.
const maxBodyBytes = 1 << 20

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}

	// Exactly one value per body.
	switch err := dec.Decode(&struct{}{}); {
	case err == nil:
		return errors.New("request body must contain a single json value")
	case errors.Is(err, io.EOF):
		return nil
	default:
		return err
	}
}
