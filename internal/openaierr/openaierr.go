// Package openaierr classifies errors returned by the OpenAI client.
package openaierr

import (
	"errors"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
)

// ModelUnavailable reports whether err means the model cannot be used at all:
// it does not exist, or the key may not access it.
func ModelUnavailable(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusNotFound, http.StatusUnauthorized, http.StatusForbidden:
			return true
		}
		return apiErr.Code == "model_not_found"
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		switch reqErr.HTTPStatusCode {
		case http.StatusNotFound, http.StatusUnauthorized, http.StatusForbidden:
			return true
		}
	}
	return false
}
