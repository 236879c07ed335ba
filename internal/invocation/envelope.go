package invocation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"embulkshim/internal/engine"
)

// Response is the envelope handed back to the Lambda runtime. Body is itself
// a JSON document encoded as a string.
type Response struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
}

// ResponseFor maps every outcome to exactly one envelope.
func ResponseFor(outcome engine.Outcome) Response {
	switch outcome.Kind {
	case engine.KindSuccess:
		return Response{StatusCode: http.StatusOK, Body: jsonBody("message", outcome.Message())}
	default:
		return Response{StatusCode: http.StatusInternalServerError, Body: jsonBody("error", outcome.Message())}
	}
}

// jsonBody renders {"key": "value"}, space after the colon included.
func jsonBody(key, value string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(value); err != nil {
		return fmt.Sprintf(`{%q: %q}`, key, value)
	}
	return fmt.Sprintf(`{"%s": %s}`, key, bytes.TrimRight(buf.Bytes(), "\n"))
}
