package errors

import (
	"encoding/json"
	"net/http"
)

// ProblemContentType is the media type of problem responses.
const ProblemContentType = "application/problem+json"

// ProblemResponse is the error body returned to API callers.
type ProblemResponse struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}

// NewProblemResponse builds a problem response. An empty title falls back to
// the status text and an empty detail to DefaultMessage.
func NewProblemResponse(status int, title, detail, instance string) ProblemResponse {
	if title == "" {
		title = http.StatusText(status)
	}
	if detail == "" {
		detail = DefaultMessage
	}
	return ProblemResponse{
		Type:     "about:blank",
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: instance,
	}
}

// write renders the problem as the response.
func (p ProblemResponse) write(w http.ResponseWriter) error {
	w.Header().Set("Content-Type", ProblemContentType)
	w.WriteHeader(p.Status)
	return json.NewEncoder(w).Encode(p)
}
