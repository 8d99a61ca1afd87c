package errors

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/render"
)

// ProblemDetails is an RFC 7807 problem. Extensions are written as
// top-level members next to the standard ones.
type ProblemDetails struct {
	Type       string
	Title      string
	Status     int
	Detail     string
	Instance   string
	Extensions map[string]interface{}
}

// NewProblemDetails creates a problem for the given status and type.
func NewProblemDetails(status int, problemType, title, detail, instance string) *ProblemDetails {
	return &ProblemDetails{
		Type:       problemType,
		Title:      title,
		Status:     status,
		Detail:     detail,
		Instance:   instance,
		Extensions: map[string]interface{}{},
	}
}

// WithExtension sets an extension member and returns pd.
func (pd *ProblemDetails) WithExtension(key string, value interface{}) *ProblemDetails {
	if pd.Extensions == nil {
		pd.Extensions = map[string]interface{}{}
	}
	pd.Extensions[key] = value
	return pd
}

// Render sets the response status for render.Render.
func (pd *ProblemDetails) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, pd.Status)
	return nil
}

// MarshalJSON writes the members in one object. Standard members win over
// extensions of the same name; empty detail and instance are omitted.
func (pd *ProblemDetails) MarshalJSON() ([]byte, error) {
	members := make(map[string]interface{}, len(pd.Extensions)+5)
	for k, v := range pd.Extensions {
		members[k] = v
	}
	members["type"], members["title"], members["status"] = pd.Type, pd.Title, pd.Status
	for k, v := range map[string]string{"detail": pd.Detail, "instance": pd.Instance} {
		if v != "" {
			members[k] = v
		} else {
			delete(members, k)
		}
	}
	return json.Marshal(members)
}
