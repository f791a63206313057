package api

import (
	"encoding/json"
	"net/http"
	"strings"
)

// parseFields extracts the ?fields= selection from the request.
// Returns nil when no selection was requested.
func parseFields(r *http.Request) map[string]bool {
	raw := r.URL.Query().Get("fields")
	if raw == "" {
		return nil
	}
	set := make(map[string]bool)
	for _, f := range strings.Split(raw, ",") {
		f = strings.TrimSpace(f)
		if f != "" {
			set[f] = true
		}
	}
	if len(set) == 0 {
		return nil
	}
	// The id field is always included so responses stay addressable.
	set["id"] = true
	return set
}

// projectFields reduces a decoded JSON value to the selected fields.
// Objects keep only selected keys; arrays are filtered element-wise.
// Scalars pass through unchanged.
func projectFields(v any, fields map[string]bool) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(fields))
		for k, val := range t {
			if fields[k] {
				out[k] = val
			}
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = projectFields(e, fields)
		}
		return out
	default:
		return v
	}
}

// writeSelected writes v as JSON, applying the request's ?fields=
// selection when present. Selection works on the marshaled form, so
// field names match the response JSON, not Go identifiers.
func writeSelected(w http.ResponseWriter, r *http.Request, status int, v any) {
	fields := parseFields(r)
	if fields == nil {
		writeJSON(w, status, v)
		return
	}

	data, err := json.Marshal(v)
	if err != nil {
		WriteProblem(w, r, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	var decoded any
	if err := json.Unmarshal(data, &decoded); err != nil {
		WriteProblem(w, r, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	writeJSON(w, status, projectFields(decoded, fields))
}
