package domain

import (
	"fmt"
	"net/url"
	"strings"
)

// ParamSpec describes one parameter of a remote method.
type ParamSpec struct {
	Name     string
	Location string // "path" or "query"
	Required bool
	Repeated bool
}

// ResourceMethod is an invocable remote operation bound to discovery
// metadata. It is resolved once per logical request and reused for
// every page.
type ResourceMethod struct {
	ID         string
	API        string
	Version    string
	HTTPMethod string
	BaseURL    string
	Path       string
	Parameters map[string]ParamSpec
	// ParameterOrder lists required parameters in the order the API expects them.
	ParameterOrder []string
	SupportsPaging bool
}

// BuildURL expands path parameters into the method path and encodes every
// remaining parameter as the query string, in the order given.
func (m *ResourceMethod) BuildURL(params []Param) (string, error) {
	path := m.Path
	used := make(map[string]bool)

	for name, spec := range m.Parameters {
		if spec.Location != "path" {
			continue
		}
		value, ok := lookupParam(params, name)
		if !ok {
			if spec.Required {
				return "", fmt.Errorf("%w: missing path parameter %q for %s", ErrInvalidInput, name, m.ID)
			}
			continue
		}
		used[name] = true
		path = strings.ReplaceAll(path, "{+"+name+"}", escapeReserved(value))
		path = strings.ReplaceAll(path, "{"+name+"}", url.PathEscape(value))
	}
	if strings.Contains(path, "{") {
		return "", fmt.Errorf("%w: unexpanded path %q for %s", ErrInvalidInput, path, m.ID)
	}

	var query []string
	for _, p := range params {
		if used[p.Key] {
			continue
		}
		query = append(query, url.QueryEscape(p.Key)+"="+url.QueryEscape(p.Value))
	}

	u := strings.TrimSuffix(m.BaseURL, "/") + "/" + strings.TrimPrefix(path, "/")
	if len(query) > 0 {
		u += "?" + strings.Join(query, "&")
	}
	return u, nil
}

// FixtureKey is the default fake-mode fixture name for this method.
func (m *ResourceMethod) FixtureKey() string {
	return strings.ReplaceAll(m.API+"_"+m.Version+"_"+strings.TrimPrefix(m.ID, m.API+"."), ".", "_")
}

func lookupParam(params []Param, key string) (string, bool) {
	for _, p := range params {
		if p.Key == key {
			return p.Value, true
		}
	}
	return "", false
}

// escapeReserved escapes a value for a {+param} expansion, keeping "/".
func escapeReserved(v string) string {
	parts := strings.Split(v, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
