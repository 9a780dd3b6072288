package domain

import (
	"net/http"
	"time"
)

// PageTokenParam is the query parameter carrying the page cursor.
const PageTokenParam = "pageToken"

// Param is one request parameter. Parameters keep the order they were
// given in, and a key may repeat.
type Param struct {
	Key   string
	Value string
}

// RequestDescriptor describes one logical request. It is not modified
// once a page sequence has started.
type RequestDescriptor struct {
	API        string
	APIVersion string
	Resource   string
	Method     string

	Params []Param
	// Body is either a structured value, encoded as JSON, or an opaque
	// payload ([]byte, string or fmt.Stringer) sent as is.
	Body    any
	Headers http.Header

	// PageLimit caps the number of pages. Zero or less means unbounded.
	PageLimit int

	// URI, HTTPMethod and Authenticated describe a single-shot call that
	// bypasses resource resolution.
	URI           string
	HTTPMethod    string
	Authenticated bool

	// FixtureName overrides the fixture key used in fake mode.
	FixtureName string

	// Timeout overrides the app timeout for every call of the request.
	Timeout time.Duration
}

// WithParam returns a copy of params with key set to value. An existing
// key keeps its position; a new key is appended.
func WithParam(params []Param, key, value string) []Param {
	out := make([]Param, 0, len(params)+1)
	found := false
	for _, p := range params {
		if p.Key == key {
			if !found {
				out = append(out, Param{Key: key, Value: value})
				found = true
			}
			continue
		}
		out = append(out, p)
	}
	if !found {
		out = append(out, Param{Key: key, Value: value})
	}
	return out
}

// Param returns the first value of key.
func (d *RequestDescriptor) Param(key string) (string, bool) {
	for _, p := range d.Params {
		if p.Key == key {
			return p.Value, true
		}
	}
	return "", false
}

// IsURI returns true if the descriptor targets an explicit URI.
func (d *RequestDescriptor) IsURI() bool {
	return d.URI != ""
}

// ResourceClass names the kind of call for instrumentation.
func (d *RequestDescriptor) ResourceClass() string {
	if d.IsURI() {
		return "simple"
	}
	return d.API + "." + d.Resource + "." + d.Method
}
