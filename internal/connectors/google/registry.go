package google

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	discovery "google.golang.org/api/discovery/v1"
	"google.golang.org/api/option"

	"github.com/custodia-labs/campusbridge/internal/core/domain"
	"github.com/custodia-labs/campusbridge/internal/core/ports/driven"
)

//go:embed discovery/*.json
var embeddedDocs embed.FS

// Verify interface compliance.
var _ driven.ResourceResolver = (*Registry)(nil)

// Registry resolves resource tuples against Google discovery documents.
//
// Embedded documents are registered at construction. When discovery fetch
// is enabled, unknown APIs are fetched once from the discovery service and
// cached; concurrent lookups of the same API share one fetch.
type Registry struct {
	mu   sync.RWMutex
	docs map[string]*discovery.RestDescription

	fetch    bool
	client   *http.Client
	endpoint string
	group    singleflight.Group

	logger *zap.Logger
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithLogger sets the registry logger.
func WithLogger(l *zap.Logger) RegistryOption {
	return func(r *Registry) { r.logger = l }
}

// WithDiscoveryFetch enables fetching unregistered APIs. An empty endpoint
// uses the public discovery service.
func WithDiscoveryFetch(client *http.Client, endpoint string) RegistryOption {
	return func(r *Registry) {
		r.fetch = true
		r.client = client
		r.endpoint = endpoint
	}
}

// WithoutEmbedded skips registration of the embedded documents.
func WithoutEmbedded() RegistryOption {
	return func(r *Registry) { r.docs = nil }
}

// NewRegistry creates a registry holding the embedded discovery documents.
func NewRegistry(opts ...RegistryOption) (*Registry, error) {
	r := &Registry{
		docs:   make(map[string]*discovery.RestDescription),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.docs == nil {
		r.docs = make(map[string]*discovery.RestDescription)
		return r, nil
	}

	entries, err := embeddedDocs.ReadDir("discovery")
	if err != nil {
		return nil, fmt.Errorf("read embedded discovery documents: %w", err)
	}
	for _, entry := range entries {
		data, err := embeddedDocs.ReadFile("discovery/" + entry.Name())
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", entry.Name(), err)
		}
		if err := r.RegisterJSON(data); err != nil {
			return nil, fmt.Errorf("register %s: %w", entry.Name(), err)
		}
	}
	return r, nil
}

// Register adds or replaces a discovery document.
func (r *Registry) Register(doc *discovery.RestDescription) error {
	if doc == nil || doc.Name == "" || doc.Version == "" {
		return fmt.Errorf("%w: discovery document needs a name and version", domain.ErrInvalidInput)
	}
	r.mu.Lock()
	r.docs[docKey(doc.Name, doc.Version)] = doc
	r.mu.Unlock()
	return nil
}

// RegisterJSON decodes and registers a discovery document.
func (r *Registry) RegisterJSON(data []byte) error {
	var doc discovery.RestDescription
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("decode discovery document: %w", err)
	}
	return r.Register(&doc)
}

// APIs lists the registered api:version keys in sorted order.
func (r *Registry) APIs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.docs))
	for k := range r.docs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Resolve returns the method bound to (api, version, resource, method).
// Resource may be dotted ("spreadsheets.values") or empty for top-level
// methods.
func (r *Registry) Resolve(ctx context.Context, api, version, resource, method string) (*domain.ResourceMethod, error) {
	unknown := func(reason string) error {
		return &domain.UnknownResourceError{API: api, Version: version, Resource: resource, Method: method, Reason: reason}
	}
	if api == "" || version == "" || method == "" {
		return nil, unknown("api, version and method are required")
	}

	doc, err := r.document(ctx, api, version)
	if err != nil {
		return nil, unknown(err.Error())
	}

	methods := doc.Methods
	if resource != "" {
		var res *discovery.RestResource
		resources := doc.Resources
		for _, name := range strings.Split(resource, ".") {
			next, ok := resources[name]
			if !ok {
				return nil, unknown(fmt.Sprintf("resource %q not found", name))
			}
			res = &next
			resources = next.Resources
		}
		methods = res.Methods
	}

	m, ok := methods[method]
	if !ok {
		return nil, unknown("method not found")
	}
	return toResourceMethod(doc, m), nil
}

func (r *Registry) document(ctx context.Context, api, version string) (*discovery.RestDescription, error) {
	key := docKey(api, version)

	r.mu.RLock()
	doc, ok := r.docs[key]
	r.mu.RUnlock()
	if ok {
		return doc, nil
	}
	if !r.fetch {
		return nil, fmt.Errorf("api %s is not registered", key)
	}

	v, err, shared := r.group.Do(key, func() (any, error) {
		return r.fetchDocument(ctx, api, version)
	})
	if err != nil {
		r.logger.Warn("discovery fetch failed", zap.String("api", key), zap.Error(err))
		return nil, fmt.Errorf("fetch discovery document %s: %w", key, err)
	}
	r.logger.Debug("discovery document fetched", zap.String("api", key), zap.Bool("shared", shared))
	return v.(*discovery.RestDescription), nil
}

func (r *Registry) fetchDocument(ctx context.Context, api, version string) (*discovery.RestDescription, error) {
	client := r.client
	if client == nil {
		client = http.DefaultClient
	}
	opts := []option.ClientOption{option.WithHTTPClient(client)}
	if r.endpoint != "" {
		opts = append(opts, option.WithEndpoint(r.endpoint))
	}

	svc, err := discovery.NewService(ctx, opts...)
	if err != nil {
		return nil, err
	}
	doc, err := svc.Apis.GetRest(api, version).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	if doc.Name == "" {
		doc.Name = api
	}
	if doc.Version == "" {
		doc.Version = version
	}
	if err := r.Register(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func toResourceMethod(doc *discovery.RestDescription, m discovery.RestMethod) *domain.ResourceMethod {
	params := make(map[string]domain.ParamSpec, len(m.Parameters))
	for name, p := range m.Parameters {
		params[name] = domain.ParamSpec{
			Name:     name,
			Location: p.Location,
			Required: p.Required,
			Repeated: p.Repeated,
		}
	}
	_, paging := m.Parameters[domain.PageTokenParam]

	base := doc.RootUrl + doc.ServicePath
	if doc.RootUrl == "" {
		base = doc.BaseUrl
	}

	return &domain.ResourceMethod{
		ID:             m.Id,
		API:            doc.Name,
		Version:        doc.Version,
		HTTPMethod:     m.HttpMethod,
		BaseURL:        base,
		Path:           m.Path,
		Parameters:     params,
		ParameterOrder: m.ParameterOrder,
		SupportsPaging: paging,
	}
}

func docKey(api, version string) string {
	return api + ":" + version
}
