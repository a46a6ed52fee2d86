package objstore

import "sync"

const defaultEndpointKey = "default"

// Registry memoizes one Client per distinct endpoint. Construction is the
// only operation requiring mutual exclusion; the clients themselves are
// safe for concurrent use. The registry is owned by the composition root
// rather than package-level state so the one-client-per-endpoint invariant
// holds without hidden globals.
type Registry struct {
	mu       sync.Mutex
	clients  map[string]Client
	defaults Options
	factory  func(Options) (Client, error)
}

// NewRegistry creates a registry whose clients fall back to the given
// default options when a reference carries no overrides.
func NewRegistry(defaults Options) *Registry {
	return &Registry{
		clients:  make(map[string]Client),
		defaults: defaults,
		factory:  New,
	}
}

// NewRegistryWithFactory is like NewRegistry but with an injectable client
// constructor, used by tests.
func NewRegistryWithFactory(defaults Options, factory func(Options) (Client, error)) *Registry {
	r := NewRegistry(defaults)
	r.factory = factory
	return r
}

// ClientFor returns the memoized client for the reference's endpoint,
// lazily creating it on first use. Reference fields override the registry
// defaults for the client's construction.
func (r *Registry) ClientFor(ref *ObjectReference) (Client, error) {
	key := ref.Endpoint
	if key == "" {
		key = defaultEndpointKey
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if client, ok := r.clients[key]; ok {
		return client, nil
	}

	opts := r.defaults
	if ref.Endpoint != "" {
		opts.Endpoint = ref.Endpoint
	}
	if ref.Region != "" {
		opts.Region = ref.Region
	}
	if ref.AccessKeyID != "" && ref.SecretAccessKey != "" {
		opts.AccessKeyID = ref.AccessKeyID
		opts.SecretAccessKey = ref.SecretAccessKey
	}

	client, err := r.factory(opts)
	if err != nil {
		return nil, err
	}
	r.clients[key] = client
	return client, nil
}
