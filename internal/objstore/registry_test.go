package objstore

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubClient struct {
	Client
	opts Options
}

func TestRegistry_MemoizesPerEndpoint(t *testing.T) {
	calls := 0
	registry := NewRegistryWithFactory(Options{Region: "us-east-1"}, func(opts Options) (Client, error) {
		calls++
		return &stubClient{opts: opts}, nil
	})

	a1, err := registry.ClientFor(NewReference("bucket", "a"))
	require.NoError(t, err)
	a2, err := registry.ClientFor(NewReference("bucket", "b"))
	require.NoError(t, err)

	assert.Same(t, a1, a2)
	assert.Equal(t, 1, calls)

	other := NewReference("bucket", "c")
	other.Endpoint = "https://other.example.com"
	b, err := registry.ClientFor(other)
	require.NoError(t, err)

	assert.NotSame(t, a1, b)
	assert.Equal(t, 2, calls)
}

func TestRegistry_ReferenceOverridesDefaults(t *testing.T) {
	registry := NewRegistryWithFactory(Options{
		Endpoint:    "https://default.example.com",
		Region:      "us-east-1",
		AccessKeyID: "default-key",
	}, func(opts Options) (Client, error) {
		return &stubClient{opts: opts}, nil
	})

	ref := NewReference("bucket", "key")
	ref.Endpoint = "https://tenant.example.com"
	ref.Region = "eu-west-1"
	ref.AccessKeyID = "tenant-key"
	ref.SecretAccessKey = "tenant-secret"

	client, err := registry.ClientFor(ref)
	require.NoError(t, err)

	opts := client.(*stubClient).opts
	assert.Equal(t, "https://tenant.example.com", opts.Endpoint)
	assert.Equal(t, "eu-west-1", opts.Region)
	assert.Equal(t, "tenant-key", opts.AccessKeyID)
	assert.Equal(t, "tenant-secret", opts.SecretAccessKey)
}

func TestRegistry_PartialCredentialOverrideIgnored(t *testing.T) {
	registry := NewRegistryWithFactory(Options{AccessKeyID: "default-key", SecretAccessKey: "default-secret"},
		func(opts Options) (Client, error) {
			return &stubClient{opts: opts}, nil
		})

	// An access key without its secret cannot form a usable pair.
	ref := NewReference("bucket", "key")
	ref.AccessKeyID = "tenant-key"

	client, err := registry.ClientFor(ref)
	require.NoError(t, err)

	opts := client.(*stubClient).opts
	assert.Equal(t, "default-key", opts.AccessKeyID)
	assert.Equal(t, "default-secret", opts.SecretAccessKey)
}

func TestRegistry_FactoryErrorNotMemoized(t *testing.T) {
	calls := 0
	registry := NewRegistryWithFactory(Options{}, func(opts Options) (Client, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("transient")
		}
		return &stubClient{opts: opts}, nil
	})

	_, err := registry.ClientFor(NewReference("bucket", "key"))
	require.Error(t, err)

	client, err := registry.ClientFor(NewReference("bucket", "key"))
	require.NoError(t, err)
	assert.NotNil(t, client)
	assert.Equal(t, 2, calls)
}
