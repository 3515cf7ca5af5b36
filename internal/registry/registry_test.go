package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twin2multicloud/deployer/internal/config"
	"github.com/twin2multicloud/deployer/internal/depctx"
	"github.com/twin2multicloud/deployer/internal/naming"
)

type fakeAdapter struct{ name string }

func (f *fakeAdapter) Name() string { return f.name }
func (f *fakeAdapter) Initialize(context.Context, config.Credentials, string) error { return nil }
func (f *fakeAdapter) Clients() depctx.ClientBundle                                 { return nil }
func (f *fakeAdapter) Naming() naming.Naming                                        { return naming.New("t") }
func (f *fakeAdapter) TwinExists(context.Context) (bool, error)                     { return false, nil }
func (f *fakeAdapter) Strategy() depctx.Strategy                                    { return nil }

func TestRegisterAndGet(t *testing.T) {
	r := New()
	require.NoError(t, r.Register("aws", func() depctx.Adapter { return &fakeAdapter{name: "aws"} }))

	adapter, err := r.Get("aws")
	require.NoError(t, err)
	assert.Equal(t, "aws", adapter.Name())
}

func TestRegisterIsIdempotentForSameType(t *testing.T) {
	r := New()
	factory := func() depctx.Adapter { return &fakeAdapter{name: "aws"} }
	require.NoError(t, r.Register("aws", factory))
	require.NoError(t, r.Register("aws", factory))
}

func TestRegisterRejectsConflictingType(t *testing.T) {
	r := New()
	require.NoError(t, r.Register("aws", func() depctx.Adapter { return &fakeAdapter{name: "aws"} }))

	type other struct{ fakeAdapter }
	err := r.Register("aws", func() depctx.Adapter { return &other{fakeAdapter{name: "aws"}} })
	assert.Error(t, err)
}

func TestGetUnknownProviderListsAvailable(t *testing.T) {
	r := New()
	require.NoError(t, r.Register("aws", func() depctx.Adapter { return &fakeAdapter{name: "aws"} }))
	require.NoError(t, r.Register("azure", func() depctx.Adapter { return &fakeAdapter{name: "azure"} }))

	_, err := r.Get("google")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not registered")
	assert.Equal(t, []string{"aws", "azure"}, r.List())
}
