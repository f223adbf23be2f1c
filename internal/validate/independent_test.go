package validate

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/packtory/packtory/internal/store"
)

type fakeRegistry struct {
	packages    map[string]*store.Package
	vendorTaken bool
	lookupErr   error
}

func (f *fakeRegistry) FindPackageByName(_ context.Context, name string) (*store.Package, error) {
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	pkg, ok := f.packages[name]
	if !ok {
		return nil, store.ErrNoResult
	}
	return pkg, nil
}

func (f *fakeRegistry) IsVendorTaken(_ context.Context, _ string, _ uuid.UUID) (bool, error) {
	if f.lookupErr != nil {
		return false, f.lookupErr
	}
	return f.vendorTaken, nil
}

func TestCheckUnique(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	reg := &fakeRegistry{packages: map[string]*store.Package{
		"acme/widget": {Name: "acme/widget"},
	}}

	v, err := CheckUnique(ctx, reg, "acme/widget")
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, KindNameNotUnique, v.Kind)
	assert.Contains(t, v.Message, "/packages/acme/widget")

	v, err = CheckUnique(ctx, reg, "acme/other")
	require.NoError(t, err)
	assert.Nil(t, v, "no result is a pass")
}

func TestCheckUniquePropagatesLookupErrors(t *testing.T) {
	t.Parallel()

	reg := &fakeRegistry{lookupErr: errors.New("connection lost")}
	_, err := CheckUnique(context.Background(), reg, "acme/widget")
	assert.Error(t, err)
}

func TestCheckVendorWritable(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	maintainer := uuid.New()

	taken := &fakeRegistry{vendorTaken: true}
	v, err := CheckVendorWritable(ctx, taken, "acme/widget", maintainer)
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, KindVendorNotWritable, v.Kind)
	assert.Contains(t, v.Message, "acme")

	free := &fakeRegistry{vendorTaken: false}
	v, err = CheckVendorWritable(ctx, free, "acme/widget", maintainer)
	require.NoError(t, err)
	assert.Nil(t, v)
}
