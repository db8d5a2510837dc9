package resolver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFacadeInitCachesActiveConfigID(t *testing.T) {
	stub := NewStubEngine()
	stub.SetDefaultConfigID(7)
	facade := NewFacade(stub)

	require.NoError(t, facade.Init(context.Background(), "test", "{}", false))
	assert.Equal(t, int64(1), facade.ActiveConfigID())
}

func TestFacadeDetectsDrift(t *testing.T) {
	stub := NewStubEngine()
	facade := NewFacade(stub)
	require.NoError(t, facade.Init(context.Background(), "test", "{}", false))

	stub.SetDefaultConfigID(99)

	drifted, defaultID, err := facade.CheckDrift(context.Background())
	require.NoError(t, err)
	assert.True(t, drifted)
	assert.Equal(t, int64(99), defaultID)
}

func TestFacadeReinitUpdatesActiveID(t *testing.T) {
	stub := NewStubEngine()
	facade := NewFacade(stub)
	require.NoError(t, facade.Init(context.Background(), "test", "{}", false))

	require.NoError(t, facade.Reinit(context.Background(), 42))
	assert.Equal(t, int64(42), facade.ActiveConfigID())

	drifted, _, err := facade.CheckDrift(context.Background())
	require.NoError(t, err)
	assert.False(t, drifted)
}

func TestFacadePrimeEngineIsIdempotent(t *testing.T) {
	stub := NewStubEngine()
	facade := NewFacade(stub)
	require.NoError(t, facade.PrimeEngine(context.Background()))
	require.NoError(t, facade.PrimeEngine(context.Background()))
}

func TestClassifyResolverErrors(t *testing.T) {
	assert.Equal(t, KindNotInitialized, Classify(ErrNotInitialized(nil)))
	assert.Equal(t, KindGenericException, Classify(ErrGenericException(nil)))
	assert.Equal(t, KindOther, Classify(assertErr{}))
}

type assertErr struct{}

func (assertErr) Error() string { return "boom" }
