package enclave_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voidcell/enclave"
)

func setup(t *testing.T) {
	t.Helper()
	require.NoError(t, enclave.Init())
	t.Cleanup(func() { _ = enclave.Shutdown() })
}

func TestCreateRunDestroyCycle(t *testing.T) {
	setup(t)

	id, err := enclave.Create(true)
	require.NoError(t, err)

	require.NoError(t, enclave.RunString(id, "x = 1 + 1", nil))
	require.NoError(t, enclave.Destroy(id))

	err = enclave.RunString(id, "x = 2", nil)
	assert.ErrorIs(t, err, enclave.ErrUnknownIdentifier)
}

func TestListAllCountsMain(t *testing.T) {
	setup(t)

	main, err := enclave.GetMain()
	require.NoError(t, err)

	const n = 3
	for i := 0; i < n; i++ {
		_, err := enclave.Create(true)
		require.NoError(t, err)
	}

	ids, err := enclave.ListAll()
	require.NoError(t, err)
	require.Len(t, ids, n+1)
	assert.Equal(t, main, ids[n], "main is the oldest, listed last")
}

func TestGetCurrentIsMainOutsideRuns(t *testing.T) {
	setup(t)

	current, err := enclave.GetCurrent()
	require.NoError(t, err)
	main, err := enclave.GetMain()
	require.NoError(t, err)
	assert.Equal(t, main, current)

	err = enclave.Destroy(current)
	assert.ErrorIs(t, err, enclave.ErrInvalidTarget)
}

func TestRunStringSharedBindings(t *testing.T) {
	setup(t)

	id, err := enclave.Create(true)
	require.NoError(t, err)

	err = enclave.RunString(id, `
		if (name !== "enclave") throw new Error("binding missing");
	`, map[string]interface{}{"name": "enclave"})
	require.NoError(t, err)
}

func TestRunStringBridgesFailures(t *testing.T) {
	setup(t)

	id, err := enclave.Create(true)
	require.NoError(t, err)

	err = enclave.RunString(id, `throw new RangeError("out of range")`, nil)

	var failure *enclave.ScriptFailure
	require.True(t, errors.As(err, &failure))
	assert.Equal(t, "RangeError", failure.Name)
	assert.Equal(t, "out of range", failure.Message)

	// The target stays usable after the failure.
	require.NoError(t, enclave.RunString(id, "1 + 1", nil))
}

func TestIsShareable(t *testing.T) {
	assert.True(t, enclave.IsShareable("text"))
	assert.True(t, enclave.IsShareable(42))
	assert.True(t, enclave.IsShareable([]byte{1, 2}))
	assert.True(t, enclave.IsShareable(nil))
	assert.False(t, enclave.IsShareable([]int{1}))
	assert.False(t, enclave.IsShareable(map[string]string{}))
}

func TestCodecRoundTrip(t *testing.T) {
	c, err := enclave.NewCompressor()
	require.NoError(t, err)

	payload := []byte("shared across the boundary")
	head, err := c.Compress(payload)
	require.NoError(t, err)
	tail, err := c.Flush()
	require.NoError(t, err)

	d := enclave.NewDecompressor()
	out, err := d.Decompress(append(head, tail...), -1)
	require.NoError(t, err)
	assert.Equal(t, payload, out)
	assert.True(t, d.Eof())
}

func TestShutdownReinitializes(t *testing.T) {
	require.NoError(t, enclave.Init())

	id, err := enclave.Create(true)
	require.NoError(t, err)

	require.NoError(t, enclave.Shutdown())
	require.NoError(t, enclave.Shutdown(), "shutdown is idempotent")

	// A fresh engine knows nothing about the old identifiers.
	require.NoError(t, enclave.Init())
	t.Cleanup(func() { _ = enclave.Shutdown() })

	err = enclave.RunString(id, "1", nil)
	assert.Error(t, err)
}
