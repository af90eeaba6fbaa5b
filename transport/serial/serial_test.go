package serial

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenPTYSendRecvRoundTrip(t *testing.T) {
	controller, devicePath, err := OpenPTY()
	require.NoError(t, err)
	defer controller.Close()

	device, err := Open(devicePath, 0)
	require.NoError(t, err)
	defer device.Close()

	payload := []byte{0xAA, 0xBB, 0xCC}
	done := make(chan error, 1)
	go func() {
		done <- controller.Send(payload)
	}()

	buf := make([]byte, 32)
	n, ok, err := device.Recv(buf, 1000)
	require.NoError(t, <-done)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, payload, buf[:n])
}

func TestRecvTimesOutWithoutError(t *testing.T) {
	controller, devicePath, err := OpenPTY()
	require.NoError(t, err)
	defer controller.Close()

	device, err := Open(devicePath, 0)
	require.NoError(t, err)
	defer device.Close()

	buf := make([]byte, 32)
	n, ok, err := device.Recv(buf, 50)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, n)
}
