package terminal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPinBufferAppendIgnoresNonDigits(t *testing.T) {
	var b PinBuffer
	b.Append('1')
	b.Append('x')
	b.Append('*')
	b.Append('2')
	assert.Equal(t, 2, b.Len())
}

func TestPinBufferCapsAtFourDigits(t *testing.T) {
	var b PinBuffer
	for _, d := range []byte("123456") {
		b.Append(d)
	}
	assert.Equal(t, 4, b.Len())

	pin, err := b.Take()
	require.NoError(t, err)
	assert.Equal(t, "1234", pin)
}

func TestPinBufferTakeIncomplete(t *testing.T) {
	var b PinBuffer
	b.Append('1')
	b.Append('2')
	b.Append('3')

	_, err := b.Take()
	require.ErrorIs(t, err, ErrPinIncomplete)
	// an incomplete take must not consume what was typed
	assert.Equal(t, 3, b.Len())
}

func TestPinBufferTakeWipes(t *testing.T) {
	var b PinBuffer
	for _, d := range []byte("0000") {
		b.Append(d)
	}
	_, err := b.Take()
	require.NoError(t, err)
	assert.Equal(t, 0, b.Len())

	_, err = b.Take()
	assert.ErrorIs(t, err, ErrPinIncomplete)
}

func TestPinBufferClear(t *testing.T) {
	var b PinBuffer
	b.Append('9')
	b.Clear()
	assert.Equal(t, 0, b.Len())
}
