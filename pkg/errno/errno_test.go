package errno

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMatchesByCode(t *testing.T) {
	err := InvalidAddress.WithMessage("invalid address: %s", "0x1")
	assert.True(t, errors.Is(err, InvalidAddress))
	assert.False(t, errors.Is(err, InvalidAmount))

	wrapped := fmt.Errorf("validate: %w", err)
	assert.True(t, errors.Is(wrapped, InvalidAddress))
}

func TestDecode(t *testing.T) {
	code, msg := Decode(nil)
	assert.Equal(t, OK.Code, code)
	assert.Equal(t, OK.Message, msg)

	code, _ = Decode(fmt.Errorf("wrap: %w", NotImplemented))
	assert.Equal(t, NotImplemented.Code, code)

	code, msg = Decode(errors.New("boom"))
	assert.Equal(t, InternalError.Code, code)
	assert.Equal(t, "boom", msg)
}

func TestWithPayloadKeepsCode(t *testing.T) {
	err := HardwareDeviceError.WithPayload(map[string]any{"code": 801})
	var e Errno
	assert.True(t, errors.As(err, &e))
	assert.Equal(t, 801, e.Payload["code"])
	assert.Nil(t, HardwareDeviceError.Payload)
}
