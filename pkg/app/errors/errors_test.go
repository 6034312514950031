package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIs(t *testing.T) {
	err := fmt.Errorf("connect: %w", TimeoutError(nil, "click connect", `button:has-text("Connect")`))

	assert.True(t, Is(err, CategoryTimeout))
	assert.False(t, Is(err, CategoryPopupTimeout))
	assert.False(t, Is(errors.New("plain"), CategoryTimeout))
}

func TestIsTimeout(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"popup", PopupTimeoutError(nil), true},
		{"control", TimeoutError(nil, "click", "#x"), true},
		{"read", ElementNotFoundError(nil, "read balance", "#balance"), true},
		{"driver", DriverError(errors.New("target closed"), "click", "#x"), false},
		{"config", ConfigError(nil, "bad"), false},
		{"foreign", errors.New("rpc down"), false},
		{"nil", nil, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsTimeout(tc.err))
		})
	}
}

func TestAutomationError_Message(t *testing.T) {
	cause := errors.New("timeout 15000ms exceeded")
	err := TimeoutError(cause, "confirm transaction", `button:has-text("Confirm")`)

	assert.Equal(t, `CategoryTimeout: confirm transaction [button:has-text("Confirm")]: timeout 15000ms exceeded`, err.Error())
	assert.ErrorIs(t, err, cause)
}
