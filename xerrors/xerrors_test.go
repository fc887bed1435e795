package xerrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrap(t *testing.T) {
	base := New("base error")
	wrapped := Wrap(base, "context")

	assert.EqualError(t, wrapped, "context: base error")
	assert.True(t, errors.Is(wrapped, base))
	assert.Nil(t, Wrap(nil, "context"))
}

func TestWrapf(t *testing.T) {
	base := New("not found")
	wrapped := Wrapf(base, "key: %s", "order:1")

	assert.EqualError(t, wrapped, "key: order:1: not found")
	assert.True(t, errors.Is(wrapped, base))
}

func TestWithCode(t *testing.T) {
	base := New("amount mismatch")
	coded := WithCode(base, "SETTLEMENT_MISMATCH")

	assert.Equal(t, "SETTLEMENT_MISMATCH", GetCode(coded))
	assert.True(t, errors.Is(coded, base))

	// 包装后仍能提取错误码
	wrapped := Wrap(coded, "daily run")
	assert.Equal(t, "SETTLEMENT_MISMATCH", GetCode(wrapped))

	assert.Equal(t, "", GetCode(base))
	assert.Nil(t, WithCode(nil, "IGNORED"))
}

func TestCombine(t *testing.T) {
	e1 := New("first")
	e2 := New("second")

	assert.Nil(t, Combine())
	assert.Nil(t, Combine(nil, nil))
	assert.Equal(t, e1, Combine(nil, e1))

	combined := Combine(e1, nil, e2)
	assert.True(t, errors.Is(combined, e1))
	assert.True(t, errors.Is(combined, e2))
	assert.Contains(t, combined.Error(), "and 1 more errors")
}
