package errors_test

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/molfp/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// New / Wrap
// ─────────────────────────────────────────────────────────────────────────────

func TestNew_FieldsAreSetCorrectly(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		code    errors.ErrorCode
		message string
	}{
		{"internal error", errors.CodeInternal, "unexpected failure"},
		{"unsupported element", errors.ErrCodeUnsupportedElement, "atomic number 26"},
		{"invalid param", errors.CodeInvalidParam, "SMILES must not be empty"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ae := errors.New(tc.code, tc.message)
			require.NotNil(t, ae)
			assert.Equal(t, tc.code, ae.Code)
			assert.Equal(t, tc.message, ae.Message)
			assert.Empty(t, ae.Detail)
			assert.Nil(t, ae.Cause)
			assert.NotEmpty(t, ae.Stack)
		})
	}
}

func TestNewf_FormatsMessage(t *testing.T) {
	ae := errors.Newf(errors.ErrCodeInvalidFingerprintSize, "size %d is not a power of two", 100)
	assert.Equal(t, "size 100 is not a power of two", ae.Message)
}

func TestWrap_NilErrReturnsNil(t *testing.T) {
	assert.Nil(t, errors.Wrap(nil, errors.CodeInternal, "ignored"))
}

func TestWrap_CauseChainIsPreserved(t *testing.T) {
	root := stderrors.New("illegal base64 data at input byte 4")
	ae := errors.Wrap(root, errors.ErrCodeDescriptorDecodeFailed, "decode failed")

	require.NotNil(t, ae)
	assert.True(t, stderrors.Is(ae, root))
	assert.Equal(t, root, stderrors.Unwrap(ae))
	assert.Contains(t, ae.Error(), "illegal base64 data")
}

func TestWrap_UnknownCodeKeepsOriginal(t *testing.T) {
	inner := errors.New(errors.ErrCodeUnsupportedElement, "Fe")
	outer := errors.Wrap(inner, errors.CodeUnknown, "atom typing failed")
	assert.Equal(t, errors.ErrCodeUnsupportedElement, outer.Code)
}

// ─────────────────────────────────────────────────────────────────────────────
// Error() formatting and builders
// ─────────────────────────────────────────────────────────────────────────────

func TestError_Format(t *testing.T) {
	ae := errors.New(errors.ErrCodeUnknownDescriptorFamily, "unknown family")
	assert.Equal(t, "[MOL_023] unknown family", ae.Error())

	withDetail := ae.WithDetail("short=XYZ")
	assert.Equal(t, "[MOL_023] unknown family: short=XYZ", withDetail.Error())
	assert.Empty(t, ae.Detail, "WithDetail must not mutate the receiver")
}

func TestWithCause(t *testing.T) {
	cause := fmt.Errorf("boom")
	ae := errors.Internal("failed").WithCause(cause)
	assert.Same(t, cause, ae.Cause)

	var nilErr *errors.AppError
	assert.Nil(t, nilErr.WithCause(cause))
	assert.Nil(t, nilErr.WithDetail("x"))
}

// ─────────────────────────────────────────────────────────────────────────────
// Inspection
// ─────────────────────────────────────────────────────────────────────────────

func TestIsCode_TraversesFmtWrapping(t *testing.T) {
	ae := errors.New(errors.ErrCodeCanonicalizationFailed, "ring closure overflow")
	wrapped := fmt.Errorf("sphere fingerprint: %w", ae)

	assert.True(t, errors.IsCode(wrapped, errors.ErrCodeCanonicalizationFailed))
	assert.False(t, errors.IsCode(wrapped, errors.ErrCodeInternal))
	assert.False(t, errors.IsCode(nil, errors.ErrCodeInternal))
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, errors.IsNotFound(errors.NotFound("missing")))
	assert.True(t, errors.IsNotFound(errors.New(errors.ErrCodeUnknownDescriptorFamily, "x")))
	assert.False(t, errors.IsNotFound(errors.Internal("x")))
	assert.False(t, errors.IsNotFound(stderrors.New("plain")))
}

func TestIsValidation(t *testing.T) {
	assert.True(t, errors.IsValidation(errors.InvalidParam("bad")))
	assert.True(t, errors.IsValidation(errors.New(errors.ErrCodeMoleculeInvalidSMILES, "bad")))
	assert.False(t, errors.IsValidation(errors.NotFound("missing")))
	assert.False(t, errors.IsValidation(errors.Internal("x")))
	assert.False(t, errors.IsValidation(stderrors.New("plain")))
	assert.False(t, errors.IsValidation(nil))
}

func TestGetCode(t *testing.T) {
	assert.Equal(t, errors.CodeOK, errors.GetCode(nil))
	assert.Equal(t, errors.CodeUnknown, errors.GetCode(stderrors.New("plain")))
	assert.Equal(t, errors.ErrCodeUnsupportedElement,
		errors.GetCode(fmt.Errorf("ctx: %w", errors.New(errors.ErrCodeUnsupportedElement, "x"))))
}

//Personal.AI order the ending
