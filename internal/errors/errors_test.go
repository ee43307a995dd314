package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCode_HTTPStatus(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{CodeAuth, http.StatusUnauthorized},
		{CodeNotFound, http.StatusNotFound},
		{CodeValidation, http.StatusBadRequest},
		{CodeTransientFetch, http.StatusBadGateway},
		{CodeInterrupted, http.StatusConflict},
		{CodeRenderItem, http.StatusInternalServerError},
		{CodeGroupInvariant, http.StatusInternalServerError},
		{CodeInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.code.HTTPStatus())
		})
	}
}

func TestError_Is_MatchesByCode(t *testing.T) {
	err := TransientFetch("page 3 failed")
	assert.True(t, Is(err, ErrTransientFetch))
	assert.False(t, Is(err, ErrAuth))
}

func TestError_Is_ThroughWrapping(t *testing.T) {
	cause := stderrors.New("connection reset")
	err := fmt.Errorf("fetch page: %w", Wrap(cause, CodeTransientFetch, "page 2 failed"))

	assert.True(t, Is(err, ErrTransientFetch))

	var domainErr *Error
	require.True(t, As(err, &domainErr))
	assert.Equal(t, CodeTransientFetch, domainErr.Code)
	assert.Equal(t, cause, Unwrap(domainErr))
}

func TestError_ErrorString(t *testing.T) {
	plain := Auth("missing token")
	assert.Equal(t, "missing token", plain.Error())

	wrapped := Wrap(stderrors.New("boom"), CodeInternal, "enhance failed")
	assert.Equal(t, "enhance failed: boom", wrapped.Error())
}

func TestError_WithDetails(t *testing.T) {
	err := Validation("bad facet value")
	detailed := err.WithDetails(map[string]string{"field": "priceMin"})

	assert.Equal(t, err.Code, detailed.Code)
	assert.NotNil(t, detailed.Details)
	// Original is untouched.
	assert.Nil(t, err.Details)
}

func TestError_WithCause(t *testing.T) {
	cause := stderrors.New("dial tcp: timeout")
	err := ErrTransientFetch.WithCause(cause)

	assert.True(t, Is(err, ErrTransientFetch))
	assert.ErrorIs(t, err, cause)
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		code Code
	}{
		{"auth", Auth("x"), CodeAuth},
		{"authf", Authf("shop %s", "demo"), CodeAuth},
		{"transient", TransientFetch("x"), CodeTransientFetch},
		{"transientf", TransientFetchf("page %d", 3), CodeTransientFetch},
		{"render", RenderItem("x"), CodeRenderItem},
		{"renderf", RenderItemf("card %s", "a"), CodeRenderItem},
		{"invariant", GroupInvariant("x"), CodeGroupInvariant},
		{"invariantf", GroupInvariantf("key %s", "k"), CodeGroupInvariant},
		{"interrupted", Interrupted("x"), CodeInterrupted},
		{"notfound", NotFound("x"), CodeNotFound},
		{"notfoundf", NotFoundf("handle %s", "vinyl"), CodeNotFound},
		{"validation", Validation("x"), CodeValidation},
		{"validationf", Validationf("%s", "x"), CodeValidation},
		{"internal", Internal("x"), CodeInternal},
		{"internalf", Internalf("%s", "x"), CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.NotEmpty(t, tt.err.Message)
		})
	}
}
