package server

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thakonkawin/deep-search-products/pkg/models"
)

func TestExtractQueryStringValueToInt(t *testing.T) {
	t.Run("valid value", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/?limit=7", nil)
		value, err := extractQueryStringValueToInt[int](req, "limit")
		require.NoError(t, err)
		assert.Equal(t, 7, value)
	})

	t.Run("empty value returns zero", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		value, err := extractQueryStringValueToInt[int](req, "limit")
		require.NoError(t, err)
		assert.Equal(t, 0, value)
	})

	t.Run("invalid value returns error", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/?limit=seven", nil)
		_, err := extractQueryStringValueToInt[int](req, "limit")
		assert.Error(t, err)
	})
}

func TestRenderStoreError(t *testing.T) {
	testCases := []struct {
		name   string
		err    error
		status int
	}{
		{"not found", models.NewNotFoundError("product X"), http.StatusNotFound},
		{"bad request", models.NewBadRequestError("bad input"), http.StatusBadRequest},
		{"conflict", models.NewConflictError("duplicate"), http.StatusConflict},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			res := httptest.NewRecorder()
			renderStoreError(res, tc.err)
			assert.Equal(t, tc.status, res.Code)
		})
	}
}
