package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/thakonkawin/deep-search-products/pkg/embeddings"
	"github.com/thakonkawin/deep-search-products/pkg/models"
)

// SearchHandler godoc
//
//	@Summary		Search the catalog by image
//	@Description	embeds the uploaded image and returns the products whose stored
//	@Description	images are most similar, ranked by score. Each product appears at
//	@Description	most once.
//	@Tags			search
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			image	formData	file	true	"Query image"
//	@Param			limit	query		integer	false	"Maximum number of matches"
//	@Success		200		{object}	models.SearchResponse
//	@Failure		400		{object}	APIError	"Bad Request"
//	@Failure		500		{object}	APIError	"Internal Server Error"
//	@Security		Bearer
//	@Router			/api/v1/search [post]
func SearchHandler(appState *models.AppState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := extractQueryStringValueToInt[int](r, "limit")
		if err != nil {
			renderError(w, err, http.StatusBadRequest)
			return
		}

		maxSize := maxRequestSize(appState)
		r.Body = http.MaxBytesReader(w, r.Body, maxSize)
		if err := r.ParseMultipartForm(maxSize); err != nil {
			renderError(w, err, http.StatusBadRequest)
			return
		}

		file, _, err := r.FormFile("image")
		if err != nil {
			renderError(w, errors.New("image file is required"), http.StatusBadRequest)
			return
		}
		defer func() {
			_ = file.Close()
		}()

		payload, err := io.ReadAll(file)
		if err != nil {
			renderError(w, err, http.StatusInternalServerError)
			return
		}

		embedding, err := appState.Embedder.EmbedImage(r.Context(), payload)
		if err != nil {
			if errors.Is(err, embeddings.ErrDecodeFailed) {
				renderError(w, err, http.StatusBadRequest)
				return
			}
			renderStoreError(w, err)
			return
		}

		matches, err := appState.CatalogStore.SearchByVector(r.Context(), embedding, limit)
		if err != nil {
			renderError(w, err, http.StatusInternalServerError)
			return
		}

		if err := encodeJSON(w, models.SearchResponse{Matches: matches}); err != nil {
			renderError(w, err, http.StatusInternalServerError)
			return
		}
	}
}
