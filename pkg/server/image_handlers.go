package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/thakonkawin/deep-search-products/pkg/embeddings"
	"github.com/thakonkawin/deep-search-products/pkg/models"
)

const (
	// DefaultMaxRequestSize caps multipart uploads when no limit is configured.
	DefaultMaxRequestSize = 32 << 20 // 32MB

	imageFormField       = "images"
	productCodeFormField = "product_code"
)

// maxRequestSize returns the configured upload cap, if any.
func maxRequestSize(appState *models.AppState) int64 {
	if appState.Config.Server.MaxRequestSize > 0 {
		return appState.Config.Server.MaxRequestSize
	}
	return DefaultMaxRequestSize
}

// readImageParts reads every uploaded image file from the multipart form.
func readImageParts(r *http.Request) ([][]byte, error) {
	if r.MultipartForm == nil || len(r.MultipartForm.File[imageFormField]) == 0 {
		return nil, models.NewBadRequestError(
			"no image files found in form field " + imageFormField,
		)
	}

	files := r.MultipartForm.File[imageFormField]
	payloads := make([][]byte, len(files))
	for i, fileHeader := range files {
		file, err := fileHeader.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open uploaded file: %w", err)
		}
		payload, err := io.ReadAll(file)
		_ = file.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read uploaded file: %w", err)
		}
		log.Debugf(
			"received image %s (%s)",
			fileHeader.Filename,
			humanize.Bytes(uint64(len(payload))),
		)
		payloads[i] = payload
	}

	return payloads, nil
}

// CreateProductImagesHandler godoc
//
//	@Summary		Ingest reference images for a product
//	@Description	embeds the uploaded images and stores their vectors for the product.
//	@Description	The batch is atomic: either all images are stored or none are.
//	@Tags			image
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			product_code	formData	string	true	"Product Code"
//	@Param			images			formData	file	true	"Image files"
//	@Success		201				{object}	[]string
//	@Failure		400				{object}	APIError	"Bad Request"
//	@Failure		404				{object}	APIError	"Not Found"
//	@Failure		500				{object}	APIError	"Internal Server Error"
//	@Security		Bearer
//	@Router			/api/v1/products-vectors [post]
func CreateProductImagesHandler(appState *models.AppState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := maxRequestSize(appState)
		r.Body = http.MaxBytesReader(w, r.Body, limit)
		if err := r.ParseMultipartForm(limit); err != nil {
			renderError(w, err, http.StatusBadRequest)
			return
		}

		productCode := r.FormValue(productCodeFormField)
		if productCode == "" {
			renderError(w, errors.New("product_code is required"), http.StatusBadRequest)
			return
		}

		payloads, err := readImageParts(r)
		if err != nil {
			renderStoreError(w, err)
			return
		}

		images := make([]models.ProductImage, len(payloads))
		for i, payload := range payloads {
			embedding, err := appState.Embedder.EmbedImage(r.Context(), payload)
			if err != nil {
				if errors.Is(err, embeddings.ErrDecodeFailed) {
					renderError(w, err, http.StatusBadRequest)
					return
				}
				renderStoreError(w, err)
				return
			}
			images[i] = models.ProductImage{
				Embedding: embedding,
				Image:     payload,
			}
		}

		imageIDs, err := appState.CatalogStore.CreateProductImages(
			r.Context(),
			productCode,
			images,
		)
		if err != nil {
			renderStoreError(w, err)
			return
		}

		w.WriteHeader(http.StatusCreated)
		if err := encodeJSON(w, imageIDs); err != nil {
			renderError(w, err, http.StatusInternalServerError)
			return
		}
	}
}

// GetProductImageHandler godoc
//
//	@Summary		Returns a stored image by UUID
//	@Description	get the raw image payload for a stored reference image
//	@Tags			image
//	@Produce		octet-stream
//	@Param			imageUUID	path		string	true	"Image UUID"
//	@Success		200			{string}	binary
//	@Failure		400			{object}	APIError	"Bad Request"
//	@Failure		404			{object}	APIError	"Not Found"
//	@Failure		500			{object}	APIError	"Internal Server Error"
//	@Security		Bearer
//	@Router			/api/v1/products/image/{imageUUID} [get]
func GetProductImageHandler(appState *models.AppState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		imageUUID := parseUUIDFromURL(r, w, "imageUUID")
		if imageUUID == uuid.Nil {
			return
		}

		image, err := appState.CatalogStore.GetProductImage(r.Context(), imageUUID)
		if err != nil {
			renderStoreError(w, err)
			return
		}

		if len(image.Image) == 0 {
			renderError(
				w,
				models.NewNotFoundError("payload for image "+imageUUID.String()),
				http.StatusNotFound,
			)
			return
		}

		w.Header().Set("Content-Type", http.DetectContentType(image.Image))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(image.Image)
	}
}

// DeleteProductImageHandler godoc
//
//	@Summary		Delete a stored image
//	@Description	delete a stored reference image and its embedding
//	@Tags			image
//	@Accept			json
//	@Produce		json
//	@Param			imageUUID	path		string	true	"Image UUID"
//	@Success		200			{string}	string	"OK"
//	@Failure		400			{object}	APIError	"Bad Request"
//	@Failure		404			{object}	APIError	"Not Found"
//	@Failure		500			{object}	APIError	"Internal Server Error"
//	@Security		Bearer
//	@Router			/api/v1/products/image/{imageUUID} [delete]
func DeleteProductImageHandler(appState *models.AppState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		imageUUID := parseUUIDFromURL(r, w, "imageUUID")
		if imageUUID == uuid.Nil {
			return
		}

		if err := appState.CatalogStore.DeleteProductImage(r.Context(), imageUUID); err != nil {
			renderStoreError(w, err)
			return
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(OKResponse))
	}
}
