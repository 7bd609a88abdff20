package server

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/thakonkawin/deep-search-products/internal"
	"github.com/thakonkawin/deep-search-products/pkg/models"
)

var log = internal.GetLogger()

var validate = validator.New()

const OKResponse = "OK"

// ListProductsHandler godoc
//
//	@Summary		Returns all products
//	@Description	list the short projection of every product, ordered by product code
//	@Tags			product
//	@Accept			json
//	@Produce		json
//	@Success		200	{object}	[]models.ProductListItem
//	@Failure		500	{object}	APIError	"Internal Server Error"
//	@Security		Bearer
//	@Router			/api/v1/products [get]
func ListProductsHandler(appState *models.AppState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		products, err := appState.CatalogStore.ListProducts(r.Context())
		if err != nil {
			renderStoreError(w, err)
			return
		}

		if err := encodeJSON(w, products); err != nil {
			renderError(w, err, http.StatusInternalServerError)
			return
		}
	}
}

// CreateProductHandler godoc
//
//	@Summary		Add a product
//	@Description	add a product with a unique product code
//	@Tags			product
//	@Accept			json
//	@Produce		json
//	@Param			product	body		models.CreateProductRequest	true	"Product"
//	@Success		201		{object}	models.Product
//	@Failure		400		{object}	APIError	"Bad Request"
//	@Failure		409		{object}	APIError	"Conflict"
//	@Failure		500		{object}	APIError	"Internal Server Error"
//	@Security		Bearer
//	@Router			/api/v1/products [post]
func CreateProductHandler(appState *models.AppState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var productRequest models.CreateProductRequest
		if err := decodeJSON(r, &productRequest); err != nil {
			renderError(w, err, http.StatusBadRequest)
			return
		}

		if err := validate.Struct(productRequest); err != nil {
			renderError(w, err, http.StatusBadRequest)
			return
		}

		product, err := appState.CatalogStore.CreateProduct(r.Context(), &productRequest)
		if err != nil {
			renderStoreError(w, err)
			return
		}

		w.WriteHeader(http.StatusCreated)
		if err := encodeJSON(w, product); err != nil {
			renderError(w, err, http.StatusInternalServerError)
			return
		}
	}
}

// GetProductHandler godoc
//
//	@Summary		Returns a product by product code
//	@Description	get product by product code, including the UUIDs of its stored images
//	@Tags			product
//	@Accept			json
//	@Produce		json
//	@Param			productCode	path		string	true	"Product Code"
//	@Success		200			{object}	models.Product
//	@Failure		404			{object}	APIError	"Not Found"
//	@Failure		500			{object}	APIError	"Internal Server Error"
//	@Security		Bearer
//	@Router			/api/v1/products/{productCode} [get]
func GetProductHandler(appState *models.AppState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productCode := chi.URLParam(r, "productCode")

		product, err := appState.CatalogStore.GetProduct(r.Context(), productCode)
		if err != nil {
			renderStoreError(w, err)
			return
		}

		if err := encodeJSON(w, product); err != nil {
			renderError(w, err, http.StatusInternalServerError)
			return
		}
	}
}

// UpdateProductHandler godoc
//
//	@Summary		Update a product
//	@Description	apply a partial update to a product. Zero-valued fields are left untouched.
//	@Tags			product
//	@Accept			json
//	@Produce		json
//	@Param			productCode	path		string						true	"Product Code"
//	@Param			product		body		models.UpdateProductRequest	true	"Product"
//	@Success		200			{object}	models.Product
//	@Failure		400			{object}	APIError	"Bad Request"
//	@Failure		404			{object}	APIError	"Not Found"
//	@Failure		500			{object}	APIError	"Internal Server Error"
//	@Security		Bearer
//	@Router			/api/v1/products/{productCode} [put]
func UpdateProductHandler(appState *models.AppState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productCode := chi.URLParam(r, "productCode")
		if productCode == "" {
			renderError(w, errors.New("productCode is required"), http.StatusBadRequest)
			return
		}

		var productRequest models.UpdateProductRequest
		if err := decodeJSON(r, &productRequest); err != nil {
			renderError(w, err, http.StatusBadRequest)
			return
		}
		productRequest.ProductCode = productCode

		if err := validate.Struct(productRequest); err != nil {
			renderError(w, err, http.StatusBadRequest)
			return
		}

		product, err := appState.CatalogStore.UpdateProduct(r.Context(), &productRequest)
		if err != nil {
			renderStoreError(w, err)
			return
		}

		if err := encodeJSON(w, product); err != nil {
			renderError(w, err, http.StatusInternalServerError)
			return
		}
	}
}

// DeleteProductHandler godoc
//
//	@Summary		Delete a product
//	@Description	delete a product and all of its stored images
//	@Tags			product
//	@Accept			json
//	@Produce		json
//	@Param			productCode	path		string	true	"Product Code"
//	@Success		200			{string}	string	"OK"
//	@Failure		404			{object}	APIError	"Not Found"
//	@Failure		500			{object}	APIError	"Internal Server Error"
//	@Security		Bearer
//	@Router			/api/v1/products/{productCode} [delete]
func DeleteProductHandler(appState *models.AppState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productCode := chi.URLParam(r, "productCode")

		if err := appState.CatalogStore.DeleteProduct(r.Context(), productCode); err != nil {
			renderStoreError(w, err)
			return
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(OKResponse))
	}
}

// GetStatisticsHandler godoc
//
//	@Summary		Returns catalog statistics
//	@Description	get aggregate catalog counts and the lowest-stock products
//	@Tags			product
//	@Accept			json
//	@Produce		json
//	@Success		200	{object}	models.ProductStatistics
//	@Failure		500	{object}	APIError	"Internal Server Error"
//	@Security		Bearer
//	@Router			/api/v1/products/statistics [get]
func GetStatisticsHandler(appState *models.AppState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := appState.CatalogStore.GetStatistics(r.Context())
		if err != nil {
			renderStoreError(w, err)
			return
		}

		if err := encodeJSON(w, stats); err != nil {
			renderError(w, err, http.StatusInternalServerError)
			return
		}
	}
}
