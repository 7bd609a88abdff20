package models

import (
	"github.com/thakonkawin/deep-search-products/config"
)

// AppState is a struct that holds the state of the application
// Use cmd.NewAppState to create a new instance
type AppState struct {
	CatalogStore CatalogStore
	Embedder     Embedder
	Config       *config.Config
}
