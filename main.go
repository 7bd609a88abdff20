package main

import (
	cmd "github.com/thakonkawin/deep-search-products/cmd/deepsearch"
	"github.com/thakonkawin/deep-search-products/internal"
)

var log = internal.GetLogger()

func main() {
	log.Info("Starting deep-search-products")
	cmd.Execute()
}
