package main

import (
	"fmt"
	"os"

	_ "github.com/noah-isme/stages-admin/api/swagger"
)

// @title Stages Admin API
// @version 1.0.0
// @description JSON surface of the internship administration console
// @BasePath /api
// @schemes http https

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
