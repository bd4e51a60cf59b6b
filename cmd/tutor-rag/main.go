// Package main is the entry point for the tutor RAG service.
package main

import (
	_ "go.uber.org/automaxprocs/maxprocs"

	"github.com/kart-io/tutor-x/cmd/tutor-rag/app"
)

func main() {
	app.NewApp().Run()
}
