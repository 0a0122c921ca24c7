// Package main is the entry point for the ragserve service.
package main

import (
	_ "go.uber.org/automaxprocs/maxprocs"

	"github.com/kart-io/ragserve/cmd/ragserve/app"
)

func main() {
	app.NewApp().Run()
}
