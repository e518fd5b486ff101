package main

import (
	"os"

	"ratecache/internal/app"

	"github.com/sirupsen/logrus"
)

// @title Rate Cache API
// @version 1.0
// @description Caching proxy in front of a rate-limited currency exchange API.
// @BasePath /api/v1
func main() {
	if err := app.Run(); err != nil {
		logrus.WithError(err).Error("Application terminated with error")
		os.Exit(1)
	}
}
