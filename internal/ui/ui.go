// Package ui embeds the single-page upload interface.
package ui

import (
	"embed"
	"io/fs"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/filesystem"
)

//go:embed static
var static embed.FS

// FS returns the UI assets rooted at the static directory.
func FS() http.FileSystem {
	sub, err := fs.Sub(static, "static")
	if err != nil {
		panic(err) // the directory is embedded at build time
	}
	return http.FS(sub)
}

// Handler serves the UI. Register it after the API routes.
func Handler() fiber.Handler {
	return filesystem.New(filesystem.Config{
		Root:   FS(),
		Index:  "index.html",
		Browse: false,
	})
}
