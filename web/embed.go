// Package web embeds the back-office templates and browser assets.
package web

import (
	"embed"
	"io/fs"
	"log"
)

//go:embed static templates
var content embed.FS

func sub(dir string) fs.FS {
	s, err := fs.Sub(content, dir)
	if err != nil {
		log.Fatalf("failed to create %s sub-filesystem: %v", dir, err)
	}
	return s
}

// StaticFS returns the JS and CSS served under /static/.
func StaticFS() fs.FS {
	return sub("static")
}

// TemplatesFS returns the page templates.
func TemplatesFS() fs.FS {
	return sub("templates")
}
