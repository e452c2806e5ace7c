package web

import (
	"embed"
)

// staticFiles holds the calculator page and its assets.
//
//go:embed static/*
var staticFiles embed.FS
