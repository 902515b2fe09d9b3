package web

import "embed"

// TemplatesFS embeds the form and login pages.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS embeds the client script and stylesheet.
//
//go:embed static/*
var StaticFS embed.FS
