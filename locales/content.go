// Package locales provides the embedded translations for operator-facing
// status messages (en, pt-BR).
package locales

import "embed"

//go:embed en.yaml
//go:embed pt-BR.yaml

// Content is an embedded file system containing the locale files.
var Content embed.FS
