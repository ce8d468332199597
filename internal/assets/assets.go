// Package assets provides the embedded starter configuration.
package assets

import (
	_ "embed"
)

//go:embed pmjrunner.yaml
var starterConfig []byte

// StarterConfig returns the commented starter job configuration that the
// init command writes for a new project.
func StarterConfig() []byte {
	return append([]byte(nil), starterConfig...)
}
