// Package templates embeds the starter configuration file.
package templates

import "embed"

//go:embed forkbench.yaml
var FS embed.FS
