// Package main is the entry point for the sherpa CLI.
//
// Usage:
//
//	sherpa [flags] <command> [subcommand] [args]
//
// Commands:
//
//	separate   - Split audio into stems (Spleeter, UVR)
//	zipvoice   - Zero-shot voice cloning TTS
//	serve      - WebSocket inference service
//	config     - Configuration management (contexts, services)
//	cache      - Inspect or clear the result cache
//	providers  - List ONNX Runtime execution providers
//	version    - Show version information
package main

import (
	"os"

	"github.com/haivivi/sherpa/cmd/sherpa/commands"
	"github.com/haivivi/sherpa/pkg/cli"
)

func main() {
	if err := commands.Execute(); err != nil {
		cli.PrintError("%v", err)
		os.Exit(1)
	}
}
