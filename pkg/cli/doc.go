// Package cli provides common utilities for the sherpa command-line tool.
//
// This package includes:
//   - Output formatting (YAML, JSON, raw)
//   - Request file loading (YAML/JSON)
//   - Per-app directories under ~/.sherpa/<app>
//   - lipgloss-styled summary tables and status lines
//
// Example usage:
//
//	var req ZipVoiceRequest
//	if err := cli.LoadRequest("request.yaml", &req); err != nil {
//	    return err
//	}
//
//	cli.Output(result, cli.OutputOptions{
//	    Format: cli.FormatJSON,
//	    File:   outputPath,
//	})
package cli
