// Package server implements the MCP (Model Context Protocol) server for merge
// tree construction.
//
// This package provides a JSON-RPC 2.0 server that exposes oversegmentation
// and iterative region merging through the MCP protocol, so that MCP clients
// can build merge trees of boundary images and inspect their conflict sets.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Basic Image Information:
//   - image_load: Load image and get metadata
//   - image_dimensions: Get width and height
//
// Oversegmentation:
//   - image_oversegment: SLIC superpixels with per-region measurements
//
// Merge Trees:
//   - merge_tree_build: Merge regions and write the 16-bit merge tree image
//   - merge_tree_conflict_sets: List the ancestors of every initial region
//
// # Image Caching
//
// Images are cached in memory by path, so repeated calls on the same source
// (for example building with different scoring options) decode it once.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: The Go error string
//
// # Usage
//
//	srv := server.New(logger, version)
//	if err := srv.Run(); err != nil {
//	    logger.Fatal(err)
//	}
//
// Logs go to the given zap logger; stdout carries only protocol messages.
package server
