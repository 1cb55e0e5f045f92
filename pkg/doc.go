// Package pkg provides the libraries behind the layerpress CLI.
//
// # Overview
//
// Layerpress sits on both sides of an external generative-art engine. Before
// the engine runs it turns a directory of raw layer categories into the
// ordered, size-bounded tree the engine expects. After the engine runs it
// converts the generated images to their delivery size and format and keeps
// the per-item metadata records pointing at the right files.
//
//  1. [assets] - Category ordering and normalization of the layer tree
//  2. [engine] - Contract with the external engine
//  3. [transcode] - Image conversion and record rewriting
//  4. [pipeline] - Orchestration (normalize → generate → transcode)
//  5. [raster] - Probing, resizing and encoding primitives
//
// # Architecture
//
//	raw assets (data/<category>_z<N>/...)
//	         ↓
//	   [assets.Normalizer] → data_sorted/NNN__<category>/...
//	         ↓
//	   [engine.Engine]     → output/images/*.png + output/erc721 metadata/*.json
//	         ↓
//	   [transcode.Transcoder] → *.webp, records updated in place
//
// # Supporting Packages
//
//   - [config] - TOML project configuration and name/description templates
//   - [cache] - Content-addressed cache for probes and resized layers
//   - [errors] - Structured error codes and input validation
//   - [observability] - Stage and cache hooks, Prometheus textfile export
//   - [buildinfo] - Version information set at build time
package pkg
