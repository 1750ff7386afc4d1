// Package psxcore implements the framebuffer atlas, hazard tracker, and
// render-pass batching engine of a hardware-accelerated reimplementation of
// a fixed-function PlayStation-style 2D rasterizer.
//
// # Overview
//
// VRAM is a 1024x512 16-bit native framebuffer. psxcore maintains it in two
// parallel GPU representations — an Unscaled store matching the native
// layout bit-for-bit, and a Scaled store upscaled by an integer factor S for
// high-resolution output — and tracks, at block granularity, which
// representation is authoritative for each region and what pipeline-stage
// hazards are outstanding against it.
//
// # Quick Start
//
// A Backend and its Renderer are circularly dependent, so wiring them up
// takes three steps: build the backend against a device, build the
// renderer against the backend, then attach the renderer back to the
// backend.
//
//	backend, err := gpu.NewBackend(device, queue, 4)
//	r := psxcore.NewRenderer(backend, psxcore.WithScale(4))
//	backend.SetRenderer(r)
//
//	r.SetDrawRect(psxcore.Rect{X: 0, Y: 0, W: 320, H: 240})
//	r.ClearRect(psxcore.Rect{X: 0, Y: 0, W: 320, H: 240}, 0x001F)
//	r.DrawTriangle(vertices)
//	r.Scanout(psxcore.Rect{X: 0, Y: 0, W: 320, H: 240})
//
// # Scope
//
// This package implements the core only: the block grid, hazard tracker,
// representation resolver, render pass batcher, draw queue, and the
// renderer facade that drives them. The GPU abstraction layer, shaders,
// texture allocator, and command-stream demuxer are external collaborators;
// see psxcore/gpu, psxcore/gputex, and psxcore/cmdstream.
//
// # Concurrency
//
// The core is single-threaded and cooperative: a Renderer is not safe for
// concurrent use from multiple goroutines. Parallelism comes only from the
// GPU executing previously recorded commands while the caller records new
// ones.
package psxcore

// Version information for the module.
const (
	Version           = "0.1.0"
	VersionMajor      = 0
	VersionMinor      = 1
	VersionPatch      = 0
	VersionPrerelease = ""
)
