package psxcore

import "log/slog"

// RendererOption configures a Renderer during construction (§10.2).
type RendererOption func(*rendererConfig)

// rendererConfig holds optional configuration for Renderer creation.
type rendererConfig struct {
	logger *slog.Logger
	scale  int
}

func defaultRendererConfig() rendererConfig {
	return rendererConfig{scale: 1}
}

// WithScale sets the integer upscale factor S of the scaled VRAM
// representation relative to the native 1024x512 store. The core never
// interprets S itself — it is bookkeeping the HazardListener needs to size
// its scaled textures and resolve shaders consistently with the renderer
// that feeds it. The default is 1 (no upscaling).
func WithScale(s int) RendererOption {
	return func(c *rendererConfig) {
		c.scale = s
	}
}

// WithLogger sets the logger used for diagnostics emitted while
// constructing this Renderer. It is equivalent to calling SetLogger before
// NewRenderer, provided as an option for dependency-injection style setup.
func WithLogger(l *slog.Logger) RendererOption {
	return func(c *rendererConfig) {
		c.logger = l
	}
}
