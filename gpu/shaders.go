//go:build !nogpu

package gpu

import (
	_ "embed"
	"fmt"

	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"
)

//go:embed shaders/resolve.wgsl
var resolveShaderSource string

//go:embed shaders/copy_vram.wgsl
var copyVRAMShaderSource string

//go:embed shaders/blit_vram.wgsl
var blitVRAMShaderSource string

//go:embed shaders/primitive.wgsl
var primitiveShaderSource string

//go:embed shaders/scanout.wgsl
var scanoutShaderSource string

// compileShaderToSPIRV compiles WGSL source to a SPIR-V word stream, the
// same two-step naga.Compile + byte-to-uint32 repack the teacher's
// shader_helper.go uses for every GPU rasterizer tier.
func compileShaderToSPIRV(wgsl string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(wgsl)
	if err != nil {
		return nil, fmt.Errorf("psxcore/gpu: compile shader: %w", err)
	}
	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return words, nil
}

// createShaderModule compiles wgsl and loads it as a HAL shader module
// under label. The backend keeps the WGSL source around for HAL
// implementations (like wgpu/native) that accept WGSL directly and skip
// the SPIR-V round trip, falling back to the SPIR-V path otherwise.
func createShaderModule(device hal.Device, label, wgsl string) (hal.ShaderModule, error) {
	module, err := device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  label,
		Source: hal.ShaderSource{WGSL: wgsl},
	})
	if err == nil {
		return module, nil
	}

	spirv, compileErr := compileShaderToSPIRV(wgsl)
	if compileErr != nil {
		return nil, fmt.Errorf("psxcore/gpu: %s: WGSL path failed (%v), SPIR-V fallback failed: %w", label, err, compileErr)
	}
	return device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  label,
		Source: hal.ShaderSource{SPIRV: spirv},
	})
}
