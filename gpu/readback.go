//go:build !nogpu

package gpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/psxcore"
)

// ReadScanout copies the current scaled framebuffer to a staging buffer
// and reads it back to the CPU as tightly-packed RGBA8 rows, the same
// CopyTextureToBuffer + ReadBuffer round trip GPURenderSession's
// encodeSubmitReadback performs for gg's CPU-visible render targets. It
// opens and submits its own one-shot command buffer rather than reusing
// the frame encoder, since readback must happen strictly after the frame
// that produced the pixels has been submitted and waited on.
func (b *Backend) ReadScanout() (pixels []byte, width, height int, err error) {
	width = psxcore.FBWidth * b.textures.scale
	height = psxcore.FBHeight * b.textures.scale

	encoder, err := b.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "psxcore_readback"})
	if err != nil {
		return nil, 0, 0, fmt.Errorf("psxcore/gpu: create readback encoder: %w", err)
	}
	if err := encoder.BeginEncoding("psxcore_readback"); err != nil {
		return nil, 0, 0, fmt.Errorf("psxcore/gpu: begin readback encoding: %w", err)
	}

	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: b.textures.scaledTex,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageRenderAttachment,
			NewUsage: gputypes.TextureUsageCopySrc,
		},
	}})

	bytesPerRow := uint32(width) * 4
	const copyPitchAlignment = 256
	alignedBytesPerRow := (bytesPerRow + copyPitchAlignment - 1) &^ (copyPitchAlignment - 1)
	stagingSize := uint64(alignedBytesPerRow) * uint64(height)

	staging, err := b.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "psxcore_readback_staging",
		Size:  stagingSize,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		encoder.DiscardEncoding()
		return nil, 0, 0, fmt.Errorf("psxcore/gpu: create readback staging buffer: %w", err)
	}
	defer b.device.DestroyBuffer(staging)

	encoder.CopyTextureToBuffer(b.textures.scaledTex, staging, []hal.BufferTextureCopy{{
		BufferLayout: hal.ImageDataLayout{Offset: 0, BytesPerRow: alignedBytesPerRow, RowsPerImage: uint32(height)},
		TextureBase:  hal.ImageCopyTexture{Texture: b.textures.scaledTex, MipLevel: 0},
		Size:         hal.Extent3D{Width: uint32(width), Height: uint32(height), DepthOrArrayLayers: 1},
	}})

	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: b.textures.scaledTex,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageCopySrc,
			NewUsage: gputypes.TextureUsageRenderAttachment,
		},
	}})

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return nil, 0, 0, fmt.Errorf("psxcore/gpu: end readback encoding: %w", err)
	}
	defer b.device.FreeCommandBuffer(cmdBuf)

	fence, err := b.device.CreateFence()
	if err != nil {
		return nil, 0, 0, fmt.Errorf("psxcore/gpu: create readback fence: %w", err)
	}
	defer b.device.DestroyFence(fence)

	if err := b.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return nil, 0, 0, fmt.Errorf("psxcore/gpu: submit readback: %w", err)
	}
	ok, err := b.device.Wait(fence, 1, defaultFrameTimeout)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("psxcore/gpu: wait for readback: %w", err)
	}
	if !ok {
		return nil, 0, 0, fmt.Errorf("psxcore/gpu: %w", ErrDeviceLost)
	}

	raw := make([]byte, stagingSize)
	if err := b.queue.ReadBuffer(staging, 0, raw); err != nil {
		return nil, 0, 0, fmt.Errorf("psxcore/gpu: readback: %w", err)
	}

	if alignedBytesPerRow == bytesPerRow {
		return raw, width, height, nil
	}
	tight := make([]byte, uint64(bytesPerRow)*uint64(height))
	for row := 0; row < height; row++ {
		srcOff := row * int(alignedBytesPerRow)
		dstOff := row * int(bytesPerRow)
		copy(tight[dstOff:dstOff+int(bytesPerRow)], raw[srcOff:srcOff+int(bytesPerRow)])
	}
	return tight, width, height, nil
}
