// Command psxreplay replays an RSXDUMP2 command stream through a
// psxcore.Renderer and reports the hazard/flush traffic it produced,
// mirroring cmd/ggdemo's flag-driven structure. With -headless (the
// default) it drives gpu.HeadlessBackend, which needs no GPU device, and
// writes a blank placeholder PNG sized to the scaled framebuffer to -output
// (headless mode renders no pixels). Device/instance acquisition is out of
// this command's scope (spec §1 leaves the GPU abstraction layer's
// swapchain/device setup to the embedding application), so
// -headless=false here only reports that boundary and exits.
package main

import (
	"flag"
	"fmt"
	"image"
	"image/png"
	"io"
	"log"
	"os"

	"github.com/gogpu/psxcore"
	"github.com/gogpu/psxcore/cmdstream"
	"github.com/gogpu/psxcore/gpu"
)

func main() {
	var (
		input    = flag.String("input", "", "RSXDUMP2 command stream file")
		output   = flag.String("output", "replay.png", "output PNG path (headless mode writes a blank placeholder; empty to skip)")
		scale    = flag.Int("scale", 2, "VRAM upscale factor")
		headless = flag.Bool("headless", true, "use the CPU-only headless backend instead of a real GPU device")
	)
	flag.Parse()

	if *input == "" {
		log.Fatal("psxreplay: -input is required")
	}

	f, err := os.Open(*input)
	if err != nil {
		log.Fatalf("psxreplay: open %s: %v", *input, err)
	}
	defer f.Close()

	reader, err := cmdstream.NewReader(f)
	if err != nil {
		log.Fatalf("psxreplay: %v", err)
	}

	if !*headless {
		log.Fatal("psxreplay: -headless=false requires a real hal.Device/Queue this command does not construct; see gpu.NewBackend")
	}

	backend := gpu.NewHeadlessBackend()
	renderer := psxcore.NewRenderer(backend, psxcore.WithScale(*scale))
	backend.SetRenderer(renderer)

	count, err := replay(reader, renderer)
	if err != nil && err != io.EOF {
		log.Fatalf("psxreplay: %v", err)
	}

	log.Printf("psxreplay: replayed %d records (%d flushes, %d resolves, %d hazards, %d discards)",
		count, len(backend.Flushes), len(backend.Resolves), len(backend.Hazards), backend.Discards)

	if *output != "" {
		if err := writePlaceholderPNG(*output, psxcore.FBWidth**scale, psxcore.FBHeight**scale); err != nil {
			log.Fatalf("psxreplay: write %s: %v", *output, err)
		}
		log.Printf("psxreplay: wrote %s (headless mode has no GPU pixels; this is a blank placeholder sized to the scaled framebuffer)", *output)
	}
}

// replay drives renderer with every record from reader in order, translating
// each RSXDUMP2 opcode into the matching Renderer Facade call (spec §6.1).
func replay(reader *cmdstream.Reader, renderer *psxcore.Renderer) (int, error) {
	count := 0
	for {
		rec, err := reader.Next()
		if err != nil {
			return count, err
		}
		count++

		switch rec.Op {
		case cmdstream.OpEnd:
			return count, nil
		case cmdstream.OpPrepareFrame, cmdstream.OpFinalizeFrame, cmdstream.OpTexWindow,
			cmdstream.OpDrawOffset, cmdstream.OpDrawArea, cmdstream.OpDisplayMode, cmdstream.OpToggleDisplay:
			// Display/raster-state bookkeeping outside the Renderer Facade's
			// hazard-tracked surface; nothing to replay against psxcore.
		case cmdstream.OpTriangle:
			renderer.DrawTriangle(toPsxVertices3(rec.Triangle.Vertices))
		case cmdstream.OpQuad:
			renderer.DrawQuad(toPsxVertices4(rec.Quad.Vertices))
		case cmdstream.OpLine:
			renderer.DrawLine(toPsxVertices2(rec.Line.Vertices))
		case cmdstream.OpLoadImage:
			rect := psxcore.Rect{X: int(rec.LoadImage.X), Y: int(rec.LoadImage.Y), W: int(rec.LoadImage.Width), H: int(rec.LoadImage.Height)}
			renderer.CopyCPUToVRAM(rect, rec.LoadImage.Data)
		case cmdstream.OpFillRect:
			rect := psxcore.Rect{X: int(rec.FillRect.X), Y: int(rec.FillRect.Y), W: int(rec.FillRect.Width), H: int(rec.FillRect.Height)}
			renderer.ClearRect(rect, rec.FillRect.Color)
		case cmdstream.OpCopyRect:
			src := psxcore.Rect{X: int(rec.CopyRect.SrcX), Y: int(rec.CopyRect.SrcY), W: int(rec.CopyRect.Width), H: int(rec.CopyRect.Height)}
			dst := psxcore.Rect{X: int(rec.CopyRect.DstX), Y: int(rec.CopyRect.DstY), W: int(rec.CopyRect.Width), H: int(rec.CopyRect.Height)}
			renderer.BlitVRAM(dst, src)
		default:
			return count, fmt.Errorf("psxreplay: unhandled opcode %d", rec.Op)
		}
	}
}

func toPsxVertices3(v [3]cmdstream.Vertex) [3]psxcore.Vertex {
	var out [3]psxcore.Vertex
	for i, vv := range v {
		out[i] = toPsxVertex(vv)
	}
	return out
}

func toPsxVertices4(v [4]cmdstream.Vertex) [4]psxcore.Vertex {
	var out [4]psxcore.Vertex
	for i, vv := range v {
		out[i] = toPsxVertex(vv)
	}
	return out
}

func toPsxVertices2(v [2]cmdstream.Vertex) [2]psxcore.Vertex {
	var out [2]psxcore.Vertex
	for i, vv := range v {
		out[i] = toPsxVertex(vv)
	}
	return out
}

func toPsxVertex(v cmdstream.Vertex) psxcore.Vertex {
	return psxcore.Vertex{
		X: v.X, Y: v.Y, W: v.W,
		Color: v.Color,
		U:     uint8(v.U),
		V:     uint8(v.V),
	}
}

func writePlaceholderPNG(path string, w, h int) error {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer out.Close()
	return png.Encode(out, img)
}
