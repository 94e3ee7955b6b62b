// Command mosaic reconstructs a receiver image from tiles of a donor image.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/gogpu/mosaic"
	"github.com/gogpu/mosaic/gpu"
)

func main() {
	var (
		receiverPath = flag.String("receiver", "", "path to the receiver image (required)")
		donorPath    = flag.String("donor", "", "path to the donor image (required)")
		output       = flag.String("output", "mosaic.png", "output file")
		tileSize     = flag.Int("tile-size", 16, "square tile size in pixels")
		workers      = flag.Int("workers", 0, "CPU worker count (0 = GOMAXPROCS)")
		useGPU       = flag.Bool("gpu", false, "try GPU-accelerated cost-matrix construction")
		useYUV       = flag.Bool("yuv", true, "compare pixels in YUV space instead of raw RGB")
		wPixel       = flag.Float64("w-pixel", 1, "pixel-difference feature weight")
		wMean        = flag.Float64("w-mean", 0, "mean-color feature weight")
		wSobel       = flag.Float64("w-sobel", 0, "Sobel edge-structure feature weight")
		wDeep        = flag.Float64("w-deep", 0, "deep-embedding feature weight")
		verbose      = flag.Bool("v", false, "enable debug logging")
	)
	flag.Parse()

	if *receiverPath == "" || *donorPath == "" {
		log.Fatal("both -receiver and -donor are required")
	}

	if *verbose {
		mosaic.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	if *useGPU {
		if err := gpu.Register(); err != nil {
			log.Printf("gpu: %v, continuing on CPU", err)
		}
	}

	receiver, err := mosaic.LoadImage(*receiverPath)
	if err != nil {
		log.Fatalf("load receiver: %v", err)
	}
	donor, err := mosaic.LoadImage(*donorPath)
	if err != nil {
		log.Fatalf("load donor: %v", err)
	}

	orch := mosaic.NewOrchestrator(mosaic.WithWorkers(*workers))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	out, assignment, err := orch.Run(ctx, mosaic.Job{
		Receiver: receiver,
		Donor:    donor,
		TileSize: *tileSize,
		UseYUV:   *useYUV,
		Weights: mosaic.Weights{
			Pixel: *wPixel,
			Mean:  *wMean,
			Sobel: *wSobel,
			Deep:  *wDeep,
		},
	})
	if err != nil {
		log.Fatalf("reconstruct: %v", err)
	}

	if err := out.Save(*output); err != nil {
		log.Fatalf("save output: %v", err)
	}

	log.Printf("mosaic saved to %s (%dx%d, %d tiles, cost %.4f)",
		*output, out.Width, out.Height, len(assignment.ColInd), assignment.Cost)
}
