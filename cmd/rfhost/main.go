// Command rfhost is a minimal host process: it creates the shared segment
// for one proxy device, announces it in the control file, keeps the host
// heartbeat alive, and drains the ring through the EQ engine until
// interrupted. Processed audio is discarded unless -out names a WAV file.
package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/radioform/radioform/driver"
	"github.com/radioform/radioform/host"
	"github.com/radioform/radioform/shmem"
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("rfhost: ")

	var (
		name       = flag.String("name", "Radioform", "device display name")
		uid        = flag.String("uid", "radioform-main", "device UID")
		rate       = flag.Uint("rate", 48000, "sample rate")
		duration   = flag.Uint("duration", shmem.RingDurationMSDefault, "ring duration in ms")
		control    = flag.String("control", driver.ControlFilePath, "control file path")
		outPath    = flag.String("out", "", "optional WAV capture of processed audio")
		formatName = flag.String("format", "float32", "ring format: float32, float64, int16, int24, int32")
	)
	flag.Parse()

	format, ok := parseFormat(*formatName)
	if !ok {
		log.Fatalf("unknown format %q", *formatName)
	}

	consumer, err := host.NewRingConsumer(*uid, uint32(*rate), 2, format, uint32(*duration))
	if err != nil {
		log.Fatalf("create segment: %v", err)
	}

	if err := host.PublishDevice(*control, *name, *uid); err != nil {
		log.Fatalf("publish: %v", err)
	}

	beater := host.NewHeartbeatBeater(consumer.Segment())
	beater.Start()

	log.Printf("serving %q uid=%s at %s", *name, *uid, consumer.Segment().Path())

	var (
		capture  *wav.Encoder
		captureF *os.File
	)

	if *outPath != "" {
		captureF, err = os.Create(*outPath)
		if err != nil {
			log.Fatalf("create %s: %v", *outPath, err)
		}

		capture = wav.NewEncoder(captureF, int(*rate), 16, 2, 1)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	// Pull 10 ms blocks at their realtime pace.
	blockFrames := int(*rate) / 100
	block := make([]float32, 2*blockFrames)
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

loop:
	for {
		select {
		case <-sig:
			break loop
		case <-ticker.C:
			consumer.Read(block, blockFrames)

			if capture != nil {
				if err := writeBlock(capture, block, int(*rate)); err != nil {
					log.Printf("capture: %v", err)
					capture = nil
				}
			}
		}
	}

	log.Printf("shutting down")

	if err := host.UnpublishDevice(*control, *uid); err != nil {
		log.Printf("unpublish: %v", err)
	}

	beater.Stop()

	if capture != nil {
		if err := capture.Close(); err != nil {
			log.Printf("capture close: %v", err)
		}
	}

	if captureF != nil {
		captureF.Close()
	}

	if err := consumer.Close(); err != nil {
		log.Printf("close: %v", err)
	}
}

func parseFormat(name string) (shmem.Format, bool) {
	switch name {
	case "float32":
		return shmem.FormatFloat32, true
	case "float64":
		return shmem.FormatFloat64, true
	case "int16":
		return shmem.FormatInt16, true
	case "int24":
		return shmem.FormatInt24, true
	case "int32":
		return shmem.FormatInt32, true
	default:
		return 0, false
	}
}

func writeBlock(enc *wav.Encoder, block []float32, rate int) error {
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 2, SampleRate: rate},
		Data:           make([]int, len(block)),
		SourceBitDepth: 16,
	}

	for i, v := range block {
		if v > 1 {
			v = 1
		}

		if v < -1 {
			v = -1
		}

		buf.Data[i] = int(v * 32767)
	}

	return enc.Write(buf)
}
