// Command rfstat prints the header and statistics of a live shared-audio
// segment without touching its connection flags. The argument is either a
// segment file path or a device UID.
package main

import (
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/radioform/radioform/shmem"
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("rfstat: ")
	flag.Parse()

	if flag.NArg() != 1 {
		log.Fatal("usage: rfstat <segment-path | device-uid>")
	}

	arg := flag.Arg(0)

	path := arg
	if !strings.HasPrefix(arg, "/") {
		path = shmem.PathForUID(arg)
	}

	info, err := shmem.Inspect(path)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("segment       %s\n", path)
	fmt.Printf("protocol      0x%08x (header %d bytes)\n", info.ProtocolVersion, info.HeaderSize)
	fmt.Printf("format        %d Hz, %d ch, %s (%d bytes/frame)\n",
		info.SampleRate, info.Channels, info.Format, info.BytesPerFrame)
	fmt.Printf("ring          %d frames (%d ms)\n", info.RingCapacityFrames, info.RingDurationMS)
	fmt.Printf("capabilities  driver=0x%02x host=0x%02x\n", info.DriverCapabilities, info.HostCapabilities)
	fmt.Printf("created       %s\n", time.Unix(int64(info.CreationTimestamp), 0).Format(time.RFC3339))
	fmt.Printf("indices       write=%d read=%d used=%d\n",
		info.WriteIndex, info.ReadIndex, info.WriteIndex-info.ReadIndex)
	fmt.Printf("totals        written=%d read=%d\n", info.TotalFramesWritten, info.TotalFramesRead)
	fmt.Printf("incidents     overruns=%d underruns=%d format-mismatches=%d format-changes=%d\n",
		info.OverrunCount, info.UnderrunCount, info.FormatMismatchCount, info.FormatChangeCounter)
	fmt.Printf("driver        connected=%v heartbeat=%d\n", info.DriverConnected, info.DriverHeartbeat)
	fmt.Printf("host          connected=%v heartbeat=%d\n", info.HostConnected, info.HostHeartbeat)
}
