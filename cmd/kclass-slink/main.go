package main

/*
kclass-slink connects to a SEEDLink server, measures K-Class amplitudes at each
station for events read from the fdsn.event table, and saves station
magnitudes to the DB.
*/

import (
	"context"
	"log"
	"os"
	"strings"
	"time"

	"github.com/GeoNet/kclass/internal/platform/cfg"
	"github.com/GeoNet/kit/metrics"
	"github.com/GeoNet/kit/seis/sl"
	"github.com/jonboulle/clockwork"
	_ "github.com/lib/pq"
)

var server = os.Getenv("SLINK_HOST")
var settingsFile = os.Getenv("KCLASS_SETTINGS")
var netto = 60 * time.Second
var keepalive = 1 * time.Second
var streams = "NZ_*"

// records are kept for replay into cycles for events that arrive late.
const bufferFor = 10 * time.Minute

// cycles that have not finished after deadline are reset.
const deadline = 15 * time.Minute

func main() {
	s, err := cfg.ReadSettings(settingsFile)
	if err != nil {
		log.Fatalf("reading settings from %s: %s", settingsFile, err)
	}

	a := app{
		settings: s,
		clock:    clockwork.NewRealClock(),
	}

	err = a.initDB()
	if err != nil {
		log.Fatal(err)
	}
	defer a.close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.ctx = ctx

	go a.save(ctx)
	go a.poll(ctx, time.Now().UTC().Add(-bufferFor))

	log.Println("listening for packets from seedlink")

	// the program exits on a full process chan and the service should restart it.
	process := make(chan []byte, 20000)

	go func() {
		for b := range process {
			err := metrics.DoProcess(&a, b)
			if err != nil {
				log.Printf("processing record: %s", err)
			}
		}
	}()

	codes := s.Codes()
	start := time.Now().UTC().Add(-bufferFor)

	for {
		slink := sl.NewSLink(
			sl.SetServer(server),
			sl.SetNetTo(netto),
			sl.SetKeepAlive(keepalive),
			sl.SetStart(start),
			sl.SetStreams(streams),
			sl.SetSelectors(strings.Join(codes[:], " ")),
		)

		if err := slink.CollectWithContext(ctx, func(seq string, data []byte) (bool, error) {
			select {
			case process <- data:
			default:
				log.Fatal("process chan full, exiting")
			}
			return false, nil
		}); err != nil {
			log.Println("slink.Collect:", err)
		}

		start = time.Now().UTC().Add(-netto)
	}
}
