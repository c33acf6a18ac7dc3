// Command reactor-demo exercises timers, an immediate callback, and a
// pipe-backed readable watcher against a single [reactor.Reactor].
//
// Run with: go run ./cmd/reactor-demo
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/873379619/reactor"
)

func main() {
	interval := flag.Duration("interval", 200*time.Millisecond, "repeating timer interval")
	ticks := flag.Int("ticks", 5, "number of repeating-timer fires before shutdown")
	flag.Parse()

	r := reactor.New()
	start := time.Now()

	r.Immediately(func(r *reactor.Reactor, id reactor.WatcherID) {
		fmt.Println("immediate: reactor started")
	})

	pr, pw, err := os.Pipe()
	if err != nil {
		log.Fatalf("reactor-demo: creating pipe: %v", err)
	}
	defer pr.Close()
	defer pw.Close()

	readHandle, err := reactor.NewFDHandle(pr)
	if err != nil {
		log.Fatalf("reactor-demo: wrapping pipe read end: %v", err)
	}

	r.OnReadable(readHandle, func(r *reactor.Reactor, id reactor.WatcherID, stream reactor.StreamHandle) {
		buf := make([]byte, 64)
		n, _ := pr.Read(buf)
		fmt.Printf("readable: got %q\n", string(buf[:n]))
	}, true)

	r.Once(func(r *reactor.Reactor, id reactor.WatcherID) {
		fmt.Fprintln(pw, "hello from a one-shot timer")
	}, float64(50))

	count := 0
	var repeatID reactor.WatcherID
	repeatID = r.Repeat(func(r *reactor.Reactor, id reactor.WatcherID) {
		count++
		fmt.Printf("repeat %d: elapsed %v\n", count, time.Since(start).Round(time.Millisecond))
		if count >= *ticks {
			r.Cancel(repeatID)
			r.Stop()
		}
	}, float64(interval.Milliseconds()))

	if err := r.Run(nil); err != nil {
		log.Fatalf("reactor-demo: %v", err)
	}

	m := r.Metrics()
	fmt.Printf("done: ticks=%d timers_fired=%d immediates_fired=%d reads_fired=%d\n",
		m.Ticks, m.TimersFired, m.ImmediatesFired, m.ReadsFired)
}
