// Command twheel runs a time wheel on the wall clock and fires a few demo
// tasks until interrupted.
package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hongker/go-timewheel/conf"
	"github.com/hongker/go-timewheel/dispatch"
	"github.com/hongker/go-timewheel/driver"
	"github.com/hongker/go-timewheel/mailbox"
	"github.com/hongker/go-timewheel/timewheel"
)

var confPath string

func init() {
	flag.StringVar(&confPath, "conf", "", "config path, defaults are used when empty")
}

func main() {
	flag.Parse()
	logger := log.New(os.Stderr, "[twheel] ", log.LstdFlags)

	c := conf.Default()
	if confPath != "" {
		var err error
		if c, err = conf.Load(confPath); err != nil {
			logger.Fatalf("load config %s: %v", confPath, err)
		}
	}

	tw := timewheel.New(c.Wheel.InitialTick,
		timewheel.WithMaxTimers(c.Wheel.MaxTimers),
		timewheel.WithStartEpoch(uint64(time.Now().UnixNano())),
	)
	registry, err := dispatch.New(tw,
		dispatch.WithPool(c.Dispatch.Workers),
		dispatch.WithMachineID(c.Dispatch.MachineID),
		dispatch.WithLogger(logger),
	)
	if err != nil {
		logger.Fatalf("create registry: %v", err)
	}
	d := driver.New(tw, registry.Fire,
		driver.WithResolution(c.Driver.Resolution.Duration),
		driver.WithLogger(logger),
	)

	mb := mailbox.New(mailbox.WithMaxTime(time.Second))
	if _, err := registry.AfterPost(d.Ticks(1500*time.Millisecond), mb, "hello from the wheel"); err != nil {
		logger.Fatalf("arm post: %v", err)
	}
	if _, err := registry.Every(d.Ticks(time.Second), func() {
		st := tw.Stats()
		bts, err := st.MarshalMsg(nil)
		if err != nil {
			logger.Printf("marshal stats: %v", err)
			return
		}
		logger.Printf("tick=%d armed=%d fired=%d stats=%dB", st.Now, st.Armed, st.Fired, len(bts))
	}); err != nil {
		logger.Fatalf("arm stats: %v", err)
	}

	d.Start()
	go func() {
		for {
			msgs, err := mb.Get()
			if err != nil {
				return
			}
			for _, m := range msgs {
				logger.Printf("mailbox: %v", m)
			}
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	d.Stop()
	mb.Dispose()
	registry.Close()
	armed := tw.Len()
	if err := tw.Release(); err != nil {
		logger.Printf("release: %v", err)
	}
	logger.Printf("stopped, %d timers cancelled", armed)
}
