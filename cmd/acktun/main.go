// Command acktun runs one endpoint of the TCP-over-TCP tunnel described in
// the design: it bridges a local tun/tap interface to a carrier TCP
// connection, pacing traffic in both directions and fabricating duplicate
// ACKs on the reverse path when the tap→sock queue threatens to overflow.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/acktun/acktun/internal/config"
	"github.com/acktun/acktun/internal/device"
	"github.com/acktun/acktun/internal/trace"
	"github.com/acktun/acktun/internal/tunnel"
)

func usage() {
	fmt.Fprintf(os.Stderr, `acktun - TCP-over-TCP tunnel with ACK-spoofing congestion signalling

USAGE:
  acktun -i <ifname> (-s | -c <ip>) [-p <port>] [-u | -a] [-d] [-config <file>]

FLAGS:
  -i <ifname>   Local tun/tap interface name (required)
  -s            Run as server: bind/listen/accept on -p
  -c <ip>       Run as client: connect to <ip>:-p
  -p <port>     Carrier TCP port (default 55555)
  -u            tun mode, IPv4 only (default)
  -a            tap mode, Ethernet; ACK spoofing is undefined in this mode
  -d            Enable rate-limited debug packet tracing to acktun.pcap
  -config <file> Optional YAML file overlaying pacing interval, queue
                capacity, and high-water mark onto the defaults
  -h            Show this message
`)
}

func run() error {
	ifname := flag.String("i", "", "tun/tap interface name")
	server := flag.Bool("s", false, "run as server")
	clientAddr := flag.String("c", "", "server ip to connect to (client role)")
	port := flag.Int("p", 0, "carrier TCP port (0 = use config/default)")
	tun := flag.Bool("u", false, "tun mode (default)")
	tap := flag.Bool("a", false, "tap mode")
	debug := flag.Bool("d", false, "enable debug packet tracing")
	configPath := flag.String("config", "", "optional YAML settings file")
	flag.Usage = usage
	flag.Parse()

	settings, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	settings.Interface = *ifname
	settings.Server = *server
	settings.PeerAddr = *clientAddr
	if *port != 0 {
		settings.Port = *port
	}
	settings.Tap = *tap && !*tun
	settings.Debug = *debug

	if err := settings.Validate(); err != nil {
		usage()
		return err
	}

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	var tr *trace.Tracer
	if settings.Debug {
		f, err := os.Create("acktun.pcap")
		if err != nil {
			return fmt.Errorf("acktun: create trace file: %w", err)
		}
		defer f.Close()
		tr, err = trace.New(f, log)
		if err != nil {
			return fmt.Errorf("acktun: start tracer: %w", err)
		}
	}

	mode := device.Tun
	if settings.Tap {
		mode = device.Tap
	}

	var tapFD, sockFD device.FD
	g := new(errgroup.Group)
	g.Go(func() error {
		var err error
		tapFD, err = device.OpenTun(settings.Interface, mode)
		return err
	})
	g.Go(func() error {
		var err error
		if settings.Server {
			sockFD, err = device.ListenAndAccept(settings.Port)
		} else {
			sockFD, err = device.DialCarrier(settings.PeerAddr, settings.Port)
		}
		return err
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("acktun: startup: %w", err)
	}

	log.Info("acktun: started", "interface", settings.Interface, "server", settings.Server,
		"port", settings.Port, "pacing", settings.PacingInterval, "capacity", settings.QueueCapacity)

	ep := tunnel.New(tapFD, sockFD, settings.QueueCapacity, settings.HighWater, settings.PacingInterval, log, tr)
	if err := ep.Run(); err != nil {
		return fmt.Errorf("acktun: %w", err)
	}
	return nil
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "acktun: %v\n", err)
		os.Exit(1)
	}
}
