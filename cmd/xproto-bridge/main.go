// Command xproto-bridge runs one end of an X-Protocol transfer over TCP or
// a serial line, for exercising ReadX/WriteX end to end without BLE hardware attached.
//
// Purpose:	Bridge a file to a peer over X-Protocol, as sender or receiver.
package main

import (
	"fmt"
	"net"
	"os"
	"strconv"

	charmlog "github.com/charmbracelet/log"
	flag "github.com/spf13/pflag"

	"github.com/doismellburning/samoyed-hal/discovery"
	"github.com/doismellburning/samoyed-hal/internal/cfgfile"
	"github.com/doismellburning/samoyed-hal/internal/logx"
	"github.com/doismellburning/samoyed-hal/transport/serial"
	"github.com/doismellburning/samoyed-hal/transport/tcp"
	"github.com/doismellburning/samoyed-hal/xproto"
)

var log = logx.For("xproto-bridge")

type bridgeConfig struct {
	MTU            int    `yaml:"mtu"`
	StartTimeoutMs uint32 `yaml:"start_timeout_ms"`
	AckTimeoutMs   uint32 `yaml:"ack_timeout_ms"`
	SendRedundancy int    `yaml:"send_redundancy"`
	MaxRetries     int    `yaml:"max_retries"`
}

func defaultConfig() bridgeConfig {
	return bridgeConfig{MTU: 185, StartTimeoutMs: 2000, AckTimeoutMs: 2000, SendRedundancy: 1, MaxRetries: 5}
}

func main() {
	var (
		mode          = flag.String("mode", "send", "send or recv")
		transportName = flag.String("transport", "tcp", "tcp or serial")
		addr          = flag.String("addr", "localhost:8237", "peer address for send mode, or listen address for recv mode (-transport=tcp)")
		device        = flag.String("device", "", "serial device node to use (-transport=serial); empty discovers one via udev, falling back to a loopback pty")
		baud          = flag.Int("baud", 115200, "serial baud rate (-transport=serial)")
		file          = flag.String("file", "", "file to send (send mode) or write to (recv mode)")
		cfgPath       = flag.String("config", "", "optional YAML config overriding defaults")
		announce      = flag.Bool("announce", false, "advertise this bridge over mDNS (recv mode, -transport=tcp)")
		verbose       = flag.BoolP("verbose", "v", false, "debug logging")
	)
	flag.Parse()

	if *verbose {
		logx.SetLevel(charmlog.DebugLevel)
	}

	cfg := defaultConfig()
	if *cfgPath != "" {
		if err := cfgfile.Load(*cfgPath, &cfg); err != nil {
			log.Fatal("loading config", "err", err)
		}
	}

	if *file == "" {
		log.Fatal("--file is required")
	}

	if *transportName != "tcp" && *transportName != "serial" {
		fmt.Fprintf(os.Stderr, "unknown transport %q: expected tcp or serial\n", *transportName)
		os.Exit(2)
	}

	switch *mode {
	case "send":
		runSend(*transportName, *addr, *device, *baud, *file, cfg)
	case "recv":
		runRecv(*transportName, *addr, *device, *baud, *file, cfg, *announce)
	default:
		fmt.Fprintf(os.Stderr, "unknown mode %q: expected send or recv\n", *mode)
		os.Exit(2)
	}
}

func runSend(transportName, addr, device string, baud int, file string, cfg bridgeConfig) {
	data, err := os.ReadFile(file)
	if err != nil {
		log.Fatal("reading file", "err", err)
	}

	conn, closeFn := dialTransport(transportName, addr, device, baud)
	defer closeFn()

	rcfg := xproto.ReadXConfig{
		MTU:            cfg.MTU,
		SendRedundancy: cfg.SendRedundancy,
		StartTimeoutMs: cfg.StartTimeoutMs,
		AckTimeoutMs:   cfg.AckTimeoutMs,
	}
	if err := xproto.ReadX(conn, data, rcfg); err != nil {
		log.Fatal("ReadX failed", "err", err)
	}
	log.Info("transfer complete", "bytes", len(data))
}

func runRecv(transportName, addr, device string, baud int, file string, cfg bridgeConfig, announce bool) {
	conn, closeFn := acceptTransport(transportName, addr, device, baud, announce)
	defer closeFn()

	wcfg := xproto.WriteXConfig{MTU: cfg.MTU, TimeoutMs: cfg.AckTimeoutMs, MaxRetries: cfg.MaxRetries}
	data, err := xproto.WriteX(conn, make([]byte, 16*1024*1024), wcfg)
	if err != nil {
		log.Fatal("WriteX failed", "err", err)
	}

	if err := os.WriteFile(file, data, 0o644); err != nil {
		log.Fatal("writing output file", "err", err)
	}
	log.Info("transfer complete", "bytes", len(data))
}

// dialTransport opens the sending side of the chosen transport and returns
// it alongside a cleanup func.
func dialTransport(transportName, addr, device string, baud int) (xproto.Transport, func()) {
	switch transportName {
	case "serial":
		port, err := openSerialDevice(device, baud)
		if err != nil {
			log.Fatal("opening serial transport", "err", err)
		}
		return port, func() { _ = port.Close() }
	default:
		conn, err := tcp.Dial(addr)
		if err != nil {
			log.Fatal("dialing peer", "err", err)
		}
		return conn, func() { _ = conn.Close() }
	}
}

// acceptTransport opens the receiving side of the chosen transport. For tcp
// this means listening and accepting one connection; a serial line is
// already point-to-point, so opening it is enough.
func acceptTransport(transportName, addr, device string, baud int, announce bool) (xproto.Transport, func()) {
	switch transportName {
	case "serial":
		port, err := openSerialDevice(device, baud)
		if err != nil {
			log.Fatal("opening serial transport", "err", err)
		}
		return port, func() { _ = port.Close() }
	default:
		ln, err := tcp.Listen(addr)
		if err != nil {
			log.Fatal("listening", "err", err)
		}

		var advStop func()
		if announce {
			adv, err := discovery.Announce("xproto-bridge", listenPort(ln))
			if err != nil {
				log.Warn("mDNS announce failed", "err", err)
			} else {
				advStop = adv.Stop
			}
		}

		log.Info("waiting for peer", "addr", ln.Addr())
		nc, err := ln.Accept()
		if err != nil {
			log.Fatal("accept", "err", err)
		}
		_ = ln.Close()
		conn := tcp.Wrap(nc)
		return conn, func() {
			_ = conn.Close()
			if advStop != nil {
				advStop()
			}
		}
	}
}

// openSerialDevice attaches to an explicit device node, or discovers one via
// udev, or - if neither is available - falls back to a local loopback pty so
// -transport=serial can be exercised without a board attached.
func openSerialDevice(device string, baud int) (*serial.Port, error) {
	if device != "" {
		return serial.Open(device, baud)
	}

	candidates, err := serial.DiscoverCandidates()
	if err == nil && len(candidates) > 0 {
		chosen := candidates[0]
		log.Info("discovered serial device", "devnode", chosen.DevNode, "vendor", chosen.Vendor, "model", chosen.Model)
		return serial.Open(chosen.DevNode, baud)
	}

	log.Warn("no serial device specified or discovered, using loopback pty", "err", err)
	port, ttyName, err := serial.OpenPTY()
	if err != nil {
		return nil, err
	}
	log.Info("loopback pty ready", "tty", ttyName)
	return port, nil
}

func listenPort(ln net.Listener) int {
	_, portStr, err := net.SplitHostPort(ln.Addr().String())
	if err != nil {
		return 0
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return 0
	}
	return port
}
