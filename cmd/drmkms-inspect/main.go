// drmkms-inspect opens a DRM device, prints its enumerated topology, and
// optionally drives a test-only atomic modeset through it end to end.
//
// Usage: drmkms-inspect [--configure]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/helixml/drmkms/pkg/drmkms"
	"github.com/helixml/drmkms/pkg/drmkms/drmconfig"
)

func main() {
	configure := flag.Bool("configure", false, "select a pipeline and submit a TEST_ONLY atomic commit")
	flag.Parse()

	cfg, err := drmconfig.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "drmkms-inspect: load config: %v\n", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))

	if cfg.DryRun {
		logger.Info("drmkms-inspect: dry run, not opening a device", "device", cfg.DevicePath)
		return
	}

	dev, err := drmkms.Open(cfg.DevicePath, drmkms.WithLogger(logger))
	if err != nil {
		fmt.Fprintf(os.Stderr, "drmkms-inspect: open %s: %v\n", cfg.DevicePath, err)
		os.Exit(1)
	}
	defer dev.Close()

	printTopology(dev)

	if *configure {
		if err := configureAndTest(dev); err != nil {
			fmt.Fprintf(os.Stderr, "drmkms-inspect: configure: %v\n", err)
			os.Exit(1)
		}
	}
}

func printTopology(dev *drmkms.Device) {
	fmt.Println("=== DRM/KMS Topology ===")
	for _, c := range dev.Connectors() {
		fmt.Printf("connector %d: %s, %d encoder(s), %d mode(s)\n",
			c.ID, c.Connection, len(c.EncoderIDs), len(c.Modes()))
		for _, m := range c.Modes() {
			fmt.Printf("  mode %q: %dx%d @%dHz\n", m.Name, m.Hdisplay, m.Vdisplay, m.Vrefresh)
		}
	}
	for _, e := range dev.Encoders() {
		fmt.Printf("encoder %d: possible_crtcs=%#x\n", e.ID, e.PossibleCRTCs)
	}
	for _, c := range dev.CRTCs() {
		fmt.Printf("crtc %d (index %d): %d propert(y/ies)\n", c.ID, c.Index, c.Properties.Len())
	}
	for _, p := range dev.Planes() {
		fmt.Printf("plane %d: type=%s, %d format(s)\n", p.ID, p.Type, len(p.Formats))
	}
}

// configureAndTest picks the first connected connector and its first
// compatible encoder/CRTC/mode, configures the pipeline, and submits a
// TEST_ONLY|ALLOW_MODESET commit to confirm the kernel would accept it
// without actually changing what's on screen.
func configureAndTest(dev *drmkms.Device) error {
	var chosenConn *drmkms.Connector
	for _, c := range dev.Connectors() {
		if c.Connection == drmkms.ConnectionConnected && len(c.Modes()) > 0 {
			chosenConn = c
			break
		}
	}
	if chosenConn == nil {
		return fmt.Errorf("no connected connector with advertised modes")
	}

	encByID := make(map[uint32]*drmkms.Encoder)
	for _, e := range dev.Encoders() {
		encByID[e.ID] = e
	}
	crtcs := dev.CRTCs()

	var chosenEnc *drmkms.Encoder
	var chosenCRTC *drmkms.CRTC
	for _, encID := range chosenConn.EncoderIDs {
		enc, ok := encByID[encID]
		if !ok {
			continue
		}
		for _, crtc := range crtcs {
			if enc.PossibleCRTCs&(1<<uint(crtc.Index)) != 0 {
				chosenEnc = enc
				chosenCRTC = crtc
				break
			}
		}
		if chosenEnc != nil {
			break
		}
	}
	if chosenEnc == nil || chosenCRTC == nil {
		return fmt.Errorf("no compatible encoder/CRTC for connector %d", chosenConn.ID)
	}

	mode := chosenConn.Modes()[0]
	if err := dev.Configure(chosenConn.ID, chosenEnc.ID, chosenCRTC.ID, mode); err != nil {
		return fmt.Errorf("configure: %w", err)
	}

	req, err := dev.NewRequest()
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	defer req.Destroy()

	var flags uint32 = drmkms.FlagTestOnly
	if err := req.PutModesetProperties(&flags); err != nil {
		return fmt.Errorf("put modeset properties: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := req.Commit(ctx, flags, 0); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	fmt.Printf("TEST_ONLY commit succeeded: connector %d, encoder %d, crtc %d, mode %q\n",
		chosenConn.ID, chosenEnc.ID, chosenCRTC.ID, mode.Name)
	return nil
}
