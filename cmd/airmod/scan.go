// cmd/airmod/scan.go
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ventio/airmod/internal/registers"
	"github.com/ventio/airmod/internal/scanner"
	"github.com/ventio/airmod/internal/transport"
)

var scanUnit string

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "One-shot capability scan, prints the device profile",
	RunE:  runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().StringVar(&scanUnit, "unit", "", "Unit id (optional when only one is configured)")
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	unit, err := findUnit(cfg, scanUnit)
	if err != nil {
		return err
	}

	catalog, err := registers.Load()
	if err != nil {
		return err
	}

	client, err := transport.Dial(unit.Transport())
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sc := &scanner.Scanner{
		Client:     client,
		Catalog:    catalog,
		MaxBlock:   unit.Poll.MaxBlockSize,
		Policy:     unit.Policy(),
		Classifier: unit.Classifier(),
		Logger:     log.New(os.Stderr, unit.ID+" ", log.LstdFlags),
	}

	profile, err := sc.Scan(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("unit:     %s\n", unit.ID)
	fmt.Printf("catalog:  %s (%d registers)\n", catalog.Version, catalog.Len())
	if profile.Firmware != "" {
		fmt.Printf("firmware: %s\n", profile.Firmware)
	}
	if profile.Serial != "" {
		fmt.Printf("serial:   %s\n", profile.Serial)
	}
	fmt.Printf("requests: %d\n", profile.Requests)
	fmt.Printf("profile:  %s\n\n", profile.Summary())

	for _, fn := range registers.Functions {
		printArea(catalog, profile, fn)
	}
	return nil
}

func printArea(catalog *registers.Catalog, profile *scanner.Profile, fn registers.Function) {
	supported := profile.SupportedAddresses(fn)
	unsupported := profile.UnsupportedAddresses(fn)
	failed := profile.FailedAddresses(fn)
	if len(supported)+len(unsupported)+len(failed) == 0 {
		return
	}

	fmt.Printf("%s:\n", fn)
	for _, addr := range supported {
		def, ok := catalog.Lookup(fn, addr)
		if !ok {
			continue // trailing word of a two-word register
		}
		fmt.Printf("  0x%04X  %s\n", addr, def.Name)
	}
	for _, addr := range unsupported {
		fmt.Printf("  0x%04X  (not implemented)\n", addr)
	}
	for _, addr := range failed {
		fmt.Printf("  0x%04X  (scan failed, will retry on rescan)\n", addr)
	}
	fmt.Println()
}
