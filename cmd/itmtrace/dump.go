package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/orbuculum-go/itmtrace/collector"
	"github.com/orbuculum-go/itmtrace/internal/logging"
	"github.com/orbuculum-go/itmtrace/internal/transport"
	"github.com/orbuculum-go/itmtrace/itm"
)

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Print every decoded ITM frame to stdout",
	Long: "Print every decoded ITM frame to stdout. Exception frames are hidden\n" +
		"unless --exceptions and/or --interrupts select them.",
	Run: func(cmd *cobra.Command, args []string) {
		runDump(newFrameFilter(cmd))
	},
}

func init() {
	rootCmd.AddCommand(dumpCmd)
}

// dumpHandler implements collector.FrameHandler by printing each frame that
// passes filter.
type dumpHandler struct {
	filter frameFilter
}

func (h dumpHandler) Process(f itm.Frame) bool {
	if !h.filter.allow(f) {
		return true
	}
	fmt.Println(f.String())
	return true
}

func (dumpHandler) StateInd(e collector.Error) {
	if e.Kind != collector.NoError {
		fmt.Fprintf(os.Stderr, "itmtrace: %s\n", e.Error())
	}
}

func runDump(filter frameFilter) {
	addrOpt := func(s string) *string {
		if s == "" {
			return nil
		}
		return &s
	}
	addr := transport.CalculateURL(addrOpt(flagFile), addrOpt(flagServer), addrOpt(flagProtocol))

	lvl := logging.SeverityWarning
	if flagVerbose {
		lvl = logging.SeverityDebug
	}
	lg := logging.New("COLLECTOR", lvl, os.Stderr)

	c, err := collector.New(addr, byte(flagStream), lg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "itmtrace: %v\n", err)
		os.Exit(1)
	}
	defer c.Close()

	result := c.CollectData(dumpHandler{filter: filter})
	if result.Kind != collector.Reset {
		fmt.Fprintf(os.Stderr, "itmtrace: stopped: %v\n", result)
	}
}
