package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/orbuculum-go/itmtrace/collector"
	"github.com/orbuculum-go/itmtrace/internal/channelfmt"
	"github.com/orbuculum-go/itmtrace/internal/logging"
	"github.com/orbuculum-go/itmtrace/internal/transport"
	"github.com/orbuculum-go/itmtrace/itm"
)

var (
	catConfigPath string
	catConfigINI  string
)

var catCmd = &cobra.Command{
	Use:   "cat",
	Short: "Print Instrumentation frames through configured per-channel format strings",
	Long: "Print Instrumentation frames through configured per-channel format\n" +
		"strings. Exception/interrupt entry, exit, and return events are also\n" +
		"printed, but only for the numbers --exceptions and --interrupts select.",
	Run: func(cmd *cobra.Command, args []string) {
		only := -1
		if cmd.Flags().Changed("channel") {
			only, _ = cmd.Flags().GetInt("channel")
		}
		runCat(only, newFrameFilter(cmd))
	},
}

func init() {
	catCmd.Flags().StringVar(&catConfigPath, "config", "", "TOML channel format config (default: built-in)")
	catCmd.Flags().StringVar(&catConfigINI, "config-ini", "", "legacy Orbuculum-style .ini channel format config")
	catCmd.Flags().Int("channel", 0, "only print this instrumentation channel number")
	rootCmd.AddCommand(catCmd)
}

// catHandler renders Instrumentation frames through a channelfmt.Config,
// filtering to a single channel when only >= 0, and gates Exception frames
// through filter (--exceptions/--interrupts); everything else is ignored.
type catHandler struct {
	conf   *channelfmt.Config
	only   int
	filter frameFilter
}

func (h catHandler) Process(f itm.Frame) bool {
	if !h.filter.allow(f) {
		return true
	}

	if f.Type == itm.FrameException {
		if f.ExceptionNo < systemExceptionCutoff {
			fmt.Printf("EXCEPTION %d %s\n", f.ExceptionNo, f.Event)
		} else {
			fmt.Printf("INTERRUPT %d %s\n", f.ExceptionNo-systemExceptionCutoff, f.Event)
		}
		return true
	}

	if f.Type != itm.FrameInstrumentation {
		return true
	}
	addr := int(f.Addr)
	if h.only >= 0 && addr != h.only {
		return true
	}
	ch, ok := h.conf.ByNumber(addr)
	if !ok {
		return true
	}
	data := make([]byte, f.Len)
	for i := range data {
		data[i] = byte(f.Data >> (8 * uint(i)))
	}
	text, _ := channelfmt.Render(ch.Format, data)
	fmt.Print(text)
	return true
}

func (catHandler) StateInd(e collector.Error) {
	if e.Kind != collector.NoError {
		fmt.Fprintf(os.Stderr, "itmtrace: %s\n", e.Error())
	}
}

func runCat(only int, filter frameFilter) {
	var conf *channelfmt.Config
	var err error
	switch {
	case catConfigINI != "":
		conf, err = channelfmt.LoadINI(catConfigINI)
	default:
		conf, err = channelfmt.LoadTOML(catConfigPath)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "itmtrace: %v\n", err)
		os.Exit(1)
	}

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

	result := c.CollectData(catHandler{conf: conf, only: only, filter: filter})
	if result.Kind != collector.Reset {
		fmt.Fprintf(os.Stderr, "itmtrace: stopped: %v\n", result)
	}
}
