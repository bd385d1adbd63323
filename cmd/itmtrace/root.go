// Command itmtrace decodes an ITM trace stream (raw, or COBS+OrbFlow
// framed) from a file, TCP source, or serial probe, and prints the decoded
// frames or routes instrumentation channel data through configured format
// strings.
package main

import (
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/orbuculum-go/itmtrace/itm"
)

var (
	flagFile       string
	flagServer     string
	flagProtocol   string
	flagStream     int
	flagVerbose    bool
	flagExceptions string
	flagInterrupts string

	log = logrus.New()
)

var rootCmd = &cobra.Command{
	Use:   "itmtrace",
	Short: "Decode an ARM ITM trace stream",
	Long: "itmtrace decodes an ARM Cortex-M Instrumentation Trace Macrocell\n" +
		"byte stream, optionally unwrapping COBS framing and OrbFlow\n" +
		"stream multiplexing first, and prints or reformats the result.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if flagVerbose {
			log.SetLevel(logrus.DebugLevel)
		}
		log.Debugf("running %q", cmd.Name())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagFile, "file", "", "read trace data from FILE instead of the network")
	rootCmd.PersistentFlags().StringVar(&flagServer, "server", "", "connect to a remote trace source at HOST[:PORT]")
	rootCmd.PersistentFlags().StringVar(&flagProtocol, "protocol", "", "override the source protocol (oflow or itm)")
	rootCmd.PersistentFlags().IntVar(&flagStream, "stream", 0, "OrbFlow stream number to dispatch frames from (ignored for raw itm:// sources)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")

	rootCmd.PersistentFlags().StringVar(&flagExceptions, "exceptions", "", "show Exception frames for system exception numbers 0-15: a comma-separated list, or bare for all, absent for none")
	rootCmd.PersistentFlags().Lookup("exceptions").NoOptDefVal = "all"

	rootCmd.PersistentFlags().StringVar(&flagInterrupts, "interrupts", "", "show Exception frames for external interrupt numbers 16+: a comma-separated list, or bare for all, absent for none")
	rootCmd.PersistentFlags().Lookup("interrupts").NoOptDefVal = "all"
}

// systemExceptionCutoff is the first external-interrupt exception number;
// per DDI0553B, exception numbers below it are the fixed system exceptions
// (Reset, NMI, HardFault, ...), and numbers at or above it are IRQn+16.
const systemExceptionCutoff = 16

// numberFilter implements one of --exceptions/--interrupts: absent means
// nothing passes, bare means everything passes, and a comma-separated
// value list means only those numbers pass.
type numberFilter struct {
	all bool
	nos map[uint16]bool
}

func newNumberFilter(changed bool, raw string) numberFilter {
	if !changed {
		return numberFilter{}
	}
	if raw == "" || raw == "all" {
		return numberFilter{all: true}
	}
	nos := make(map[uint16]bool)
	for _, field := range strings.Split(raw, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		n, err := strconv.ParseUint(field, 0, 16)
		if err != nil {
			continue
		}
		nos[uint16(n)] = true
	}
	return numberFilter{nos: nos}
}

func (f numberFilter) allows(no uint16) bool {
	if f.all {
		return true
	}
	return f.nos[no]
}

// frameFilter gates Exception frames by --exceptions/--interrupts; every
// other frame type passes through untouched.
type frameFilter struct {
	exceptions numberFilter
	interrupts numberFilter
}

func newFrameFilter(cmd *cobra.Command) frameFilter {
	return frameFilter{
		exceptions: newNumberFilter(cmd.Flags().Changed("exceptions"), flagExceptions),
		interrupts: newNumberFilter(cmd.Flags().Changed("interrupts"), flagInterrupts),
	}
}

func (f frameFilter) allow(frame itm.Frame) bool {
	if frame.Type != itm.FrameException {
		return true
	}
	if frame.ExceptionNo < systemExceptionCutoff {
		return f.exceptions.allows(frame.ExceptionNo)
	}
	return f.interrupts.allows(frame.ExceptionNo)
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

func main() {
	Execute()
}
