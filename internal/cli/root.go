// Package cli provides the rtcctl command-line interface.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"cmosrtc-go/drivers/cmosrtc/cmossim"
	"cmosrtc-go/services/config"
	"cmosrtc-go/x/portio"
)

var (
	// Version information set by main.
	versionInfo struct {
		Version string
		Commit  string
		Date    string
	}

	// Global flags
	cfgFile    string
	logLevel   string
	outputJSON bool
	simulate   bool
	binaryMode bool
	devicePath string

	logger *log.Logger
)

// SetVersionInfo sets the version information from main.
func SetVersionInfo(version, commit, date string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.Date = date
}

var rootCmd = &cobra.Command{
	Use:   "rtcctl",
	Short: "Read the PC CMOS real-time clock",
	Long: `rtcctl reads date and time from the CMOS real-time clock through
I/O ports 0x70 and 0x71. On Linux it uses /dev/port, which needs root.
Use --simulate to run against an in-memory chip instead.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initLogger(cmd.ErrOrStderr())
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// ExecuteContext runs the root command with a context for graceful shutdown.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	logger = log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true})

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file layered over the built-in defaults")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error); default from config")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "output readings as JSON")
	rootCmd.PersistentFlags().BoolVar(&simulate, "simulate", false, "use a simulated chip that follows the host clock")
	rootCmd.PersistentFlags().BoolVar(&binaryMode, "binary", false, "simulated chip stores binary instead of BCD")
	rootCmd.PersistentFlags().StringVar(&devicePath, "device", portio.DefaultPath, "port device")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(readCmd)
	rootCmd.AddCommand(watchCmd)
}

// initLogger applies --log-level, falling back to log.level from config.
func initLogger(w io.Writer) error {
	level := logLevel
	if level == "" {
		v, err := config.Load(config.DefaultDevice, cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		level = v.GetString("log.level")
	}
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	logger = log.NewWithOptions(w, log.Options{ReportTimestamp: true, Level: lvl})
	log.SetDefault(logger)
	return nil
}

// portBackend is a port device that may need closing.
type portBackend interface {
	ReadPort(port uint16) (uint8, error)
	WritePort(port uint16, v uint8) error
	Close() error
}

type simBackend struct{ *cmossim.Chip }

func (simBackend) Close() error { return nil }

func openPorts() (portBackend, error) {
	if simulate {
		logger.Debug("using simulated chip", "binary", binaryMode)
		return simBackend{cmossim.NewClock(binaryMode)}, nil
	}
	p, err := portio.Open(devicePath)
	if err != nil {
		return nil, err
	}
	return p, nil
}
