package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"cmosrtc-go/drivers/cmosrtc"
	"cmosrtc-go/drivers/rtc"
	"cmosrtc-go/types"
)

var readCmd = &cobra.Command{
	Use:   "read",
	Short: "Take one consistent reading of the clock",
	Long: `Read waits for the chip's update cycle to finish, reads the time
registers until two passes agree and converts BCD to binary when the chip
is in BCD mode. The year has no century.`,
	Args: cobra.NoArgs,
	RunE: runRead,
}

func runRead(cmd *cobra.Command, args []string) error {
	ports, err := openPorts()
	if err != nil {
		return err
	}
	defer ports.Close()

	dev := cmosrtc.New(ports, cmosrtc.Config{})
	var tp rtc.TimePoint
	if err := dev.ReadTimePoint(&tp); err != nil {
		return fmt.Errorf("read failed: %w", err)
	}
	st := dev.Stats()
	logger.Debug("read complete", "snapshots", st.Snapshots, "retries", st.Retries, "polls", st.Polls)
	return printReading(cmd.OutOrStdout(), tp, dev.LastReadBCD(), st.Retries)
}

func printReading(w io.Writer, tp rtc.TimePoint, bcd bool, retries uint32) error {
	if !outputJSON {
		_, err := fmt.Fprintln(w, tp.String())
		return err
	}
	return json.NewEncoder(w).Encode(types.RTCValue{
		Seconds:    tp.Seconds,
		Minutes:    tp.Minutes,
		Hours:      tp.Hours,
		DayOfMonth: tp.DayOfMonth,
		Month:      tp.Month,
		Year:       tp.Year,
		BCD:        bcd,
		Retries:    retries,
	})
}
