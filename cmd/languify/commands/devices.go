package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/princeofnothin/teste-languify/pkg/audio/portaudio"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List audio devices",
	Long: `List the audio devices PortAudio can see. talk uses the default input
and output; a device whose default rate differs from 24 kHz is resampled.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		devices, err := portaudio.Devices()
		if err != nil {
			return fmt.Errorf("list devices: %w", err)
		}
		defer portaudio.Terminate()

		if outputJSON {
			return outputResult(cmd, devices)
		}
		for _, d := range devices {
			if d.Name == "" {
				continue
			}
			fmt.Fprintln(cmd.OutOrStdout(), d.String())
		}
		return nil
	},
}
