package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/snapdeck/snapdeck/internal/capture"
)

var monitorsCmd = &cobra.Command{
	Use:   "monitors",
	Short: "List the displays available for capture",
	RunE: func(cmd *cobra.Command, args []string) error {
		src := capture.New()
		defer src.Close()

		monitors, err := capture.Monitors(cmd.Context(), src)
		if err != nil {
			return err
		}
		for _, m := range monitors {
			fmt.Println(m)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(monitorsCmd)
}
