package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/snapdeck/snapdeck/internal/config"
	"github.com/snapdeck/snapdeck/internal/errors"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the snapdeck configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write an annotated sample config to the default location",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfgPath
		if path == "" {
			path = config.DefaultPath()
		}
		if path == "" {
			return errors.New(errors.CodeConfigInvalid, "no config location, pass --config")
		}
		if _, err := os.Stat(path); err == nil {
			return errors.Newf(errors.CodeConfigInvalid, "config already exists at %s", path)
		}
		if err := config.WriteSample(path); err != nil {
			return err
		}
		fmt.Println("wrote", path)
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file location",
	Run: func(cmd *cobra.Command, args []string) {
		path := cfgPath
		if path == "" {
			path = config.DefaultPath()
		}
		fmt.Println(path)
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}
