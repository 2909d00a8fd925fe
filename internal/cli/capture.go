package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/snapdeck/snapdeck/internal/export"
	"github.com/snapdeck/snapdeck/internal/hotkey"
	"github.com/snapdeck/snapdeck/internal/server"
	"github.com/snapdeck/snapdeck/internal/session"
)

var captureFlags struct {
	region      string
	interval    float64
	threshold   float64
	method      string
	sensitivity string
	monitor     int
	stopKey     string
	output      string
	formats     []string
	embedAddr   string
	listen      string
}

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Run a capture session and export the resulting deck",
	RunE: func(cmd *cobra.Command, args []string) error {
		applyCaptureFlags(cmd)

		sessCfg, err := cfg.Session()
		if err != nil {
			return err
		}
		// A bad format name must fail here, not after the session ends
		// with the slides only in memory.
		if err := export.ValidateFormats(cfg.Output.Formats); err != nil {
			return err
		}

		sess, err := session.Start(cmd.Context(), sessCfg)
		if err != nil {
			return err
		}
		defer sess.Close()

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		// Optional live status endpoint.
		if cfg.Server.Listen != "" {
			srv := server.New(sess)
			go func() {
				if err := srv.Serve(ctx, cfg.Server.Listen); err != nil {
					slog.Error("status server error", "error", err)
				}
			}()
		}

		// Stop on the configured key, Ctrl-C, or SIGTERM.
		listener, err := hotkey.New(sessCfg.StopKey, os.Stdin)
		if err != nil {
			return err
		}
		if err := listener.Start(); err != nil {
			slog.Warn("stop key unavailable, use Ctrl-C", "error", err)
		}

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigCh)

		go func() {
			select {
			case <-listener.Pressed():
				slog.Info("stop key pressed")
			case <-sigCh:
				slog.Info("signal received")
			case <-ctx.Done():
			}
			sess.Cancel()
		}()

		fmt.Fprintf(os.Stderr, "capturing every %s, press %q to stop\r\n", sessCfg.Interval, sessCfg.StopKey)
		runErr := sess.Run(ctx)

		// Leave raw mode before any further terminal output.
		if cerr := listener.Close(); cerr != nil {
			slog.Warn("terminal restore failed", "error", cerr)
		}

		// Export whatever was collected, even after a mid-session failure.
		deck, err := export.FromSession(sess)
		if err != nil {
			return err
		}
		if deck.Store.Len() > 0 {
			if err := export.Run(context.Background(), deck, cfg.Output.Path, cfg.Output.Formats); err != nil {
				return err
			}
			fmt.Printf("captured %d slides to %s\n", deck.Store.Len(), cfg.Output.Path)
		} else {
			fmt.Println("no slides captured")
		}

		return runErr
	},
}

// applyCaptureFlags overlays explicitly set flags on the file/env config.
func applyCaptureFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	if f.Changed("region") {
		cfg.Capture.Region = captureFlags.region
	}
	if f.Changed("interval") {
		cfg.Capture.Interval = captureFlags.interval
	}
	if f.Changed("threshold") {
		cfg.Capture.Threshold = captureFlags.threshold
	}
	if f.Changed("method") {
		cfg.Capture.Method = captureFlags.method
	}
	if f.Changed("sensitivity") {
		cfg.Capture.Sensitivity = captureFlags.sensitivity
	}
	if f.Changed("monitor") {
		cfg.Capture.Monitor = captureFlags.monitor
	}
	if f.Changed("stop-key") {
		cfg.Capture.StopKey = captureFlags.stopKey
	}
	if f.Changed("output") {
		cfg.Output.Path = captureFlags.output
	}
	if f.Changed("format") {
		cfg.Output.Formats = captureFlags.formats
	}
	if f.Changed("embed-addr") {
		cfg.Embed.Addr = captureFlags.embedAddr
	}
	if f.Changed("listen") {
		cfg.Server.Listen = captureFlags.listen
	}
}

func init() {
	f := captureCmd.Flags()
	f.StringVar(&captureFlags.region, "region", "", `capture region "x1,y1,x2,y2" (default: full monitor)`)
	f.Float64VarP(&captureFlags.interval, "interval", "i", 5.0, "seconds between captures")
	f.Float64VarP(&captureFlags.threshold, "threshold", "t", 0, "difference threshold (default: per-method)")
	f.StringVarP(&captureFlags.method, "method", "m", "mse", "comparison method: mse, ssim, phash, embed")
	f.StringVarP(&captureFlags.sensitivity, "sensitivity", "s", "", "preset: low, medium, high (overrides threshold)")
	f.IntVar(&captureFlags.monitor, "monitor", 0, "monitor index")
	f.StringVar(&captureFlags.stopKey, "stop-key", "q", "key that ends the session")
	f.StringVarP(&captureFlags.output, "output", "o", "./presentation", "output directory")
	f.StringSliceVar(&captureFlags.formats, "format", []string{"images"}, "export formats: images, manifest, html")
	f.StringVar(&captureFlags.embedAddr, "embed-addr", "", "embedding sidecar address for the embed method")
	f.StringVar(&captureFlags.listen, "listen", "", "serve live status on this address")

	rootCmd.AddCommand(captureCmd)
}
