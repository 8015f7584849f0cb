// rtcpair: CLI entry point.
//
// This tool runs two WebRTC endpoints in one process, negotiates a data
// channel between them (offer/answer plus trickled candidates) and verifies a
// round-trip message exchange. It exits 0 when both payloads arrive intact
// and 1 on any setup, parse, negotiation or verification failure.
//
// No flags are required; every setting has a default and can be overridden
// by flag, RTCPAIR_* environment variable or config file.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/1ureka/rtcpair/internal/app"
	"github.com/1ureka/rtcpair/internal/config"
	"github.com/1ureka/rtcpair/internal/negotiation"
	"github.com/1ureka/rtcpair/internal/util"
)

var version = "dev"

var (
	v          = config.New()
	configPath string
)

var rootCmd = &cobra.Command{
	Use:           "rtcpair",
	Short:         "Negotiate two in-process WebRTC endpoints and verify a message round trip",
	SilenceUsage:  true,
	SilenceErrors: true,
	Args:          cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.ReadFile(v, configPath); err != nil {
			return err
		}
		cfg, err := config.Load(v)
		if err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		return run(cmd.Context(), cfg)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version)
	},
}

func init() {
	flags := rootCmd.Flags()
	flags.StringVar(&configPath, "config", "", "config file (yaml, json or toml)")
	flags.Bool("debug", false, "enable debug logging")
	flags.Bool("trace", false, "like --debug, plus pion's internal logging")
	flags.String("relay", string(config.RelayDirect), "signaling carrier: direct or websocket")
	flags.Bool("loopback", false, "gather loopback candidates")
	flags.Duration("timeout", 0, "bound on the whole run (default 30s)")
	flags.StringSlice("stun", nil, "STUN server URIs")

	bind(flags.Lookup("debug"), config.KeyDebug)
	bind(flags.Lookup("trace"), config.KeyTrace)
	bind(flags.Lookup("relay"), config.KeyRelay)
	bind(flags.Lookup("loopback"), config.KeyLoopback)
	bind(flags.Lookup("timeout"), config.KeyTimeout)
	bind(flags.Lookup("stun"), config.KeySTUN)

	rootCmd.AddCommand(versionCmd)
}

func main() {
	// Root context, cancelled on Ctrl+C.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		util.LogError("%v", err)
		stop()
		os.Exit(1)
	}
}

// run executes a single negotiation and prints its summary.
func run(ctx context.Context, cfg *config.Config) error {
	teardown := app.Setup(ctx, cfg)
	defer teardown()

	pterm.Info.Println(fmt.Sprintf("rtcpair — v%s", version))
	pterm.Println()

	res, err := app.Run(ctx, cfg)
	if res != nil {
		printResult(res)
	}
	if err != nil {
		return err
	}

	util.LogSuccess("round trip verified in %s", res.Elapsed.Round(time.Millisecond))
	return nil
}

// printResult renders one row per endpoint.
func printResult(res *negotiation.Result) {
	data := pterm.TableData{
		{"Endpoint", "Sent", "Received", "Gathered", "Delivered", "Undelivered"},
	}
	for _, s := range []negotiation.SideResult{res.Initiator, res.Responder} {
		data = append(data, []string{
			s.Name, s.Sent, s.Received,
			strconv.Itoa(s.Gathered), strconv.Itoa(s.Delivered), strconv.Itoa(s.Undelivered),
		})
	}
	if err := pterm.DefaultTable.WithHasHeader().WithData(data).Render(); err != nil {
		util.LogWarning("failed to render summary: %v", err)
	}
}

// bind lets a flag override key. viper only prefers the flag when it was set
// on the command line, so defaults and environment values stay in effect.
func bind(flag *pflag.Flag, key string) {
	if err := v.BindPFlag(key, flag); err != nil {
		panic(err)
	}
}
