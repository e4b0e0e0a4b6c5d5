// edgectl is a small command-line front end for the edge API client:
// list zones, list DNS records, read and write storage values. Credentials
// come from flags or the environment (EDGE_API_TOKEN), optionally loaded
// from a .env file.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"github.com/opengovern/edgeclient"
	"github.com/opengovern/edgeclient/resources"
)

var (
	baseURL string
	token   string
	isDebug bool
)

var rootCmd = &cobra.Command{
	Use:   "edgectl",
	Short: "Client for the edge platform API",
	Long:  `edgectl talks to the edge platform REST API through a resilient client: retries, circuit breaking, and quota-aware throttling are applied to every call.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&baseURL, "base-url", "https://api.edge.example.com/v4", "API base URL")
	rootCmd.PersistentFlags().StringVar(&token, "token", "", "API token (defaults to EDGE_API_TOKEN)")
	rootCmd.PersistentFlags().BoolVar(&isDebug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(zonesCmd, recordsCmd, kvGetCmd, kvPutCmd)
}

func newClient() (*edgeclient.Client, error) {
	_ = godotenv.Load()

	if token == "" {
		token = os.Getenv("EDGE_API_TOKEN")
	}
	if token == "" {
		return nil, fmt.Errorf("no API token: pass --token or set EDGE_API_TOKEN")
	}

	level := slog.LevelInfo
	if isDebug {
		level = slog.LevelDebug
	}
	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	}))

	cfg := edgeclient.DefaultConfig()
	cfg.Logger = logger
	cfg.TotalTimeout = 2 * time.Minute
	return edgeclient.NewClient(baseURL, edgeclient.TokenCredentials{Token: token}, cfg)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

var zonesCmd = &cobra.Command{
	Use:   "zones",
	Short: "List zones",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		ctx, cancel := signalContext()
		defer cancel()

		zones := resources.NewZones(client)
		for zone, err := range zones.List(ctx, resources.ZoneListOptions{}) {
			if err != nil {
				return err
			}
			fmt.Printf("%s\t%s\t%s\n", zone.ID, zone.Name, zone.Status)
		}
		return nil
	},
}

var recordsCmd = &cobra.Command{
	Use:   "records <zone-id>",
	Short: "List DNS records in a zone",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		ctx, cancel := signalContext()
		defer cancel()

		records := resources.NewRecords(client, args[0])
		for rec, err := range records.List(ctx, resources.RecordListOptions{}) {
			if err != nil {
				return err
			}
			fmt.Printf("%s\t%s\t%s -> %s\n", rec.ID, rec.Type, rec.Name, rec.Content)
		}
		return nil
	},
}

var kvGetCmd = &cobra.Command{
	Use:   "kv-get <namespace> <key>",
	Short: "Read a storage value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		ctx, cancel := signalContext()
		defer cancel()

		value, err := resources.NewStorage(client, args[0]).Get(ctx, args[1])
		if err != nil {
			return err
		}
		if value == nil {
			return fmt.Errorf("key %q not found", args[1])
		}
		_, err = os.Stdout.Write(value)
		return err
	},
}

var kvPutCmd = &cobra.Command{
	Use:   "kv-put <namespace> <key> <value>",
	Short: "Write a storage value",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		ctx, cancel := signalContext()
		defer cancel()

		return resources.NewStorage(client, args[0]).Put(ctx, args[1], []byte(args[2]))
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
