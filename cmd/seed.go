package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Billy-Davies-2/fightpick/internal/config"
	"github.com/Billy-Davies-2/fightpick/internal/dal"
	"github.com/Billy-Davies-2/fightpick/internal/logger"
	"github.com/Billy-Davies-2/fightpick/internal/pubsub"
)

var resetFirst bool

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert the demo predictions into an empty store",
	RunE:  seed,
}

func init() {
	seedCmd.Flags().BoolVar(&resetFirst, "reset", false, "delete every stored prediction before seeding")
	rootCmd.AddCommand(seedCmd)
}

func seed(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := dal.Open(dal.Options{
		Driver:     cfg.DB.Driver,
		SQLiteFile: cfg.DB.SQLiteFile,
		URL:        cfg.DB.URL,
	})
	if err != nil {
		return err
	}
	defer store.Close()

	publish, closeAnnouncer, err := openAnnouncer(cfg.Events)
	if err != nil {
		return err
	}
	defer closeAnnouncer()

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	_, err = seedStore(ctx, store, resetFirst, publish)
	return err
}

// openAnnouncer returns a publisher on the bus running servers share. Only
// the nats backend crosses process boundaries; for the others events are
// dropped.
func openAnnouncer(cfg config.EventsConfig) (func(pubsub.Event), func(), error) {
	if cfg.Backend != "nats" {
		return func(ev pubsub.Event) {
			logger.Debug("No shared event bus, not announcing", "type", ev.Type, "backend", cfg.Backend)
		}, func() {}, nil
	}

	remote, err := pubsub.NewNATSPubSub(pubsub.NATSOptions{
		URL:     cfg.URL,
		Subject: cfg.Subject,
		Stream:  cfg.Stream,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return remote.Publish, remote.Close, nil
}

// seedStore optionally empties store, then seeds it, announcing each change
// through publish
func seedStore(ctx context.Context, store dal.PredictionDAL, reset bool, publish func(pubsub.Event)) (int, error) {
	if reset {
		if err := store.Reset(ctx); err != nil {
			return 0, fmt.Errorf("reset store: %w", err)
		}
		logger.Info("Store reset")
		publish(pubsub.Event{Type: pubsub.EventPredictionsReset, Time: time.Now().UTC()})
	}

	n, err := store.Seed(ctx)
	if err != nil {
		return 0, fmt.Errorf("seed store: %w", err)
	}
	if n == 0 {
		logger.Info("Store already has predictions, nothing seeded")
		return 0, nil
	}
	logger.Info("Seeded demo predictions", "count", n)
	publish(pubsub.Event{
		Type:    pubsub.EventPredictionsSeeded,
		Time:    time.Now().UTC(),
		Payload: map[string]interface{}{"count": n},
	})
	return n, nil
}
