// Command tracker runs a campaign tracking session against the configured
// durable store, optionally joined to a relay so other devices hear about
// saves.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"time"

	"github.com/ematosg/spiretracker/internal/campaign/domain"
	"github.com/ematosg/spiretracker/internal/history"
	"github.com/ematosg/spiretracker/internal/notify"
	"github.com/ematosg/spiretracker/internal/platform/cmd"
	"github.com/ematosg/spiretracker/internal/platform/config"
	"github.com/ematosg/spiretracker/internal/platform/id"
	"github.com/ematosg/spiretracker/internal/rules"
	"github.com/ematosg/spiretracker/internal/storage"
	"github.com/ematosg/spiretracker/internal/storage/bbolt"
	"github.com/ematosg/spiretracker/internal/storage/sqlite"
	syncctl "github.com/ematosg/spiretracker/internal/sync"
)

type trackerConfig struct {
	Backend      string `env:"SPIRETRACKER_BACKEND" envDefault:"bbolt"`
	DBPath       string `env:"SPIRETRACKER_DB_PATH" envDefault:"spiretracker.db"`
	UserID       string `env:"SPIRETRACKER_USER" envDefault:"local"`
	ClientID     string `env:"SPIRETRACKER_CLIENT_ID"`
	Actor        string `env:"SPIRETRACKER_ACTOR" envDefault:"gm"`
	ActorRole    string `env:"SPIRETRACKER_ACTOR_ROLE" envDefault:"gamemaster"`
	RelayURL     string `env:"SPIRETRACKER_RELAY_URL"`
	CampaignName string `env:"SPIRETRACKER_CAMPAIGN_NAME" envDefault:"New Campaign"`
}

func main() {
	var cfg trackerConfig
	fs := flag.NewFlagSet(cmd.ServiceTracker, flag.ExitOnError)
	if err := cmd.ParseConfigFromArgs(&cfg, fs, os.Args[1:]); err != nil {
		config.Exitf("tracker: %v", err)
	}

	ctx := context.Background()
	if err := cmd.RunWithTelemetry(ctx, cmd.ServiceTracker, func(ctx context.Context) error {
		return run(ctx, cfg)
	}); err != nil {
		config.Exitf("tracker: %v", err)
	}
}

func openStore(cfg trackerConfig) (storage.Store, error) {
	switch cfg.Backend {
	case "bbolt":
		return bbolt.Open(cfg.DBPath)
	case "sqlite":
		return sqlite.Open(cfg.DBPath)
	}
	return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
}

func run(ctx context.Context, cfg trackerConfig) error {
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	clientID := cfg.ClientID
	if clientID == "" {
		if clientID, err = id.NewID(); err != nil {
			return err
		}
	}

	set := domain.NewCampaignSet()
	session := &syncctl.SessionContext{
		UserID:    cfg.UserID,
		ClientID:  clientID,
		Actor:     cfg.Actor,
		ActorRole: cfg.ActorRole,
		Set:       &set,
	}

	broker := notify.NewBroker()
	notifier := notify.New(broker.Attach())
	controller := syncctl.NewController(session, store, notifier)
	if err := notifier.Start(ctx); err != nil {
		return err
	}
	defer notifier.Close()

	if cfg.RelayURL != "" {
		notifier.SetTransport(ctx, notify.NewWebsocketTransport(cfg.RelayURL))
		if notifier.Downgraded() {
			log.Printf("relay unavailable, running local-only: %v", notifier.LastError())
		}
	}

	switch err := controller.Load(ctx); {
	case errors.Is(err, storage.ErrNotFound):
		if err := seed(ctx, controller, cfg.CampaignName); err != nil {
			return err
		}
	case err != nil:
		return err
	}

	return demonstrate(ctx, controller, session)
}

// seed creates the first campaign for a fresh store.
func seed(ctx context.Context, controller *syncctl.Controller, name string) error {
	campaign, err := domain.CreateCampaign(domain.CreateCampaignInput{Name: name}, time.Now, nil)
	if err != nil {
		return err
	}
	scope := history.Scope{Kind: history.ScopeCampaign, CampaignID: campaign.ID}
	outcome, err := controller.Mutate(ctx, scope, "create campaign", func(set *domain.CampaignSet) error {
		set.PutCampaign(campaign)
		return nil
	})
	if err != nil {
		return err
	}
	log.Printf("seeded campaign %q at revision %s", name, outcome.Revision)
	return nil
}

// demonstrate walks one short play loop: introduce a character, mark stress
// against them, and undo the stress again.
func demonstrate(ctx context.Context, controller *syncctl.Controller, session *syncctl.SessionContext) error {
	campaign, ok := session.Set.Active()
	if !ok {
		return fmt.Errorf("no active campaign")
	}
	scope := history.Scope{Kind: history.ScopeCampaign, CampaignID: campaign.ID}

	entity, err := domain.CreateEntity(domain.CreateEntityInput{
		Name:  "Sable",
		Kind:  domain.EntityKindPC,
		Class: "Knight",
	}, nil)
	if err != nil {
		return err
	}

	outcome, err := controller.Mutate(ctx, scope, "introduce Sable", func(set *domain.CampaignSet) error {
		c, err := set.Campaign(campaign.ID)
		if err != nil {
			return err
		}
		c.PutEntity(entity)
		c.Touch(time.Now)
		set.PutCampaign(c)
		return nil
	})
	if err != nil {
		return err
	}
	log.Printf("introduced %s: status=%s revision=%s", entity.Name, outcome.Status, outcome.Revision)

	outcome, err = controller.Mutate(ctx, scope, "mark blood stress", func(set *domain.CampaignSet) error {
		c, err := set.Campaign(campaign.ID)
		if err != nil {
			return err
		}
		target, err := c.Entity(entity.ID)
		if err != nil {
			return err
		}
		result, err := rules.ApplyStress(&target, domain.ResistanceBlood, 3, func(n int) int {
			return rand.IntN(n) + 1
		})
		if err != nil {
			return err
		}
		if result.Severity != rules.FalloutNone {
			log.Printf("fallout: %s", result.Fallout)
		}
		c.PutEntity(target)
		c.Touch(time.Now)
		set.PutCampaign(c)
		return nil
	})
	if err != nil {
		return err
	}
	log.Printf("marked stress: status=%s revision=%s", outcome.Status, outcome.Revision)

	outcome, err = controller.Undo(ctx, scope)
	if err != nil {
		return err
	}
	log.Printf("undid stress: status=%s revision=%s queued=%d", outcome.Status, outcome.Revision, controller.QueuedOps())
	return nil
}
