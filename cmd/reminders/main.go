// Command reminders prints the recurring expenses whose reminder window is
// open today, for cron or a notification hook.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"spesacasa/internal/backend"
	"spesacasa/internal/cli"
	"spesacasa/internal/core"
	"spesacasa/internal/log"
	"spesacasa/internal/state"
	"spesacasa/internal/views"
)

func main() {
	asJSON := flag.Bool("json", false, "print reminders as JSON")
	on := flag.String("date", "", "evaluate reminders on this day (YYYY-MM-DD) instead of today")
	flag.Parse()

	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	base := cli.SetupLogger(cfg)
	logger := log.WithComponent(base, log.ComponentReminders)

	loc, err := cfg.Location()
	if err != nil {
		cli.Fatal(logger, "Invalid timezone", err, "timezone", cfg.Timezone)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		cli.Fatal(logger, "Invalid backend configuration", err)
	}
	bcfg.AMQPURL = ""
	be, err := backend.NewFactory(base).Create(ctx, bcfg)
	if err != nil {
		cli.Fatal(logger, "Failed to create backend", err, "backend", cfg.DataBackend)
	}
	defer be.Close()

	store := state.New(be.Gateway, state.WithLogger(base), state.WithLocation(loc))
	if err := store.Hydrate(ctx, cfg.FamilyID); err != nil {
		var herr *state.HydrationError
		if !errors.As(err, &herr) {
			cli.Fatal(logger, "Failed to load household data", err, log.FieldTenant, cfg.FamilyID)
		}
		logger.Warn("Household data partially loaded", log.FieldError, err)
	}

	today := store.Today()
	if *on != "" {
		if today, err = core.ParseDate(*on); err != nil {
			cli.Fatal(logger, "Invalid -date", err, "date", *on)
		}
	}
	due := store.DueRecurring(today)
	logger.Info("Reminders evaluated", log.FieldTenant, cfg.FamilyID, "date", today.String(), "due", len(due))

	if *asJSON {
		err = json.NewEncoder(os.Stdout).Encode(due)
	} else {
		err = printReminders(os.Stdout, today, due)
	}
	if err != nil {
		cli.Fatal(logger, "Failed to write reminders", err)
	}
}

func printReminders(w io.Writer, today core.Date, due []views.Reminder) error {
	if len(due) == 0 {
		_, err := fmt.Fprintf(w, "Nessuna scadenza per %s\n", today)
		return err
	}
	for _, r := range due {
		if _, err := fmt.Fprintf(w, "%-8s %s  %-30s %10s  %s\n",
			r.Status, r.Item.NextDueDate, r.Item.Product, r.Item.Amount, r.Item.Store); err != nil {
			return err
		}
	}
	return nil
}
