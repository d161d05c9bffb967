/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/swiftcart/apiserver/config"
	"github.com/swiftcart/apiserver/internal/events"
)

// eventsCmd represents the events command.
var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Work with the order event stream",
}

var eventsListenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Consume order events and print them",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()

		var backend events.Backend
		var err error
		switch cfg.EventsBackend {
		case config.EventsBackendRabbitMQ:
			backend, err = events.NewRabbitMQClient(cfg.RabbitMQ)
		case config.EventsBackendPubSub:
			backend, err = events.NewPubSubClient(cmd.Context(), cfg.PubSub)
		default:
			return fmt.Errorf("no events backend configured (EVENTS_BACKEND=%q)", cfg.EventsBackend)
		}
		if err != nil {
			return fmt.Errorf("connect events backend: %w", err)
		}

		bus := events.NewBus(backend)
		defer func() {
			_ = bus.Close()
		}()

		return bus.SubscribeOrderEvents(cmd.Context(), func(ctx context.Context, msg events.Message) error {
			fmt.Printf("%s %s\n", msg.ID, msg.Data)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.AddCommand(eventsListenCmd)
}
