/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/nethesis/appointments-notifier/configuration"
	"github.com/nethesis/appointments-notifier/logs"
	"github.com/nethesis/appointments-notifier/methods"
	"github.com/nethesis/appointments-notifier/mqtt"
	"github.com/nethesis/appointments-notifier/page"
	"github.com/nethesis/appointments-notifier/store"
)

func main() {
	// init logger
	logs.Init("appointments-notifier")

	// init configuration
	configuration.Init()

	if err := createCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func createCommand() *cobra.Command {
	var email, password string
	var noConnect bool

	cmd := &cobra.Command{
		Use:   "appointments-notifier",
		Short: "Receive appointment notifications for a doctor account",
		Long: `appointments-notifier logs in to the appointments backend and prints every
notification published on the doctor appointment topic.

Environment Variables:
  APPOINTMENTS_NOTIFIER_API_URL       Backend URL (default: http://localhost:8080)
  APPOINTMENTS_NOTIFIER_WS_ENDPOINT   Messaging endpoint (default: <API_URL>/ws)
  APPOINTMENTS_NOTIFIER_WS_TRANSPORT  sockjs or websocket (default: sockjs)
  APPOINTMENTS_NOTIFIER_MQTT_HOST     Relay notifications to this MQTT broker`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			pg := page.NewTerminal(cmd.OutOrStdout(), email, password)
			return run(ctx, pg, !noConnect)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Account email, prompted when missing")
	cmd.Flags().StringVar(&password, "password", "", "Account password, prompted when missing")
	cmd.Flags().BoolVar(&noConnect, "no-connect", false, "Only log in, do not subscribe to notifications")

	return cmd
}

// run logs in and, when connect is set, delivers notifications until ctx is
// done or the subscription ends
func run(ctx context.Context, pg page.Page, connect bool) error {
	session, err := store.NewSession()
	if err != nil {
		return err
	}

	if err := methods.NewAuthenticator(session, pg).Login(ctx); err != nil {
		return err
	}

	// warn when the token expires, there is no refresh
	watcher := methods.NewTokenWatcher(session)
	c := cron.New()
	if _, err := c.AddFunc(configuration.Config.TokenCheckSchedule, func() { watcher.CheckTokenExpiry() }); err != nil {
		logs.Log("[WARNING][CRON] Invalid token check schedule: " + err.Error())
	}
	c.Start()
	defer c.Stop()

	if !connect {
		return nil
	}

	notifier := methods.NewNotifier(session, pg)
	if relay := mqtt.Init(); relay != nil {
		notifier.Relay = relay
		defer relay.Close()
	}

	if err := notifier.Connect(ctx); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		if err := notifier.Close(); err != nil {
			logs.Log("[WARNING][WS] Disconnect failed: " + err.Error())
		}
		select {
		case <-notifier.Done():
		case <-time.After(5 * time.Second):
		}
	case <-notifier.Done():
	}

	return nil
}
