package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"todo-service/internal/api"
	"todo-service/internal/bot"
	"todo-service/internal/service"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API (and the Telegram bot when configured)",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	addr := a.cfg.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	server, err := api.NewServer(api.Options{
		Todos:      a.todos,
		Categories: a.categories,
		Stats:      a.stats,
		Transfer:   a.transfer,
		Logger:     log.New(os.Stderr, "api: ", log.LstdFlags),
		CORSOrigin: a.cfg.CORSOrigin,
	})
	if err != nil {
		return err
	}
	httpServer := server.HTTPServer(addr)

	if a.cfg.BotEnabled() {
		if err := startBot(ctx, a); err != nil {
			return err
		}
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[info] todo API listening on %s (store: %s)", addr, a.cfg.StoreDriver)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout.Duration)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Println("Shutdown complete.")
	return nil
}

// startBot runs the Telegram bot and its digest schedule until ctx ends.
func startBot(ctx context.Context, a *app) error {
	telegramBot, err := bot.New(a.cfg.TelegramToken, a.cfg.TelegramChatID, a.todos, a.categories, a.digest, log.New(os.Stderr, "bot: ", log.LstdFlags))
	if err != nil {
		return err
	}

	if a.cfg.DigestAt != "" || a.cfg.DigestInterval.Duration > 0 {
		scheduler := service.NewSchedulerService(time.Local)
		id, err := scheduler.ScheduleDigest(a.cfg.DigestAt, a.cfg.DigestInterval.Duration, func() {
			jobCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := telegramBot.SendDigest(jobCtx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("[error] digest: %v", err)
			}
		})
		if err != nil {
			return err
		}
		scheduler.Start()
		log.Printf("[info] next digest at %s", scheduler.Next(id).Format(time.RFC3339))
		go func() {
			<-ctx.Done()
			scheduler.Stop()
		}()
	}

	go func() {
		if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("[error] bot stopped: %v", err)
		}
	}()
	return nil
}
