package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"calendai/ai-calendar/auth"
	"calendai/ai-calendar/chat"
	"calendai/ai-calendar/config"
	"calendai/ai-calendar/handlers"
	"calendai/ai-calendar/llm"
	"calendai/ai-calendar/notify"
	"calendai/ai-calendar/routes"
	"calendai/ai-calendar/sqlite"
	"calendai/ai-calendar/store"
	"calendai/ai-calendar/supabase"
)

func main() {

	config.LoadEnv()
	config.InitLogger()

	settings, err := config.Load(os.Getenv("CALENDAI_CONFIG"))
	if err != nil {
		config.Logger.Fatal("Failed to load configuration: ", err)
	}
	config.SetLogLevel(settings.LogLevel)

	loc, err := settings.Location()
	if err != nil {
		config.Logger.Fatal(err)
	}

	st, err := openStore(settings)
	if err != nil {
		config.Logger.Fatal("Failed to open store: ", err)
	}
	defer st.Close()

	completer, err := llm.New(settings)
	if err != nil {
		config.Logger.Fatal("Failed to create completion client: ", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	notifier := openNotifier(ctx, settings)
	defer notifier.Close()

	orch, err := chat.NewOrchestrator(completer, st, settings)
	if err != nil {
		config.Logger.Fatal("Failed to create orchestrator: ", err)
	}

	issuer, err := auth.NewIssuer(settings.TokenSecret, settings.TokenTTL)
	if err != nil {
		config.Logger.Fatal("Failed to create token issuer: ", err)
	}

	registry := chat.NewRegistry(st, orch, notifier, settings.SessionIdle)
	h := handlers.New(registry, st, issuer, loc)

	server := &http.Server{
		Addr:              settings.Listen,
		Handler:           routes.NewRouter(h, issuer),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			config.Logger.Warn("Graceful shutdown failed: ", err)
		}
	}()

	config.Logger.WithField("addr", settings.Listen).
		WithField("store", settings.Store).
		WithField("llm", settings.LLMProvider).
		Info("Server is running")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		config.Logger.Fatal(err)
	}
}

func openStore(settings *config.Settings) (store.Store, error) {
	if settings.Store == "supabase" {
		return supabase.New(settings.SupabaseURL, settings.SupabaseKey)
	}
	return sqlite.Open(settings.SQLitePath)
}

// openNotifier falls back to a no-op publisher when Redis is not configured
// or unreachable at startup.
func openNotifier(ctx context.Context, settings *config.Settings) notify.Notifier {
	if settings.RedisAddr == "" {
		return notify.Nop{}
	}
	n, err := notify.NewRedis(ctx, settings.RedisAddr, settings.RedisChannel)
	if err != nil {
		config.Logger.Warn("Redis unavailable, notifications disabled: ", err)
		return notify.Nop{}
	}
	return n
}
