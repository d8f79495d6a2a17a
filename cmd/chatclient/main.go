package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"go-handshake/internal/api"
	"go-handshake/internal/app"
	"go-handshake/internal/auth"
	"go-handshake/internal/chat"
	"go-handshake/internal/config"
	"go-handshake/internal/deck"
	"go-handshake/internal/models"
	"go-handshake/internal/observability"
	"go-handshake/internal/redis"
	"go-handshake/internal/ws"
)

func main() {
	cfg := config.Load()
	observability.NewLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if len(os.Args) > 1 && os.Args[1] == "tail" {
		if err := tail(ctx, cfg); err != nil {
			slog.Error("Tail failed", "error", err)
			os.Exit(1)
		}
		return
	}

	if err := run(ctx, cfg); err != nil {
		slog.Error("Client stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	claims, err := auth.ParseToken(cfg.AccessToken, time.Now())
	if err != nil {
		return err
	}
	userID, _ := claims.LocalUserID()
	slog.Info("Access token loaded", "userId", userID, "expiresIn", claims.ExpiresIn(time.Now()))

	// Initialize Redis mirror
	var mirror app.Mirror
	if cfg.RedisURL != "" {
		redisClient, err := redis.NewClient(cfg.RedisURL)
		if err != nil {
			return err
		}
		defer redisClient.Close()
		mirror = redisClient
	}

	transport := ws.NewClient(ws.Config{
		URL:               cfg.WSURL,
		Token:             cfg.AccessToken,
		HeartbeatIncoming: cfg.HeartbeatIncoming,
		HeartbeatOutgoing: cfg.HeartbeatOutgoing,
		ConnectTimeout:    cfg.ConnectTimeout,
		MaxErrors:         cfg.MaxErrors,
	})
	backend := api.NewClient(cfg.APIBaseURL, cfg.AccessToken, nil)

	shell := app.New(transport, app.Options{
		ReconcileInterval: cfg.ReconcileInterval,
		ReconnectInitial:  cfg.ReconnectInitial,
		ReconnectMax:      cfg.ReconnectMax,
		ReconnectRetries:  cfg.ReconnectMaxRetries,
		Mirror:            mirror,
	})
	defer shell.Close()

	rooms := chat.NewRoomList(backend)
	if err := rooms.Refresh(ctx); err != nil {
		slog.Warn("Room list not loaded", "error", err)
	}
	shell.WatchRooms(ctx, rooms)
	shell.WatchNotifications(func(n models.Notification) {
		slog.Info("Notification", "id", n.NotificationID, "from", n.TargetNickname)
	})
	shell.WatchBadgeCount(func(b models.BadgeCount) {
		slog.Info("Badge count", "chat", b.ChatUnreadCount, "notifications", b.NotificationCount)
	})
	shell.OnRoomChange(func(sess *chat.Session) {
		v := sess.View()
		slog.Debug("Room changed", "room", v.RoomID, "messages", len(v.Messages), "canSend", v.CanSend, "banner", v.Banner)
	})

	if err := shell.Start(ctx); err != nil {
		slog.Warn("Initial connect failed, retrying in background", "error", err)
	}

	if cfg.RoomID != 0 {
		shell.OpenRoom(ctx, cfg.RoomID, backend, rooms)
	}

	if pending, err := backend.Notifications(ctx); err == nil {
		slog.Info("Notifications loaded", "count", len(pending))
	}

	recommender := deck.NewRecommender(backend, deck.NewDeck(), cfg.CandidateLimit)
	recommender.OnSurveyDue(func() { slog.Info("Survey due") })
	if n, err := recommender.Refill(ctx); err != nil {
		slog.Warn("Candidate deck not loaded", "error", err)
	} else {
		slog.Info("Candidate deck loaded", "added", n, "remainingSwipes", recommender.RemainingSwipes())
	}

	// Routes
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if transport.Status() != ws.StatusConnected {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(transport.Status()))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: mux}
	go func() {
		slog.Info("Status server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Status server failed", "error", err)
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// tail prints every event mirrored to Redis by a running client.
func tail(ctx context.Context, cfg *config.Config) error {
	if cfg.RedisURL == "" {
		return errors.New("REDIS_URL is required for tail")
	}
	redisClient, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	return redisClient.Tail(ctx, func(ev models.Event) {
		slog.Info("Event", "type", ev.Type, "channel", ev.ChannelId, "timestamp", ev.Timestamp, "data", ev.Data)
	})
}
