package main

import (
	"context"
	"fmt"
	"os"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"go.uber.org/zap"

	"github.com/Tyrowin/roomchat/internal/logging"
	"github.com/Tyrowin/roomchat/internal/server"
)

func main() {
	config := server.NewConfigFromEnv()

	logger, err := logging.New(logging.Config{
		Level:  config.LogLevel,
		Format: logging.Format(config.LogFormat),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	zap.ReplaceGlobals(logger)

	logger.Info("starting room chat server",
		zap.String("port", config.Port),
		zap.Strings("allowed_origins", config.AllowedOrigins))

	srv := server.New(config, logger)
	srv.StartHub()

	httpServer := server.CreateServer(config.Port, srv.SetupRoutes())

	listenErr := make(chan error, 1)
	go func() {
		listenErr <- server.StartServer(httpServer, logger)
	}()

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		config.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"http-server": func(context.Context) error {
				return server.ShutdownServer(httpServer, config.ShutdownTimeout, logger)
			},
			"hub": func(context.Context) error {
				return srv.ShutdownHub(config.ShutdownTimeout)
			},
		},
	)

	for {
		select {
		case err := <-listenErr:
			if err == nil {
				// Closed by the shutdown operation; wait for the rest of it.
				listenErr = nil
				continue
			}
			logger.Error("http server failed", zap.Error(err))
			_ = srv.ShutdownHub(config.ShutdownTimeout)
			_ = logger.Sync()
			os.Exit(1)
		case code := <-wait:
			logger.Info("server exited", zap.Int("code", code))
			_ = logger.Sync()
			os.Exit(code)
		}
	}
}
