package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/dream-mind/dreamchain/api/handlers"
	"github.com/dream-mind/dreamchain/communication"
	"github.com/dream-mind/dreamchain/consensus/cometbft"
	"github.com/dream-mind/dreamchain/core"
	"github.com/dream-mind/dreamchain/dream"
	"github.com/dream-mind/dreamchain/registry"
	"github.com/dream-mind/dreamchain/utils"
)

func main() {
	godotenv.Load()

	var (
		configPath = flag.String("config", envOr("DREAMCHAIN_CONFIG", "config/dreamchain.json"), "chain configuration document")
		home       = flag.String("home", envOr("DREAMCHAIN_HOME", ".dreamchain"), "node home directory")
		apiPort    = flag.Int("api-port", envIntOr("DREAMCHAIN_API_PORT", 0), "HTTP API port (0 = first free port from 8080)")
		natsPort   = flag.Int("nats-port", envIntOr("DREAMCHAIN_NATS_PORT", 4222), "embedded NATS port")
		nodeCount  = flag.Uint64("node-count", uint64(envIntOr("DREAMCHAIN_NODE_COUNT", 1)), "consensus committee size")
		required   = flag.Uint64("required-signatures", uint64(envIntOr("DREAMCHAIN_REQUIRED_SIGNATURES", 1)), "signatures required to finalize")
	)
	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	if err := run(*configPath, *home, *apiPort, *natsPort, *nodeCount, *required, log); err != nil {
		log.Fatal().Err(err).Msg("dreamchaind failed")
	}
}

func run(configPath, home string, apiPort, natsPort int, nodeCount, required uint64, log zerolog.Logger) error {
	if err := core.SetupNatsBroker(natsPort); err != nil {
		return fmt.Errorf("start broker: %w", err)
	}
	defer core.NatsBrokerInstance.Close()

	reg, err := registry.New(configPath, log)
	if err != nil {
		return err
	}

	journal, err := communication.NewJournal("logs", "dreamchain")
	if err != nil {
		return err
	}

	engine := cometbft.New(home, log)
	controller := dream.NewController(reg, engine, configPath, journal, log)
	defer controller.Stop()

	if err := controller.Initialize(nodeCount, required); err != nil {
		return err
	}

	router := handlers.NewRouter(&handlers.Handler{
		Controller:  controller,
		Registry:    reg,
		JournalPath: journal.Path(),
		Log:         log,
	})

	if apiPort == 0 {
		apiPort = utils.FindAvailablePort(8080)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- router.Run(fmt.Sprintf(":%d", apiPort))
	}()
	log.Info().Int("port", apiPort).Msg("API server listening")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
		return nil
	case err := <-errCh:
		return fmt.Errorf("api server: %w", err)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
