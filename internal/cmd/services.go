package main

import (
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/aws/aws-ops-wheel-sub000/clients/opswheel"
	"github.com/aws/aws-ops-wheel-sub000/internal/audio"
	"github.com/aws/aws-ops-wheel-sub000/internal/gateway"
	"github.com/aws/aws-ops-wheel-sub000/internal/settings"
)

type Services struct {
	Store    *settings.Store
	Feedback *audio.Feedback
	Gateway  *gateway.Service
}

func setupServices(config *Config) (*Services, error) {
	// Wiring order: API client → settings → audio → gateway.
	client := opswheel.New(config.API.BaseURL)
	if config.API.AuthToken != "" {
		client.SetHeader("Authorization", config.API.AuthToken)
	}

	store, err := settings.Open(config.Audio.SettingsPath)
	if err != nil {
		return nil, fmt.Errorf("open settings store: %w", err)
	}

	feedback := audio.NewFeedback(setupClickPlayer(config), store)

	svc := gateway.NewService(
		client,
		clockwork.NewRealClock(),
		feedback,
		config.FrameInterval(),
		gateway.DefaultConnectionConfig(),
	)

	return &Services{
		Store:    store,
		Feedback: feedback,
		Gateway:  svc,
	}, nil
}

// setupClickPlayer loads the click asset, falling back to silence when the
// asset or audio device is unavailable. Audio must never block startup.
func setupClickPlayer(config *Config) audio.ClickPlayer {
	if config.Audio.ClickAsset == "" {
		return audio.NopPlayer{}
	}
	player, err := audio.NewBeepPlayer(config.Audio.ClickAsset)
	if err != nil {
		log.Warn().Err(err).Str("asset", config.Audio.ClickAsset).Msg("click audio disabled")
		return audio.NopPlayer{}
	}
	return player
}
