package tts

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/viper"
)

// LoadConfigFromViper builds a Config from viper-bound settings, then
// applies environment overrides. Flag binding happens in main.
func LoadConfigFromViper() (Config, error) {
	cfg := DefaultConfig()

	if viper.IsSet("models_dir") {
		cfg.ModelsDir = viper.GetString("models_dir")
	}
	if viper.IsSet("piper_binary") {
		cfg.PiperBinary = viper.GetString("piper_binary")
	}
	if viper.IsSet("default_model") {
		cfg.DefaultModel = viper.GetString("default_model")
	}
	if viper.IsSet("use_cuda") {
		cfg.UseCUDA = viper.GetBool("use_cuda")
	}
	if viper.IsSet("download_base_url") {
		cfg.DownloadBaseURL = viper.GetString("download_base_url")
	}

	if viper.IsSet("params.volume") {
		cfg.Params.Volume = viper.GetFloat64("params.volume")
	}
	if viper.IsSet("params.speed") {
		cfg.Params.Speed = viper.GetFloat64("params.speed")
	}
	if viper.IsSet("params.noise_scale") {
		cfg.Params.NoiseScale = viper.GetFloat64("params.noise_scale")
	}
	if viper.IsSet("params.noise_w") {
		cfg.Params.NoiseW = viper.GetFloat64("params.noise_w")
	}
	if viper.IsSet("params.normalize") {
		cfg.Params.Normalize = viper.GetBool("params.normalize")
	}

	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse environment: %w", err)
	}

	return cfg, nil
}
