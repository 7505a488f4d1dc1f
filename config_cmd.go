package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/charmbracelet/x/editor"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const defaultConfig = `# directory holding .onnx voice models and their .onnx.json configs
# models_dir: "~/.local/share/piperspeak/models"

# piper executable used for synthesis
piper_binary: "piper"

# model loaded on startup; the first available model is used when unset
# default_model: "en_GB-cori-high.onnx"

# load models with GPU acceleration
use_cuda: false

# voice repository root, overridable for mirrors
download_base_url: "https://huggingface.co/rhasspy/piper-voices/resolve/main"

# synthesis parameters
params:
  # output volume, 0.0 to 1.0
  volume: 1.0
  # speech speed, 0.5 to 2.0
  speed: 1.0
  # phoneme noise, 0.0 to 1.5
  noise_scale: 0.667
  # phoneme width noise, 0.0 to 1.5
  noise_w: 0.8
  # peak-normalize the output
  normalize: false
`

var configCmd = &cobra.Command{
	Use:     "config",
	Hidden:  false,
	Short:   "Edit the piperspeak config file",
	Long:    "\nEdit the piperspeak config file. We'll use EDITOR to determine which editor to use. If the config file doesn't exist, it will be created.",
	Example: "piperspeak config\npiperspeak config --config path/to/config.yml",
	Args:    cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		if err := ensureConfigFile(); err != nil {
			return err
		}

		c, err := editor.Cmd("piperspeak", configFile)
		if err != nil {
			return fmt.Errorf("unable to set config file: %w", err)
		}
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		if err := c.Run(); err != nil {
			return fmt.Errorf("unable to run command: %w", err)
		}

		fmt.Println("Wrote config file to:", configFile)
		return nil
	},
}

func ensureConfigFile() error {
	if configFile == "" {
		configFile = viper.GetViper().ConfigFileUsed()
		if err := os.MkdirAll(filepath.Dir(configFile), 0o755); err != nil { //nolint:gosec
			return fmt.Errorf("could not write configuration file: %w", err)
		}
	}

	if ext := path.Ext(configFile); ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("'%s' is not a supported configuration type: use '%s' or '%s'", ext, ".yaml", ".yml")
	}

	if _, err := os.Stat(configFile); errors.Is(err, fs.ErrNotExist) {
		// File doesn't exist yet, create all necessary directories and
		// write the default config file
		if err := os.MkdirAll(filepath.Dir(configFile), 0o700); err != nil {
			return fmt.Errorf("unable create directory: %w", err)
		}

		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("unable to create config file: %w", err)
		}
		defer func() { _ = f.Close() }()

		if _, err := f.WriteString(defaultConfig); err != nil {
			return fmt.Errorf("unable to write config file: %w", err)
		}
	} else if err != nil { // some other error occurred
		return fmt.Errorf("unable to stat config file: %w", err)
	}
	return nil
}
