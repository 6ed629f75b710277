package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/grid61850/mms/client"
	"github.com/grid61850/mms/logger"
)

// connectFlags are the connection options shared by every subcommand
// that talks to a server. Flag values override the selected profile.
type connectFlags struct {
	address            string
	profile            string
	configFile         string
	associationTimeout time.Duration
	requestTimeout     time.Duration
	localTSel          string
	remoteTSel         string
	verbose            bool
}

func (f *connectFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.address, "address", "a", "", "Server endpoint, host:port")
	cmd.Flags().StringVar(&f.profile, "profile", "", "Connection profile from the config file")
	cmd.Flags().StringVar(&f.configFile, "config", "", "Config file (default $HOME/.mms61850.yaml)")
	cmd.Flags().DurationVar(&f.associationTimeout, "association-timeout", 0, "Bound on the whole association handshake")
	cmd.Flags().DurationVar(&f.requestTimeout, "timeout", 0, "Per-request response deadline")
	cmd.Flags().StringVar(&f.localTSel, "local-tsel", "", "Calling transport selector, hex")
	cmd.Flags().StringVar(&f.remoteTSel, "remote-tsel", "", "Called transport selector, hex")
	cmd.Flags().BoolVarP(&f.verbose, "verbose", "v", false, "Dump wire frames to stderr")
}

// profileConfig is one named connection in the YAML config file.
type profileConfig struct {
	Address            string        `yaml:"address"`
	AssociationTimeout time.Duration `yaml:"association_timeout"`
	RequestTimeout     time.Duration `yaml:"request_timeout"`
	LocalTSelector     string        `yaml:"local_tselector"`
	RemoteTSelector    string        `yaml:"remote_tselector"`
}

type configDocument struct {
	Profiles map[string]profileConfig `yaml:"profiles"`
}

func loadProfile(path, name string) (profileConfig, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return profileConfig{}, fmt.Errorf("locating config file: %w", err)
		}
		path = filepath.Join(home, ".mms61850.yaml")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return profileConfig{}, fmt.Errorf("reading config file: %w", err)
	}
	var doc configDocument
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return profileConfig{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	p, ok := doc.Profiles[name]
	if !ok {
		return profileConfig{}, fmt.Errorf("profile %q not found in %s", name, path)
	}
	return p, nil
}

func decodeSelector(s string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid transport selector %q: %w", s, err)
	}
	return b, nil
}

// clientConfig merges the profile (when selected) with flag overrides.
func (f *connectFlags) clientConfig() (client.Config, error) {
	var p profileConfig
	if f.profile != "" {
		loaded, err := loadProfile(f.configFile, f.profile)
		if err != nil {
			return client.Config{}, err
		}
		p = loaded
	}

	if f.address != "" {
		p.Address = f.address
	}
	if f.associationTimeout != 0 {
		p.AssociationTimeout = f.associationTimeout
	}
	if f.requestTimeout != 0 {
		p.RequestTimeout = f.requestTimeout
	}
	if f.localTSel != "" {
		p.LocalTSelector = f.localTSel
	}
	if f.remoteTSel != "" {
		p.RemoteTSelector = f.remoteTSel
	}
	if p.Address == "" {
		return client.Config{}, fmt.Errorf("no server address: use --address or a profile")
	}

	cfg := client.DefaultConfig(p.Address)
	if p.AssociationTimeout != 0 {
		cfg.AssociationTimeout = p.AssociationTimeout
	}
	if p.RequestTimeout != 0 {
		cfg.RequestTimeout = p.RequestTimeout
	}
	var err error
	if cfg.LocalTSelector, err = decodeSelector(p.LocalTSelector); err != nil {
		return client.Config{}, err
	}
	if cfg.RemoteTSelector, err = decodeSelector(p.RemoteTSelector); err != nil {
		return client.Config{}, err
	}
	if f.verbose {
		cfg.Logger = logger.New("mms")
		cfg.Events = client.LogEvents{Log: cfg.Logger}
	}
	return cfg, nil
}

// withClient connects, runs fn and releases the association.
func (f *connectFlags) withClient(fn func(ctx context.Context, c *client.Client) error) error {
	cfg, err := f.clientConfig()
	if err != nil {
		return err
	}
	c, err := client.New(cfg)
	if err != nil {
		return err
	}

	ctx := context.Background()
	if err := c.Connect(ctx); err != nil {
		return err
	}
	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout)
		defer cancel()
		if err := c.Release(releaseCtx); err != nil {
			c.Abort()
		}
	}()

	return fn(ctx, c)
}
