package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jessevdk/go-flags"
	"github.com/pkg/errors"
	"github.com/xdagjgo/xdagd/dagconfig"
)

const defaultConfigFilename = "xdagd.conf"

// config is the minimal CLI surface of spec.md §6: datadir, network
// selection, listen port, and a bootstrap peer list.
type config struct {
	DataDir    string `long:"datadir" description:"Directory to store data" default:"~/.xdagd"`
	Network    string `long:"network" description:"Network to join {main,test,dev}" default:"main"`
	Port       int    `long:"port" description:"Port to listen for connections on"`
	BootNodes  string `long:"bootnodes" description:"Comma-separated host:port list of peers to dial at startup"`
	DebugLevel string `long:"debuglevel" description:"Logging level for all subsystems {trace,debug,info,warn,error,critical,off} or SUBSYSTEM=level,..." default:"info"`

	netParams dagconfig.Params
}

func (c *config) bootstrapPeers() []string {
	if c.BootNodes == "" {
		return nil
	}
	parts := strings.Split(c.BootNodes, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// loadConfig parses the command line, resolves the network parameters,
// and expands ~ in DataDir. It returns a non-nil error whenever the
// process should exit with code 1 (invalid config).
func loadConfig() (*config, error) {
	cfg := &config{}
	parser := flags.NewParser(cfg, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		return nil, errors.Wrap(err, "parsing command line")
	}

	params, ok := dagconfig.ByName(cfg.Network)
	if !ok {
		return nil, errors.Errorf("unknown network %q, expected main, test, or dev", cfg.Network)
	}
	cfg.netParams = params

	if cfg.Port == 0 {
		cfg.Port = int(params.DefaultPort)
	}

	dataDir, err := expandHomeDir(cfg.DataDir)
	if err != nil {
		return nil, errors.Wrap(err, "resolving datadir")
	}
	cfg.DataDir = filepath.Join(dataDir, params.Name)
	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return nil, errors.Wrap(err, "creating datadir")
	}

	return cfg, nil
}

func expandHomeDir(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
