/*
Example origin HTTP server used for local development and e2e demos of the
caching proxy. Not part of the proxy's product surface.

Typical usage:
- Start the server and access it via: http://localhost:8000
- Configuration is read only from YAML (configs/config-origin.yaml or .yml).

Example YAML:

	origin:
	  listen: ":8000"
	  # or a list: listen: [":9000", ":9001"]

Note: This is a simple example app, not a production-ready server.
*/
package main

import (
	"log"
	"os"
	"strings"
	"sync"

	"github.com/camrail/dejafoo/internal/upstream"

	"gopkg.in/yaml.v3"
)

// StringList allows YAML "listen" to be either a comma-separated string or
// a YAML sequence. It trims whitespace and ignores empty items so sample
// configs are forgiving.
type StringList []string

func (s *StringList) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		var raw string
		if err := value.Decode(&raw); err != nil {
			return err
		}
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				*s = append(*s, part)
			}
		}
		return nil
	}

	var seq []string
	if err := value.Decode(&seq); err != nil {
		return err
	}
	for _, part := range seq {
		if part = strings.TrimSpace(part); part != "" {
			*s = append(*s, part)
		}
	}
	return nil
}

func main() {
	listenAddrs := loadListenAddressesFromYAML()

	if len(listenAddrs) > 1 {
		var wg sync.WaitGroup
		for _, addr := range listenAddrs {
			addr = strings.TrimSpace(addr)
			if addr == "" {
				continue
			}
			wg.Add(1)
			go func(addr string) {
				defer wg.Done()
				log.Printf("starting origin server on %s", addr)
				if err := upstream.Start(addr); err != nil {
					log.Printf("origin server %s exited: %v", addr, err)
				}
			}(addr)
		}
		wg.Wait()
		return
	}

	addr := strings.TrimSpace(listenAddrs[0])
	log.Printf("starting origin server on %s", addr)
	if err := upstream.Start(addr); err != nil {
		log.Fatal(err)
	}
}

type originYAML struct {
	Origin *struct {
		Listen StringList `yaml:"listen"`
	} `yaml:"origin"`
}

// loadListenAddressesFromYAML returns the origin server's listen addresses,
// falling back to [":8000"] if no config is found or it has no listen values.
func loadListenAddressesFromYAML() []string {
	defaultAddresses := []string{":8000"}

	candidates := []string{"configs/config-origin.yaml", "configs/config-origin.yml"}

	var configPath string
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			configPath = c
			break
		}
	}

	if configPath != "" {
		if b, err := os.ReadFile(configPath); err == nil {
			var cfg originYAML
			if err := yaml.Unmarshal(b, &cfg); err == nil {
				if cfg.Origin != nil && len(cfg.Origin.Listen) > 0 {
					return cfg.Origin.Listen
				}
			}
		}
	}

	return defaultAddresses
}
