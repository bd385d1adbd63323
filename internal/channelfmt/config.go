// Package channelfmt loads per-channel output format definitions and
// renders instrumentation payload bytes through them. A "channel" here is
// an ITM stimulus port number (0-31): each can carry differently-shaped
// binary data, so each gets its own format string.
package channelfmt

import (
	_ "embed"
	"fmt"
	"regexp"
	"strconv"

	"github.com/BurntSushi/toml"
	"gopkg.in/ini.v1"
)

//go:embed default.toml
var defaultConfigData []byte

// Channel is one stimulus port's display configuration.
type Channel struct {
	Number int    `toml:"number"`
	Name   string `toml:"name"`
	Format string `toml:"format"`
}

// Config is the full set of configured channels, looked up by number with
// ByNumber.
type Config struct {
	Channels []Channel `toml:"channel"`
}

// ByNumber returns the Channel configured for n, or false if none is.
func (c *Config) ByNumber(n int) (Channel, bool) {
	for _, ch := range c.Channels {
		if ch.Number == n {
			return ch, true
		}
	}
	return Channel{}, false
}

// LoadTOML parses a channel configuration file. An empty path loads the
// embedded default configuration instead of touching the filesystem.
func LoadTOML(path string) (*Config, error) {
	var conf Config
	if path == "" {
		if _, err := toml.Decode(string(defaultConfigData), &conf); err != nil {
			return nil, fmt.Errorf("channelfmt: decode embedded default: %w", err)
		}
		return &conf, nil
	}
	if _, err := toml.DecodeFile(path, &conf); err != nil {
		return nil, fmt.Errorf("channelfmt: decode %s: %w", path, err)
	}
	return &conf, nil
}

var channelSectionRe = regexp.MustCompile(`^[0-9]{1,2}$`)

// LoadINI imports a legacy Orbuculum-style .ini channel definition file,
// one section per channel number, each with Name and Format keys.
func LoadINI(path string) (*Config, error) {
	f, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("channelfmt: load %s: %w", path, err)
	}

	var conf Config
	for _, section := range f.Sections() {
		name := section.Name()
		if !channelSectionRe.MatchString(name) {
			continue
		}
		number, err := strconv.Atoi(name)
		if err != nil {
			return nil, fmt.Errorf("channelfmt: bad channel section %q: %w", name, err)
		}
		conf.Channels = append(conf.Channels, Channel{
			Number: number,
			Name:   section.Key("Name").String(),
			Format: section.Key("Format").String(),
		})
	}
	return &conf, nil
}
