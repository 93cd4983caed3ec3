package engine

import (
	"github.com/spaghettifunk/geostore/engine/config"
)

type ApplicationConfig struct {
	// ConfigPath is watched for changes when set. Log level and store
	// validation are applied at the next frame start.
	ConfigPath string
	Config     config.Config
}

// NewApplicationConfig loads the configuration at path, or the defaults if path is empty.
func NewApplicationConfig(path string) (*ApplicationConfig, error) {
	c, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	return &ApplicationConfig{ConfigPath: path, Config: c}, nil
}
