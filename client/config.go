package client

import (
	"os"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all client settings that can come from the environment.
type Config struct {
	Key                string `yaml:"key" env:"HOUSTON_KEY" json:"-"`
	BaseUrl            string `yaml:"baseUrl" env:"HOUSTON_BASE_URL" env-default:"" json:"baseUrl"`
	Project            string `yaml:"project" env:"GCP_PROJECT" env-default:"" json:"project"`
	LogName            string `yaml:"logName" env:"HOUSTON_LOG_NAME" env-default:"houston" json:"logName"`
	MaxWaitInvocations int    `yaml:"maxWaitInvocations" env:"HOUSTON_MAX_WAIT_INVOCATIONS" env-default:"150" json:"maxWaitInvocations"`
}

// LoadConfig reads client configuration from a file, or from the environment if no path
// is given.
func LoadConfig(configPath string) *Config {
	var config Config
	if configPath == "" {
		err := cleanenv.ReadEnv(&config)
		if err != nil {
			panic(err)
		}
	} else {
		log.Debugf("Loading configuration from %s", configPath)
		err := cleanenv.ReadConfig(configPath, &config)
		if err != nil {
			panic(err)
		}
	}
	if config.Project == "" {
		// PROJECT_ID is set in some hosted environments where GCP_PROJECT is not
		config.Project = os.Getenv("PROJECT_ID")
	}
	return &config
}
