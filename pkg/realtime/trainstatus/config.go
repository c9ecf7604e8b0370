package trainstatus

import (
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/travigo/trainstatus/pkg/util"
	"gopkg.in/yaml.v3"
)

type Config struct {
	// How far either side of a scheduled call a station + time event may match a route
	ResolutionTolerance time.Duration `yaml:"resolution_tolerance" validate:"gt=0"`
	// Observed minus scheduled within this band is ON_TIME
	OnTimeTolerance time.Duration `yaml:"ontime_tolerance" validate:"gte=0"`
	// TD tracking is dropped after this long without a TD report
	TDSilenceTimeout time.Duration `yaml:"td_silence_timeout" validate:"gt=0"`
	SweepInterval    time.Duration `yaml:"sweep_interval" validate:"gt=0"`
	// Retry budget for a single event when storage is failing or contended
	RetryMaxElapsed time.Duration `yaml:"retry_max_elapsed" validate:"gt=0"`

	NumConsumers int `yaml:"num_consumers" validate:"min=1,max=64"`
	BatchSize    int `yaml:"batch_size" validate:"min=1,max=1000"`
}

func DefaultConfig() Config {
	return Config{
		ResolutionTolerance: 15 * time.Minute,
		OnTimeTolerance:     time.Minute,
		TDSilenceTimeout:    30 * time.Minute,
		SweepInterval:       time.Minute,
		RetryMaxElapsed:     30 * time.Second,
		NumConsumers:        5,
		BatchSize:           100,
	}
}

// LoadConfig builds the engine configuration from the defaults, the optional YAML file named by
// TRAVIGO_TRAINSTATUS_CONFIG, then individual environment overrides
func LoadConfig() (Config, error) {
	return loadConfig(util.GetEnvironmentVariables())
}

func loadConfig(env map[string]string) (Config, error) {
	config := DefaultConfig()

	if path := env["TRAVIGO_TRAINSTATUS_CONFIG"]; path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return config, err
		}

		if err := yaml.Unmarshal(data, &config); err != nil {
			return config, err
		}
	}

	config.ResolutionTolerance = util.GetEnvironmentDuration(env, "TRAVIGO_TRAINSTATUS_RESOLUTION_TOLERANCE", config.ResolutionTolerance)
	config.OnTimeTolerance = util.GetEnvironmentDuration(env, "TRAVIGO_TRAINSTATUS_ONTIME_TOLERANCE", config.OnTimeTolerance)
	config.TDSilenceTimeout = util.GetEnvironmentDuration(env, "TRAVIGO_TRAINSTATUS_TD_SILENCE_TIMEOUT", config.TDSilenceTimeout)
	config.SweepInterval = util.GetEnvironmentDuration(env, "TRAVIGO_TRAINSTATUS_SWEEP_INTERVAL", config.SweepInterval)
	config.RetryMaxElapsed = util.GetEnvironmentDuration(env, "TRAVIGO_TRAINSTATUS_RETRY_MAX_ELAPSED", config.RetryMaxElapsed)

	if err := validator.New().Struct(config); err != nil {
		return config, err
	}

	return config, nil
}
