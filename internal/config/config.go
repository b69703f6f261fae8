package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"
)

// PlugDevice maps a desired state to the physical actuator device id that
// realizes it. Voice Monkey models "turn plug1 on" and "turn plug1 off" as
// two distinct virtual devices.
type PlugDevice struct {
	On  string `json:"on"`
	Off string `json:"off"`
}

type Config struct {
	AppEnv    string
	Port      string
	LogLevel  string
	LogFormat string

	DatabaseURL string
	RedisURL    string

	VoiceMonkeyBaseURL string
	VoiceMonkeyToken   string

	CooldownWindow  time.Duration
	PushTimeout     time.Duration
	ActuatorTimeout time.Duration

	// PlugDeviceMap maps logical device groups (e.g. "plug1") to physical
	// actuator ids per desired state.
	PlugDeviceMap map[string]PlugDevice

	// DeviceGroups is the fixed list of groups included in snapshots.
	// Defaults to the sorted keys of PlugDeviceMap.
	DeviceGroups []string
}

func Load() (*Config, error) {
	cfg := &Config{
		AppEnv:             getEnv("APP_ENV", "development"),
		Port:               getEnv("PORT", "8080"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogFormat:          getEnv("LOG_FORMAT", "text"),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		RedisURL:           getEnv("REDIS_URL", ""),
		VoiceMonkeyBaseURL: getEnv("VOICE_MONKEY_BASE_URL", ""),
		VoiceMonkeyToken:   getEnv("VOICE_MONKEY_TOKEN", ""),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required")
	}
	if cfg.VoiceMonkeyBaseURL == "" {
		return nil, fmt.Errorf("VOICE_MONKEY_BASE_URL is required")
	}
	if cfg.VoiceMonkeyToken == "" {
		return nil, fmt.Errorf("VOICE_MONKEY_TOKEN is required")
	}

	var err error
	cfg.CooldownWindow, err = getEnvSeconds("COOLDOWN_SECONDS", 30)
	if err != nil {
		return nil, err
	}
	cfg.PushTimeout, err = getEnvSeconds("PUSH_TIMEOUT_SECONDS", 5)
	if err != nil {
		return nil, err
	}
	cfg.ActuatorTimeout, err = getEnvSeconds("ACTUATOR_TIMEOUT_SECONDS", 10)
	if err != nil {
		return nil, err
	}

	rawMap := getEnv("PLUG_DEVICE_MAP", "{}")
	if err := json.Unmarshal([]byte(rawMap), &cfg.PlugDeviceMap); err != nil {
		return nil, fmt.Errorf("PLUG_DEVICE_MAP must be valid JSON: %w", err)
	}
	if len(cfg.PlugDeviceMap) == 0 {
		return nil, fmt.Errorf("PLUG_DEVICE_MAP must define at least one device group")
	}
	for group, devices := range cfg.PlugDeviceMap {
		if devices.On == "" || devices.Off == "" {
			return nil, fmt.Errorf("PLUG_DEVICE_MAP entry %q must define both on and off device ids", group)
		}
	}

	if rawGroups := getEnv("DEVICE_GROUPS", ""); rawGroups != "" {
		if err := json.Unmarshal([]byte(rawGroups), &cfg.DeviceGroups); err != nil {
			return nil, fmt.Errorf("DEVICE_GROUPS must be a JSON array: %w", err)
		}
		for _, group := range cfg.DeviceGroups {
			if _, ok := cfg.PlugDeviceMap[group]; !ok {
				return nil, fmt.Errorf("DEVICE_GROUPS entry %q is not in PLUG_DEVICE_MAP", group)
			}
		}
	} else {
		for group := range cfg.PlugDeviceMap {
			cfg.DeviceGroups = append(cfg.DeviceGroups, group)
		}
		sort.Strings(cfg.DeviceGroups)
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvSeconds(key string, defaultSeconds int) (time.Duration, error) {
	raw := getEnv(key, strconv.Itoa(defaultSeconds))
	seconds, err := strconv.Atoi(raw)
	if err != nil || seconds <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", key, raw)
	}
	return time.Duration(seconds) * time.Second, nil
}
