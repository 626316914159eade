package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// GatewayConfig carries the credentials for the two external payment
// gateways. Secrets rotate without a restart via the config watcher.
type GatewayConfig struct {
	PayOS PayOSConfig `mapstructure:"payos"`
	VNPay VNPayConfig `mapstructure:"vnpay"`
}

type PayOSConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	ChecksumKey string `mapstructure:"checksumKey"`
}

type VNPayConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	TmnCode    string `mapstructure:"tmnCode"`
	HashSecret string `mapstructure:"hashSecret"`
}

type GatewayConfigHolder struct {
	current atomic.Value // holds GatewayConfig
}

func NewGatewayConfigHolder() (*GatewayConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("gateway")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/pulse/config")
	v.AddConfigPath("/etc/pulse")
	v.AddConfigPath(".")

	v.SetEnvPrefix("PULSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg GatewayConfig
	if err := v.UnmarshalKey("gateway", &cfg); err != nil {
		return nil, err
	}
	if err := validateGatewayConfig(cfg); err != nil {
		return nil, err
	}

	holder := &GatewayConfigHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated GatewayConfig
		if err := v.UnmarshalKey("gateway", &updated); err != nil {
			log.Printf("[gateway-config] reload failed: %v", err)
			return
		}
		if err := validateGatewayConfig(updated); err != nil {
			log.Printf("[gateway-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[gateway-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *GatewayConfigHolder) Get() GatewayConfig {
	return h.current.Load().(GatewayConfig)
}

func validateGatewayConfig(cfg GatewayConfig) error {
	if cfg.PayOS.Enabled && strings.TrimSpace(cfg.PayOS.ChecksumKey) == "" {
		return errors.New("gateway.payos.checksumKey is required when payos is enabled")
	}
	if cfg.VNPay.Enabled && strings.TrimSpace(cfg.VNPay.HashSecret) == "" {
		return errors.New("gateway.vnpay.hashSecret is required when vnpay is enabled")
	}
	return nil
}
