package config

import (
	"errors"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// WebhookConfig tunes the Stripe webhook receiver at runtime.
type WebhookConfig struct {
	// SignatureTolerance bounds |now - t| for every Stripe-Signature header.
	SignatureTolerance time.Duration `mapstructure:"signatureTolerance"`
	// PermanentFailureStatus is answered when a contribution is rejected by
	// membership validation. 500 makes Stripe redeliver, a 4xx stops it.
	PermanentFailureStatus int `mapstructure:"permanentFailureStatus"`
	// IntentLockTTL bounds how long a delivery may hold the per-intent lock.
	IntentLockTTL time.Duration `mapstructure:"intentLockTTL"`
}

func DefaultWebhookConfig() WebhookConfig {
	return WebhookConfig{
		SignatureTolerance:     5 * time.Second,
		PermanentFailureStatus: http.StatusInternalServerError,
		IntentLockTTL:          30 * time.Second,
	}
}

type WebhookConfigHolder struct {
	current atomic.Value // holds WebhookConfig
}

// NewStaticWebhookConfigHolder returns a holder that never reloads.
func NewStaticWebhookConfigHolder(cfg WebhookConfig) *WebhookConfigHolder {
	holder := &WebhookConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewWebhookConfigHolder(log *zap.Logger) (*WebhookConfigHolder, error) {
	log = log.Named("config.webhook")
	v := viper.New()

	v.SetConfigName("webhook")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/galette-stripe")
	v.AddConfigPath(".")

	v.SetEnvPrefix("STRIPE_PLUGIN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultWebhookConfig()
	v.SetDefault("webhook.signatureTolerance", defaults.SignatureTolerance)
	v.SetDefault("webhook.permanentFailureStatus", defaults.PermanentFailureStatus)
	v.SetDefault("webhook.intentLockTTL", defaults.IntentLockTTL)

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileLoaded = false
	}

	var cfg WebhookConfig
	if err := v.UnmarshalKey("webhook", &cfg); err != nil {
		return nil, err
	}
	if err := validateWebhookConfig(cfg); err != nil {
		return nil, err
	}

	holder := NewStaticWebhookConfigHolder(cfg)
	if !fileLoaded {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated WebhookConfig
		if err := v.UnmarshalKey("webhook", &updated); err != nil {
			log.Warn("reload failed", zap.Error(err))
			return
		}
		if err := validateWebhookConfig(updated); err != nil {
			log.Warn("invalid config ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

func (h *WebhookConfigHolder) Get() WebhookConfig {
	return h.current.Load().(WebhookConfig)
}

func validateWebhookConfig(cfg WebhookConfig) error {
	if cfg.SignatureTolerance <= 0 {
		return errors.New("webhook.signatureTolerance must be positive")
	}
	if cfg.PermanentFailureStatus < 400 || cfg.PermanentFailureStatus > 599 {
		return errors.New("webhook.permanentFailureStatus must be a 4xx or 5xx status")
	}
	if cfg.IntentLockTTL <= 0 {
		return errors.New("webhook.intentLockTTL must be positive")
	}
	return nil
}
