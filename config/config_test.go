package config

import (
	"reflect"
	"testing"

	"github.com/spf13/viper"
)

func load(t *testing.T) Config {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
	viper.AutomaticEnv()
	setDefaults()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return cfg
}

func TestDefaults(t *testing.T) {
	cfg := load(t)

	if cfg.DatabaseName != "aiacard-sandbox-db" || cfg.CollectionName != "aiacard-sandox-col" {
		t.Fatalf("unexpected mongo defaults %q / %q", cfg.DatabaseName, cfg.CollectionName)
	}
	if len(cfg.TrustedProxies) != 0 {
		t.Fatalf("no proxy may be trusted by default, got %v", cfg.TrustedProxies)
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("COLLECTION_NAME", "accounts")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8,127.0.0.1")
	cfg := load(t)

	if cfg.CollectionName != "accounts" {
		t.Fatalf("collection = %q", cfg.CollectionName)
	}
	if want := []string{"10.0.0.0/8", "127.0.0.1"}; !reflect.DeepEqual(cfg.TrustedProxies, want) {
		t.Fatalf("trusted proxies = %v, want %v", cfg.TrustedProxies, want)
	}
}
