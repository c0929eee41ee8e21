// Package config provides helpers for reading configuration through Viper,
// bridging OS environment variables and config-file values.
package config

import (
	"os"

	"github.com/spf13/viper"

	"github.com/shelfsync/shelfsync/pkg/errors"
)

// Environment variables carrying the shop credentials.
const (
	EnvShopDomain  = "SHOPIFY_SHOP_DOMAIN"
	EnvAccessToken = "SHOPIFY_ACCESS_TOKEN"
)

// GetString is a helper to get string values from Viper.
// It checks both OS environment variables and Viper configuration.
func GetString(key string) string {
	// Check OS env directly first
	osValue := os.Getenv(key)
	viperValue := viper.GetString(key)

	// If Viper doesn't have it but OS does, return OS value
	if viperValue == "" && osValue != "" {
		return osValue
	}
	return viperValue
}

// ShopCredentials returns the shop domain and access token, or a fatal
// ConfigError when either is missing.
func ShopCredentials() (domain, token string, err error) {
	domain = GetString(EnvShopDomain)
	if domain == "" {
		return "", "", errors.NewConfigError("shopify", EnvShopDomain+" not set", nil)
	}
	token = GetString(EnvAccessToken)
	if token == "" {
		return "", "", errors.NewConfigError("shopify", EnvAccessToken+" not set", nil)
	}
	return domain, token, nil
}
