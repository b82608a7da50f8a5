package config

import (
	"fmt"
	"net/url"

	"github.com/go-playground/validator/v10"
	"xray-ip-diag/internal/domain"
)

func init() {
	if err := validate.RegisterValidation("endpoint", validateEndpoint); err != nil {
		panic(fmt.Sprintf("failed to register endpoint validator: %v", err))
	}
}

func validateEndpoint(fl validator.FieldLevel) bool {
	u, err := url.Parse(fl.Field().String())
	if err != nil {
		return false
	}
	switch u.Scheme {
	case "http", "https":
		return u.Host != ""
	default:
		return false
	}
}

// Endpoints returns the probe endpoints, named after their host.
func (c *Config) Endpoints() []domain.Endpoint {
	endpoints := make([]domain.Endpoint, 0, len(c.Probe.Endpoints))
	for _, raw := range c.Probe.Endpoints {
		name := raw
		if u, err := url.Parse(raw); err == nil && u.Host != "" {
			name = u.Host
		}
		endpoints = append(endpoints, domain.Endpoint{Name: name, URL: raw})
	}
	return endpoints
}
