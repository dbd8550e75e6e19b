package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/zalando/go-keyring"

	"github.com/evcraddock/bukkaku/internal/platform"
)

// KeyringService groups bk's platform passwords in the OS keychain.
const KeyringService = "bukkaku"

// Platform is one listing site account.
type Platform struct {
	Name        string `yaml:"name"`
	Kind        string `yaml:"kind"`
	BaseURL     string `yaml:"base_url"`
	LoginURL    string `yaml:"login_url"`
	SearchURL   string `yaml:"search_url"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	PasswordEnv string `yaml:"password_env"`
}

// KeyringAccount is the keychain account holding the platform password.
func (p Platform) KeyringAccount() string {
	return fmt.Sprintf("%s:%s", p.Name, p.Username)
}

// PasswordSource describes where the password would be read from, without
// reading it.
func (p Platform) PasswordSource() string {
	switch {
	case p.Kind == platform.KindSimulated:
		return "none"
	case p.Password != "":
		return "config"
	case p.PasswordEnv != "":
		return "env:" + p.PasswordEnv
	default:
		return "keyring:" + KeyringService + "/" + p.KeyringAccount()
	}
}

// ResolvePassword returns the password from the config file, the named
// environment variable or the OS keyring, in that order.
func (p Platform) ResolvePassword() (string, error) {
	if p.Password != "" {
		return p.Password, nil
	}
	if p.PasswordEnv != "" {
		if v := os.Getenv(p.PasswordEnv); v != "" {
			return v, nil
		}
		return "", fmt.Errorf("platform %s: %s is not set", p.Name, p.PasswordEnv)
	}

	pw, err := keyring.Get(KeyringService, p.KeyringAccount())
	if errors.Is(err, keyring.ErrNotFound) {
		return "", fmt.Errorf("platform %s: no password in config, environment or keyring (%s/%s)",
			p.Name, KeyringService, p.KeyringAccount())
	}
	if err != nil {
		return "", fmt.Errorf("platform %s: reading keyring: %w", p.Name, err)
	}
	return pw, nil
}

// Spec resolves the credentials and returns the adapter spec.
func (p Platform) Spec() (platform.Spec, error) {
	spec := platform.Spec{
		Name:      p.Name,
		Kind:      p.Kind,
		BaseURL:   p.BaseURL,
		LoginURL:  p.LoginURL,
		SearchURL: p.SearchURL,
	}
	if p.Kind == platform.KindSimulated {
		return spec, nil
	}

	if p.Username == "" {
		return platform.Spec{}, fmt.Errorf("platform %s: username is required", p.Name)
	}
	pw, err := p.ResolvePassword()
	if err != nil {
		return platform.Spec{}, err
	}
	spec.Credentials = platform.Credentials{Username: p.Username, Password: pw}
	return spec, nil
}
