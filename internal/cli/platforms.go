package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/evcraddock/bukkaku/internal/config"
)

// platformView is a configured platform without its secret.
type platformView struct {
	Name           string `json:"name"`
	Kind           string `json:"kind"`
	LoginURL       string `json:"login_url,omitempty"`
	Username       string `json:"username,omitempty"`
	PasswordSource string `json:"password_source"`
}

func newPlatformsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "platforms",
		Short: "List configured listing platforms",
		Long:  "List the configured platforms and where each password is read from. Passwords are never printed.",
		Args:  cobra.NoArgs,
		RunE:  runPlatforms,
	}
}

func runPlatforms(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	views := make([]platformView, 0, len(cfg.Platforms))
	for _, p := range cfg.Platforms {
		views = append(views, viewPlatform(p))
	}

	out := cmd.OutOrStdout()
	if isJSON() {
		return printJSON(out, views)
	}
	if len(views) == 0 {
		fmt.Fprintln(out, "No platforms configured. Run 'bk init' for a starter config.")
		return nil
	}

	rows := make([][]string, 0, len(views))
	for _, v := range views {
		rows = append(rows, []string{v.Name, v.Kind, orDash(v.LoginURL), orDash(v.Username), v.PasswordSource})
	}
	return printTable(out, []string{"NAME", "KIND", "LOGIN", "USERNAME", "PASSWORD"}, rows)
}

func viewPlatform(p config.Platform) platformView {
	login := p.LoginURL
	if login == "" && p.BaseURL != "" {
		login = strings.TrimRight(p.BaseURL, "/") + "/login"
	}
	return platformView{
		Name:           p.Name,
		Kind:           p.Kind,
		LoginURL:       login,
		Username:       p.Username,
		PasswordSource: p.PasswordSource(),
	}
}
