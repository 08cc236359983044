package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/zen-downloader/zen/internal/config"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show the local client settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return printLocalSettings(cmd.OutOrStdout(), a.settings)
		},
	}
	cmd.AddCommand(newConfigPathCmd(), newConfigSetCmd())
	return cmd
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print where settings, logs and history are stored",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "settings  %s\n", config.GetSettingsPath())
			fmt.Fprintf(w, "logs      %s\n", config.GetLogsDir())
			fmt.Fprintf(w, "history   %s\n", config.GetHistoryPath())
		},
	}
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <category.key> <value>",
		Short: "Change one setting in the settings file",
		Example: `  zen config set server.host http://nas.local:8000
  zen config set queue.poll_interval 2s`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Environment overrides are not written back, so start from the file.
			s, err := config.LoadSettings()
			if err != nil {
				return err
			}
			if err := setLocalSetting(s, args[0], args[1]); err != nil {
				return err
			}
			if err := config.SaveSettings(s); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Set %s\n", args[0])
			return nil
		},
	}
}

// settingsTree flattens settings into category -> key -> JSON value.
func settingsTree(s *config.Settings) (map[string]map[string]any, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	var tree map[string]map[string]any
	if err := json.Unmarshal(data, &tree); err != nil {
		return nil, err
	}
	return tree, nil
}

func findMeta(category, key string) (config.SettingMeta, bool) {
	for cat, metas := range config.GetSettingsMetadata() {
		if !strings.EqualFold(cat, category) {
			continue
		}
		for _, m := range metas {
			if m.Key == key {
				return m, true
			}
		}
	}
	return config.SettingMeta{}, false
}

// setLocalSetting assigns a "category.key" setting from its text form.
func setLocalSetting(s *config.Settings, name, raw string) error {
	category, key, ok := strings.Cut(name, ".")
	if !ok {
		return fmt.Errorf("setting must be category.key, got %q", name)
	}
	category = strings.ToLower(category)
	meta, ok := findMeta(category, key)
	if !ok {
		return fmt.Errorf("unknown setting %q", name)
	}

	var value any
	switch meta.Type {
	case "int":
		n, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("%s must be a number", name)
		}
		value = n
	case "bool":
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("%s must be true or false", name)
		}
		value = b
	case "duration":
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("%s must be a duration like 500ms or 2s", name)
		}
		value = int64(d)
	default:
		value = raw
	}

	tree, err := settingsTree(s)
	if err != nil {
		return err
	}
	tree[category][key] = value
	data, err := json.Marshal(tree)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, s)
}

func formatSetting(meta config.SettingMeta, v any) string {
	switch meta.Type {
	case "duration":
		if f, ok := v.(float64); ok {
			return time.Duration(int64(f)).String()
		}
	case "int":
		if f, ok := v.(float64); ok {
			if meta.Key == "theme" {
				return themeName(int(f))
			}
			return strconv.Itoa(int(f))
		}
	}
	if meta.Key == "token" {
		if s, _ := v.(string); s != "" {
			return "********"
		}
	}
	return fmt.Sprint(v)
}

func themeName(theme int) string {
	switch theme {
	case config.ThemeLight:
		return "light"
	case config.ThemeDark:
		return "dark"
	}
	return "system"
}

func printLocalSettings(w io.Writer, s *config.Settings) error {
	tree, err := settingsTree(s)
	if err != nil {
		return err
	}
	metadata := config.GetSettingsMetadata()

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for i, category := range config.CategoryOrder() {
		if i > 0 {
			fmt.Fprintln(tw)
		}
		fmt.Fprintf(tw, "[%s]\n", category)
		values := tree[strings.ToLower(category)]
		for _, meta := range metadata[category] {
			fmt.Fprintf(tw, "  %s.%s\t%s\t%s\n", strings.ToLower(category), meta.Key,
				formatSetting(meta, values[meta.Key]), meta.Description)
		}
	}
	return tw.Flush()
}
