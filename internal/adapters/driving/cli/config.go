package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/shelf/internal/config"
	"github.com/custodia-labs/shelf/internal/core/ports/driven"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `View and change configuration keys stored in config.toml.

Every key can also be overridden with a SHELF_<KEY> environment variable,
for example SHELF_STORAGE_BACKEND=sqlite.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Set a configuration key",
	Args:  cobra.ExactArgs(2),
	RunE:  runConfigSet,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	if configStore == nil {
		return errConfigNotConfigured
	}

	current, loadErr := config.Load(configStore)
	values := current.Values()

	st := NewStyles(nil, cmd.OutOrStdout())
	cmd.Println(st.Render(st.Title, "Configuration"))
	cmd.Printf("File: %s\n", configStore.Path())
	cmd.Println()

	section := ""
	for _, k := range config.Keys {
		if s, _, _ := strings.Cut(k.Name, "."); s != section {
			section = s
			cmd.Printf("[%s]\n", section)
		}
		value := values[k.Name]
		if value == "" {
			value = "(not set)"
		}
		line := fmt.Sprintf("  %-28s %s", k.Name, value)
		if values[k.Name] == k.Default {
			line += st.Render(st.Muted, "  (default)")
		}
		cmd.Println(line)
	}

	if loadErr != nil {
		cmd.Println()
		cmd.Println(st.Render(st.Warning, fmt.Sprintf("Warning: %v", loadErr)))
		cmd.Println("Run 'shelf config set <key> <value>' to fix configuration issues.")
	}
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	if configStore == nil {
		return errConfigNotConfigured
	}

	key, value := args[0], strings.TrimSpace(args[1])
	if !config.IsKey(key) {
		return fmt.Errorf("unknown key %q", key)
	}

	// Validate against the rest of the stored configuration before
	// persisting anything.
	if _, err := config.Load(&overlayStore{ConfigStore: configStore, key: key, value: value}); err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}

	if err := configStore.Set(key, value); err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	cmd.Printf("%s = %s\n", key, value)
	return nil
}

// overlayStore shows one pending value on top of a ConfigStore.
type overlayStore struct {
	driven.ConfigStore
	key   string
	value string
}

func (o *overlayStore) Get(key string) (any, bool) {
	if key == o.key {
		return o.value, true
	}
	return o.ConfigStore.Get(key)
}

func (o *overlayStore) GetString(key string) string {
	if key == o.key {
		return o.value
	}
	return o.ConfigStore.GetString(key)
}
