package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cone387/cone/pkg/registry"
)

var (
	registryName string
	registryJSON bool
)

var registryCmd = &cobra.Command{
	Use:   "registry",
	Short: "Inspect the class registries configured in cone.yaml",
}

// anyClass resolves every manifest class name, so listing works without the
// real implementations.
var anyClass = registry.ResolverFunc(func(name string) (registry.Class, bool) {
	return registry.Record(name), true
})

type listedEntry struct {
	Key          string         `json:"key"`
	Class        string         `json:"class"`
	Fields       map[string]any `json:"fields"`
	Generated    bool           `json:"generated,omitempty"`
	Overwritable bool           `json:"overwritable,omitempty"`
	Source       string         `json:"source,omitempty"`
}

var registryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every key of a registry",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		regCfg, err := cfg.Registry(registryName)
		if err != nil {
			fatal("Error selecting registry", err)
		}

		opts := append(regCfg.ManagerOptions(cfg.Dir, slog.Default()),
			registry.WithLoader(registry.ManifestLoader{Classes: anyClass}))
		m, err := registry.NewSet().Manager(opts...)
		if err != nil {
			fatal("Error creating registry", err)
		}

		entries, err := m.Entries(context.Background())
		if err != nil {
			fatal("Error loading registry", err)
		}

		if registryJSON {
			out := make([]listedEntry, 0, len(entries))
			for _, e := range entries {
				out = append(out, listedEntry{
					Key:          e.Key.String(),
					Class:        e.Class.Name(),
					Fields:       e.Fields,
					Generated:    e.Generated,
					Overwritable: e.Overwritable,
					Source:       e.Source,
				})
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(out); err != nil {
				fatal("Error encoding JSON", err)
			}
			return
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "KEY\tCLASS\tSOURCE")
		for _, e := range entries {
			source := e.Source
			if source == "" {
				source = "-"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", e.Key, e.Class.Name(), source)
		}
		w.Flush()
		fmt.Printf("\n%s\n", m)
	},
}

func init() {
	registryListCmd.Flags().StringVarP(&registryName, "name", "n", "", "Registry name (default: the first one in config)")
	registryListCmd.Flags().BoolVar(&registryJSON, "json", false, "Output as JSON")
	registryCmd.AddCommand(registryListCmd)
	rootCmd.AddCommand(registryCmd)
}
