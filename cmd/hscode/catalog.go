package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/harborline/hscode/internal/model"
)

func catalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect and load the commodity-code catalog",
	}
	cmd.AddCommand(catalogShowCmd())
	cmd.AddCommand(catalogImportCmd())
	return cmd
}

func catalogShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <code>",
		Short: "Show a catalog entry and its children",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer func() { _ = store.Close() }()

			entry, err := store.GetEntry(ctx, args[0])
			if err != nil {
				return err
			}

			fmt.Printf("Code:        %s (level %d)\n", entry.Code, entry.Level())
			fmt.Printf("Description: %s\n", entry.Description)
			if entry.ParentCode != "" {
				fmt.Printf("Parent:      %s\n", entry.ParentCode)
			}
			if len(entry.Keywords) > 0 {
				fmt.Printf("Keywords:    %s\n", strings.Join(entry.Keywords, ", "))
			}
			if len(entry.Synonyms) > 0 {
				fmt.Printf("Synonyms:    %s\n", strings.Join(entry.Synonyms, ", "))
			}
			for key, value := range entry.Metadata {
				fmt.Printf("%-12s %s\n", key+":", value)
			}
			if len(entry.Children) > 0 {
				fmt.Println("Children:")
				for _, child := range entry.Children {
					fmt.Printf("  %s\n", child)
				}
			}
			if len(entry.Descendants) > len(entry.Children) {
				fmt.Printf("Descendants: %d\n", len(entry.Descendants))
			}
			return nil
		},
	}
}

func catalogImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import catalog entries from a YAML file",
		Long: `Load catalog entries from a YAML file into the database. Existing codes
are replaced; the embedding index is rebuilt on the next search.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			entries, err := loadCatalogFile(args[0])
			if err != nil {
				return err
			}

			store, err := initStorage(ctx)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer func() { _ = store.Close() }()

			if err := store.ImportEntries(ctx, entries); err != nil {
				return fmt.Errorf("import failed: %w", err)
			}

			fmt.Printf("Imported %d catalog entries.\n", len(entries))
			return nil
		},
	}
}

// yamlEntry is the on-disk shape of one catalog entry.
type yamlEntry struct {
	Code        string            `yaml:"code"`
	Description string            `yaml:"description"`
	Parent      string            `yaml:"parent"`
	Keywords    []string          `yaml:"keywords"`
	Examples    []string          `yaml:"examples"`
	Synonyms    []string          `yaml:"synonyms"`
	Embedding   []float32         `yaml:"embedding"`
	Metadata    map[string]string `yaml:"metadata"`
}

func loadCatalogFile(path string) ([]model.CatalogEntry, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- operator-supplied path
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}

	var doc struct {
		Entries []yamlEntry `yaml:"entries"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse catalog file: %w", err)
	}
	if len(doc.Entries) == 0 {
		return nil, fmt.Errorf("catalog file %s contains no entries", path)
	}

	entries := make([]model.CatalogEntry, len(doc.Entries))
	for i, ye := range doc.Entries {
		entries[i] = model.CatalogEntry{
			Code:        ye.Code,
			Description: ye.Description,
			ParentCode:  ye.Parent,
			Keywords:    ye.Keywords,
			Examples:    ye.Examples,
			Synonyms:    ye.Synonyms,
			Embedding:   ye.Embedding,
			Metadata:    ye.Metadata,
		}
	}
	return entries, nil
}
