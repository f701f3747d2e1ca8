package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/YAOSGit/prompt-opm/internal/ir"
	"github.com/YAOSGit/prompt-opm/internal/parser"
	"github.com/YAOSGit/prompt-opm/internal/state"
	"github.com/spf13/cobra"
)

var manifestJSON bool

var manifestCmd = &cobra.Command{
	Use:   "manifest",
	Short: "Inspect and edit the build manifest",
	Long:  `Commands for inspecting and modifying the manifest recorded by the last build.`,
}

var manifestListCmd = &cobra.Command{
	Use:   "list",
	Short: "List definitions in the manifest",
	Args:  cobra.NoArgs,
	RunE:  runManifestList,
}

var manifestShowCmd = &cobra.Command{
	Use:   "show <definition>",
	Short: "Show the manifest entry of one definition",
	Args:  cobra.ExactArgs(1),
	RunE:  runManifestShow,
}

var manifestRmCmd = &cobra.Command{
	Use:   "rm <definition>...",
	Short: "Remove entries from the manifest (the next build regenerates them)",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runManifestRm,
}

var manifestPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove entries whose source file no longer exists",
	Args:  cobra.NoArgs,
	RunE:  runManifestPrune,
}

func init() {
	manifestShowCmd.Flags().BoolVar(&manifestJSON, "json", false, "Output in JSON format")

	manifestCmd.AddCommand(manifestListCmd)
	manifestCmd.AddCommand(manifestShowCmd)
	manifestCmd.AddCommand(manifestRmCmd)
	manifestCmd.AddCommand(manifestPruneCmd)
}

func runManifestList(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	p, m, err := loadManifest(cmd)
	if err != nil {
		return err
	}

	if len(m.Files) == 0 {
		fmt.Fprintln(out, "No definitions in manifest.")
		return nil
	}

	fmt.Fprintf(out, "Manifest %s (lineage %s, generated %s)\n\n", p.rel(p.manifest.Path()), m.Lineage, m.GeneratedAt)
	for _, rel := range state.Paths(m) {
		entry := m.Files[rel]
		var marks []string
		if entry.Snippet {
			marks = append(marks, "snippet")
		}
		if entry.Tainted {
			marks = append(marks, paint(colorYellow, "tainted"))
		}
		suffix := ""
		if len(marks) > 0 {
			suffix = " [" + strings.Join(marks, ", ") + "]"
		}
		fmt.Fprintf(out, "  %s %s%s\n", rel, entry.Version, suffix)
	}
	fmt.Fprintf(out, "\nTotal: %d definition(s)\n", len(m.Files))
	return nil
}

func runManifestShow(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	p, m, err := loadManifest(cmd)
	if err != nil {
		return err
	}

	rel, err := p.entryKey(m, args[0])
	if err != nil {
		return err
	}
	entry := m.Files[rel]

	if manifestJSON {
		data, err := json.MarshalIndent(entry, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal entry: %w", err)
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	fmt.Fprintf(out, "# %s\n", rel)
	fmt.Fprintf(out, "  version       = %s\n", entry.Version)
	fmt.Fprintf(out, "  snippet       = %t\n", entry.Snippet)
	fmt.Fprintf(out, "  tainted       = %t\n", entry.Tainted)
	fmt.Fprintf(out, "  content_hash  = %s\n", entry.ContentHash)
	fmt.Fprintf(out, "  inputs_hash   = %s\n", entry.InputsHash)
	fmt.Fprintf(out, "  outputs_hash  = %s\n", entry.OutputsHash)
	if entry.ArtifactHash != "" {
		fmt.Fprintf(out, "  artifact_hash = %s\n", entry.ArtifactHash)
	}
	fmt.Fprintf(out, "  tokens        = %d (fixed %d)\n", entry.TokenEstimate, entry.InputTokenEstimate)
	if len(entry.Dependencies) > 0 {
		fmt.Fprintln(out, "\n  Dependencies:")
		for _, dep := range entry.Dependencies {
			fmt.Fprintf(out, "    %s\n", dep)
		}
	}
	return nil
}

func runManifestRm(cmd *cobra.Command, args []string) error {
	return editManifest(cmd, args, func(m *ir.Manifest, rel string) string {
		delete(m.Files, rel)
		return fmt.Sprintf("Removed %s from manifest (it will be regenerated on the next build)", rel)
	})
}

func runManifestPrune(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	p, m, err := loadManifest(cmd)
	if err != nil {
		return err
	}

	var pruned []string
	for _, rel := range state.Paths(m) {
		_, err := os.Stat(filepath.Join(p.cfg.Source, filepath.FromSlash(rel)))
		if os.IsNotExist(err) {
			delete(m.Files, rel)
			pruned = append(pruned, rel)
		}
	}

	if len(pruned) == 0 {
		fmt.Fprintln(out, "Nothing to prune.")
		return nil
	}
	if err := p.writeManifest(cmd, m); err != nil {
		return err
	}
	for _, rel := range pruned {
		fmt.Fprintf(out, "Pruned %s\n", rel)
	}
	return nil
}

func (p *project) writeManifest(cmd *cobra.Command, m *ir.Manifest) error {
	if err := p.manifest.Write(cmd.Context(), m); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

func loadManifest(cmd *cobra.Command) (*project, *ir.Manifest, error) {
	p, err := loadProject(cmd)
	if err != nil {
		return nil, nil, err
	}
	m, err := p.manifest.Read(cmd.Context())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	return p, m, nil
}

// editManifest applies edit to the entry of every argument and writes the
// manifest once all of them were found.
func editManifest(cmd *cobra.Command, args []string, edit func(m *ir.Manifest, rel string) string) error {
	p, m, err := loadManifest(cmd)
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(args))
	for _, arg := range args {
		rel, err := p.entryKey(m, arg)
		if err != nil {
			return err
		}
		keys = append(keys, rel)
	}

	messages := make([]string, 0, len(keys))
	for _, rel := range keys {
		messages = append(messages, edit(m, rel))
	}

	if err := p.writeManifest(cmd, m); err != nil {
		return err
	}
	for _, msg := range messages {
		fmt.Fprintln(cmd.OutOrStdout(), msg)
	}
	return nil
}

// entryKey maps a user-supplied definition reference to its manifest key. It
// accepts the key itself, a path to the file, or a module name.
func (p *project) entryKey(m *ir.Manifest, arg string) (string, error) {
	if _, ok := m.Files[arg]; ok {
		return arg, nil
	}

	abs := arg
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(p.dir, arg)
	}
	if rel, err := filepath.Rel(p.cfg.Source, abs); err == nil {
		rel = filepath.ToSlash(rel)
		if _, ok := m.Files[rel]; ok {
			return rel, nil
		}
	}

	var matches []string
	for _, rel := range state.Paths(m) {
		if moduleName(rel) == strings.TrimSuffix(arg, parser.FileSuffix) {
			matches = append(matches, rel)
		}
	}
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return "", fmt.Errorf("definition %s not found in manifest", arg)
	default:
		return "", fmt.Errorf("definition %s is ambiguous: %s", arg, strings.Join(matches, ", "))
	}
}
