package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/nexabuild/go-services/internal/bundle"
	"github.com/nexabuild/go-services/internal/fileset"
	"github.com/nexabuild/go-services/internal/workspace"
	"github.com/spf13/cobra"
)

var flattenCmd = &cobra.Command{
	Use:   "flatten [generator.json|-]",
	Short: "Print the flat path -> content mapping as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runFlatten,
}

var combineCmd = &cobra.Command{
	Use:   "combine [generator.json|-]",
	Short: "Inline styles and scripts into one HTML page",
	Args:  cobra.ExactArgs(1),
	RunE:  runCombine,
}

var packageCmd = &cobra.Command{
	Use:   "package [generator.json|-]",
	Short: "Write the files as a ZIP archive",
	Args:  cobra.ExactArgs(1),
	RunE:  runPackage,
}

func init() {
	combineCmd.Flags().StringP("output", "o", "", "write to file instead of stdout")
	packageCmd.Flags().StringP("output", "o", "site.zip", "archive path, - for stdout")
}

func loadFileSet(cmd *cobra.Command, src string) (fileset.FileSet, error) {
	var (
		raw []byte
		err error
	)
	if src == "-" {
		raw, err = io.ReadAll(cmd.InOrStdin())
	} else {
		raw, err = os.ReadFile(src)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", src, err)
	}
	files, _, _ := workspace.ParseOutput(raw)
	return files, nil
}

func runFlatten(cmd *cobra.Command, args []string) error {
	fs, err := loadFileSet(cmd, args[0])
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(fs)
}

func runCombine(cmd *cobra.Command, args []string) error {
	fs, err := loadFileSet(cmd, args[0])
	if err != nil {
		return err
	}
	page, err := bundle.Combine(fs)
	if err != nil {
		return err
	}
	out, _ := cmd.Flags().GetString("output")
	if out == "" || out == "-" {
		_, err = io.WriteString(cmd.OutOrStdout(), page)
		return err
	}
	return os.WriteFile(out, []byte(page), 0o644)
}

func runPackage(cmd *cobra.Command, args []string) error {
	fs, err := loadFileSet(cmd, args[0])
	if err != nil {
		return err
	}
	out, _ := cmd.Flags().GetString("output")
	if out == "-" {
		return bundle.WriteArchive(cmd.OutOrStdout(), fs)
	}
	f, err := os.Create(out)
	if err != nil {
		return err
	}
	if err := bundle.WriteArchive(f, fs); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d files, %d bytes of content)\n", out, len(fs), fs.Size())
	return nil
}
