package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ZanzyTHEbar/heartrisk/internal/analysis"
)

func newManifestCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "manifest",
		Short: "Manage the model manifest",
	}

	var name string
	var force bool
	initCmd := &cobra.Command{
		Use:   "init <dir>",
		Short: "Write the default manifest into an asset directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" {
				name = c.cfg.Model.Manifest
			}
			return writeDefaultManifest(cmd, args[0], name, force)
		},
	}
	initCmd.Flags().StringVar(&name, "name", "", "Manifest name (default: model.manifest from config)")
	initCmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing manifest")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the manifest the service would load",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := analysis.NewManifestStore(c.cfg.Model.AssetDir).Load(c.cfg.Model.Manifest)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "version:   %s\nartifact:  %s\nthreshold: %g\nmean:      %v\nscale:     %v\n",
				m.Version, filepath.Join(c.cfg.Model.AssetDir, m.Artifact), m.Threshold, m.Mean, m.Scale)
			return nil
		},
	}

	cmd.AddCommand(initCmd, showCmd)
	return cmd
}

func writeDefaultManifest(cmd *cobra.Command, dir, name string, force bool) error {
	store := analysis.NewManifestStore(dir)
	if !force && store.Exists(name) {
		return fmt.Errorf("manifest %s already exists in %s (use --force to overwrite)", name, dir)
	}

	if err := store.Save(name, analysis.DefaultManifest()); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", filepath.Join(dir, name+".yaml"))
	return nil
}
