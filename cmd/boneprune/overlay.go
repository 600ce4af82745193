package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"bone-pruner/internal/config"
	"bone-pruner/internal/overlay"
	"bone-pruner/internal/skeleton"
)

var (
	overlayDelete []string
	overlayOutput string
	overlaySize   int
)

func init() {
	overlayCmd.Flags().StringSliceVarP(&overlayDelete, "delete", "d", nil, "Bones to highlight as deleted")
	overlayCmd.Flags().StringVarP(&overlayOutput, "output", "o", "", "Output .webp path (default: <model>-overlay.webp next to the model)")
	overlayCmd.Flags().IntVarP(&overlaySize, "size", "s", 0, "Image size in pixels (default: 512)")
	rootCmd.AddCommand(overlayCmd)
}

var overlayCmd = &cobra.Command{
	Use:   "overlay [model]",
	Short: "Render the bone hierarchy to a WebP image, deleted bones in green",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(config.Flags{OverlaySize: overlaySize}, args[0])
		if err != nil {
			return err
		}
		src, err := loadModel(args[0])
		if err != nil {
			return err
		}
		roots := skeleton.Extract(src.model)
		if err := skeleton.MarkByName(roots, overlayDelete...); err != nil {
			return err
		}

		path := overlayOutput
		if path == "" {
			stem := strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
			path = filepath.Join(cfg.OutputDir, stem+"-overlay.webp")
		}
		segs := overlay.Segments(src.model.Graph, roots)
		opts := overlay.Options{Size: cfg.OverlaySize, Supersample: cfg.Supersample, LineWidth: cfg.LineWidth}
		if err := overlay.WriteWebP(path, segs, opts); err != nil {
			return err
		}
		kept, deleted := overlay.Counts(segs)
		fmt.Fprintf(cmd.OutOrStdout(), "Overlay: %s (%d kept, %d deleted)\n", path, kept, deleted)
		return nil
	},
}
