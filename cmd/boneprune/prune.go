package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"bone-pruner/internal/asset"
	"bone-pruner/internal/config"
	"bone-pruner/internal/overlay"
	"bone-pruner/internal/scene"
	"bone-pruner/internal/skeleton"
)

var (
	pruneDelete  []string
	pruneOutput  string
	pruneInPlace bool
	pruneWorkers int
	pruneOverlay bool
)

func init() {
	pruneCmd.Flags().StringSliceVarP(&pruneDelete, "delete", "d", nil, "Bones to delete, with everything below them")
	pruneCmd.Flags().StringVarP(&pruneOutput, "output", "o", "", "Output directory (default: the model's directory)")
	pruneCmd.Flags().BoolVar(&pruneInPlace, "in-place", false, "Prune the model itself instead of a copy")
	pruneCmd.Flags().IntVarP(&pruneWorkers, "workers", "w", 0, "Number of worker goroutines (default: NumCPU)")
	pruneCmd.Flags().BoolVar(&pruneOverlay, "overlay", false, "Also write a WebP preview of the bones being deleted")
	pruneCmd.MarkFlagRequired("delete")
	rootCmd.AddCommand(pruneCmd)
}

var pruneCmd = &cobra.Command{
	Use:   "prune [model]",
	Short: "Delete bones and retarget their vertex weights",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(config.Flags{
			OutputDir: pruneOutput,
			Workers:   pruneWorkers,
			InPlace:   pruneInPlace,
		}, args[0])
		if err != nil {
			return err
		}
		src, err := loadModel(args[0])
		if err != nil {
			return err
		}
		return runPrune(cmd.OutOrStdout(), src, pruneDelete, cfg, pruneOverlay)
	},
}

var errNothingDeleted = errors.New("no bones marked for deletion")

func runPrune(out io.Writer, src *source, names []string, cfg config.Config, withOverlay bool) error {
	target, roots, err := prepare(src.model, names, *cfg.Duplicate, cfg.CopySuffix)
	if err != nil {
		return err
	}
	del := skeleton.Deleted(roots)
	if len(del) == 0 {
		return errNothingDeleted
	}

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return err
	}

	fmt.Fprintf(out, "Model: %s (%d bones, %d bindings)\n", src.path, skeleton.BoneCount(target, true), len(target.Bindings))
	fmt.Fprintf(out, "Deleting: %d bones, Workers: %d\n", len(del), cfg.Workers)
	fmt.Fprintf(out, "Output: %s\n", cfg.OutputDir)
	fmt.Fprintln(out, "------------------------------------------------------------")

	if withOverlay {
		path := filepath.Join(cfg.OutputDir, target.Name+"-overlay.webp")
		opts := overlay.Options{Size: cfg.OverlaySize, Supersample: cfg.Supersample, LineWidth: cfg.LineWidth}
		if err := overlay.WriteWebP(path, overlay.Segments(target.Graph, roots), opts); err != nil {
			slog.Warn("overlay write failed", "err", err)
		} else {
			fmt.Fprintf(out, "Overlay: %s\n", path)
		}
	}

	start := time.Now()
	store := asset.Store{Dir: cfg.AssetDir, Suffix: cfg.AssetSuffix}
	assets := make(map[string]string)
	report, err := skeleton.Prune(target, del, skeleton.Options{
		Workers: cfg.Workers,
		Persist: func(b *scene.Binding) error {
			path, err := store.Save(b, target.Graph)
			if err != nil {
				return err
			}
			assets[b.Name] = path
			slog.Debug("asset saved", "binding", b.Name, "path", path)
			return nil
		},
		Progress: func(done, total int) {
			slog.Debug("binding processed", "done", done, "total", total)
		},
	})
	if err != nil {
		return err
	}

	for _, b := range report.Bindings {
		switch {
		case b.Skipped:
			fmt.Fprintf(out, "  %s: skipped (no root bone)\n", b.Name)
		case b.Changed:
			fmt.Fprintf(out, "  %s: %d -> %d bones, %s\n", b.Name, b.BonesBefore, b.BonesAfter, assets[b.Name])
		}
	}

	man := asset.NewManifest(target.Name, del, report, assets)
	if src.doc != nil {
		path := filepath.Join(cfg.OutputDir, target.Name+src.ext)
		if err := src.doc.Save(target, path, cfg.AssetSuffix); err != nil {
			return err
		}
		man.Output = path
		fmt.Fprintf(out, "Model written: %s\n", path)
	} else {
		slog.Info("no writer for this format; only skin assets were saved", "format", src.ext)
	}

	fmt.Fprintln(out, "------------------------------------------------------------")
	fmt.Fprintf(out, "Done in %.1fs\n", time.Since(start).Seconds())
	fmt.Fprintf(out, "Changed: %d/%d bindings, bones left: %d\n", report.Changed(), len(report.Bindings), report.BoneCount)

	manifestPath := filepath.Join(cfg.OutputDir, target.Name+"-manifest.json")
	if err := asset.WriteManifest(manifestPath, man); err != nil {
		slog.Warn("manifest write failed", "err", err)
	} else {
		fmt.Fprintf(out, "Manifest: %s\n", manifestPath)
	}
	return nil
}

// prepare marks names on m, or on a clone of m when duplicate is set, and
// returns the model to prune with its marked forest.
func prepare(m *scene.Model, names []string, duplicate bool, copySuffix string) (*scene.Model, []*skeleton.BoneInfo, error) {
	roots := skeleton.Extract(m)
	if err := skeleton.MarkByName(roots, names...); err != nil {
		return nil, nil, err
	}
	if !duplicate {
		return m, roots, nil
	}

	clone := m.Clone(m.Name + copySuffix)
	cloneRoots := skeleton.Extract(clone)
	if err := skeleton.CopyDeletedFlags(skeleton.Flatten(roots), skeleton.Flatten(cloneRoots)); err != nil {
		return nil, nil, err
	}
	return clone, cloneRoots, nil
}
