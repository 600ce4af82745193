package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"bone-pruner/internal/skeleton"
)

var treeDelete []string

func init() {
	treeCmd.Flags().StringSliceVarP(&treeDelete, "delete", "d", nil, "Bones to mark for deletion (preview only)")
	rootCmd.AddCommand(treeCmd)
}

var treeCmd = &cobra.Command{
	Use:   "tree [model]",
	Short: "Print the bone hierarchy of a model",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		src, err := loadModel(args[0])
		if err != nil {
			return err
		}
		roots := skeleton.Extract(src.model)
		if err := skeleton.MarkByName(roots, treeDelete...); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s: %d bones, %d bindings\n", src.model.Name, skeleton.BoneCount(src.model, true), len(src.model.Bindings))
		printTree(out, roots)
		if del := skeleton.Deleted(roots); len(del) > 0 {
			fmt.Fprintf(out, "Marked for deletion: %d\n", len(del))
		}
		return nil
	},
}

func printTree(w io.Writer, roots []*skeleton.BoneInfo) {
	var walk func(b *skeleton.BoneInfo)
	walk = func(b *skeleton.BoneInfo) {
		mark := "[ ]"
		if b.Deleted {
			mark = "[x]"
		}
		fmt.Fprintf(w, "%s%s %s\n", strings.Repeat("  ", b.Depth), mark, b.Name)
		for _, c := range b.Children {
			walk(c)
		}
	}
	for _, r := range roots {
		walk(r)
	}
}
