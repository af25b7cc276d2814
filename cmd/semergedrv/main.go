package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		markerSize      int
		renameDetection bool
		importSort      string
		maxBytes        int
	)

	cmd := &cobra.Command{
		Use:   "semergedrv <base> <ours> <theirs> <language>",
		Short: "Entity-level semantic three-way merge driver",
		Long: `semergedrv implements the git merge-driver calling convention:
it reads base, ours, and theirs file paths and a language tag, writes the
merged result over the ours path, and exits 0 on a clean merge or 1 when
conflict markers were left in the output.

Register it in .gitattributes and .git/config as a merge driver, e.g.:

  *.go merge=semerge

  [merge "semerge"]
      name = entity-level semantic merge
      driver = semergedrv %O %A %B go
`,
		Args: cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMerge(cmd, args, markerSize, renameDetection, importSort, maxBytes)
		},
	}

	cmd.Flags().IntVar(&markerSize, "marker-size", 7, "conflict marker character count")
	cmd.Flags().BoolVar(&renameDetection, "rename-detection", true, "enable structural-hash rename matching")
	cmd.Flags().StringVar(&importSort, "import-sort", "alphabetical", "import block ordering: alphabetical, grouped, or preserve")
	cmd.Flags().IntVar(&maxBytes, "max-bytes", 1<<20, "per-side byte ceiling before falling back to a text merge")

	cmd.AddCommand(newVersionCmd())
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "semergedrv 0.1.0-dev")
		},
	}
}
