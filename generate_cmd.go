package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/narayaneeyam/dashakam/internal/compile"
)

var generateCmd = &cobra.Command{
	Use:     "generate CAPTIONS_DIR",
	Short:   "Build the chapter documents from WebVTT captions",
	Long:    paragraph(fmt.Sprintf("\n%s the text and transliteration documents from a directory of .vtt caption files, one per dashakam.", keyword("Generate"))),
	Example: paragraph("dashakam generate captions/\ndashakam generate captions/ --out site --compress gz"),
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("out")
		intro, _ := cmd.Flags().GetString("intro")
		source, _ := cmd.Flags().GetString("source")
		compress, _ := cmd.Flags().GetString("compress")

		switch compress {
		case "", "gz", "zst":
		default:
			return fmt.Errorf("unsupported compression %q: use gz or zst", compress)
		}

		opts := compile.Options{Source: source, Compress: compress}
		if intro != "" {
			b, err := os.ReadFile(expandPath(intro))
			if err != nil {
				return fmt.Errorf("unable to read intro: %w", err)
			}
			opts.Intro = b
		}

		sum, err := compile.Generate(cmd.Context(), expandPath(args[0]), expandPath(out), opts)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s chapters, %s cues\n",
			keyword(humanize.Comma(int64(sum.Chapters))), keyword(humanize.Comma(int64(sum.Cues))))

		paths := make([]string, 0, len(sum.Written))
		for p := range sum.Written {
			paths = append(paths, p)
		}
		sort.Strings(paths)
		for _, p := range paths {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s (%s)\n", p, humanize.Bytes(uint64(sum.Written[p]))) //nolint:gosec
		}
		for _, f := range sum.Failed {
			fmt.Fprintf(cmd.OutOrStderr(), "  skipped %s: could not parse\n", f)
		}
		return nil
	},
}

func init() {
	generateCmd.Flags().StringP("out", "o", ".", "directory to write the documents to")
	generateCmd.Flags().String("intro", "", "markdown file rendered into the page header")
	generateCmd.Flags().String("source", "", "name of the caption collection (default: the directory name)")
	generateCmd.Flags().String("compress", "", "also compress the output: gz or zst")
}
