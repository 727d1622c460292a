package main

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

//go:embed fixtures/posts.json
var samplePosts []byte

var seedCmd = &cobra.Command{
	Use:   "seed [fixtures.json]",
	Short: "Load posts into the local SQLite database",
	Long: `seed imports a JSON array of posts, in the shape the content API returns
them, into the SQLite database used by the sqlite driver. Without an argument
it loads a few sample posts.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var src io.Reader = bytes.NewReader(samplePosts)
		if len(args) == 1 {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			src = f
		}

		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		n, err := store.Import(src)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "seeded %d posts\n", n)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}
