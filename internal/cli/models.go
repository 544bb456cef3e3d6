package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List selectable language models",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		for _, name := range cfg.ModelNames() {
			marker := " "
			if name == cfg.LLM.DefaultModel {
				marker = "*"
			}
			size, overlap := cfg.ChunkFor(name)
			fmt.Printf("%s %s (chunk %d, overlap %d)\n", marker, name, size, overlap)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}
