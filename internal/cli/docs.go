package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var docsCmd = &cobra.Command{
	Use:     "docs",
	Aliases: []string{"list"},
	Short:   "List uploaded documents",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(appOptions{})
		if err != nil {
			return err
		}
		docs, err := a.ingest.List()
		if err != nil {
			return fmt.Errorf("failed to list documents: %w", err)
		}
		if len(docs) == 0 {
			fmt.Println("No documents uploaded. Run 'chatpdf upload <file.pdf>' first.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tSIZE\tUPLOADED\tCACHED\tID")
		for _, d := range docs {
			_, cached := a.session.Indexes().Get(d.ID)
			fmt.Fprintf(w, "%s\t%d\t%s\t%v\t%s\n",
				d.Name, d.Size, d.UploadedAt.Format("2006-01-02 15:04"), cached, d.ID)
		}
		return w.Flush()
	},
}

var docsRmCmd = &cobra.Command{
	Use:   "rm <document>...",
	Short: "Remove documents with their chat history",
	Long: `Unregister documents and delete their chat history. The uploaded PDF
files stay in the upload directory.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(appOptions{})
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		for _, ref := range args {
			if err := a.chat.Clear(ctx, ref); err != nil {
				return fmt.Errorf("failed to clear history of %s: %w", ref, err)
			}
			doc, err := a.ingest.Remove(ctx, ref)
			if err != nil {
				return fmt.Errorf("failed to remove %s: %w", ref, err)
			}
			fmt.Printf("Removed %s (%s)\n", doc.Name, doc.ID)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(docsCmd)
	docsCmd.AddCommand(docsRmCmd)
}
