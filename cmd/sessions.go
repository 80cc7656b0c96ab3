package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/azor-ai/azor/internal/session"
)

func newSessionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sessions",
		Short: "List saved sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := initConfig()

			storeDir := cfg.SessionDir
			if storeDir == "" {
				var err error
				storeDir, err = session.DefaultStoreDir()
				if err != nil {
					return fmt.Errorf("session store dir: %w", err)
				}
			}
			store, err := session.NewFileStore(storeDir)
			if err != nil {
				return fmt.Errorf("open session store: %w", err)
			}

			infos, err := store.List()
			if err != nil {
				return err
			}
			if len(infos) == 0 {
				fmt.Println("No saved sessions.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTITLE\tMODEL\tMESSAGES\tLAST ACTIVITY")
			for _, info := range infos {
				title := info.Title
				if title == "" {
					title = session.DefaultTitle
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
					info.ID, title, info.Model, info.MessageCount,
					info.LastActivity.Format("2006-01-02 15:04"))
			}
			return w.Flush()
		},
	}
}
