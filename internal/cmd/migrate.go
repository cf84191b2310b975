package cmd

import (
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, log, conn, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer conn.Close()
		log.Info().Msg("schema is up to date")
		return nil
	},
}
