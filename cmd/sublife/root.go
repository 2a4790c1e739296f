package main

import (
	"github.com/spf13/cobra"
)

type cli struct {
	envFiles []string
	cfg      Config
}

func newRootCommand() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:           "sublife",
		Short:         "Subscription lifecycle engine",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(c.envFiles)
			if err != nil {
				return err
			}
			c.cfg = cfg
			return nil
		},
	}
	root.PersistentFlags().StringSliceVar(&c.envFiles, "env-file", []string{".env"}, "env files to load; missing files are skipped")

	root.AddCommand(
		newServeCommand(c),
		newMigrateCommand(c),
		newTickCommand(c),
	)
	return root
}
