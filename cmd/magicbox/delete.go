package main

import (
	"github.com/spf13/cobra"
)

func newDeleteCmd(a *app) *cobra.Command {
	var filters []string
	cmd := &cobra.Command{
		Use:   "delete <entity> <id>",
		Short: "Delete a record by key",
		Example: `  # Delete post 3 only if it belongs to user 1
  magicbox delete Post 3 --filter user_id==1`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := a.repository(args[0])
			if err != nil {
				return err
			}
			for _, s := range filters {
				k, v, err := splitPair(s)
				if err != nil {
					return commandError("parsing --filter", err)
				}
				repo.AddFilter(k, v)
			}
			if err := repo.Delete(cmd.Context(), args[1]); err != nil {
				return commandError("deleting "+args[0], err)
			}
			return a.print(map[string]any{"deleted": args[1]})
		},
	}
	cmd.Flags().StringArrayVar(&filters, "filter", nil, "filter the record must match, as path=value (repeatable)")
	return cmd
}
