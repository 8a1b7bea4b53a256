package main

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/syssam/magicbox/driver"
	"github.com/syssam/magicbox/repository"
)

type verifyResult struct {
	Entity string `json:"entity"`
	Table  string `json:"table"`
	Error  string `json:"error,omitempty"`
}

func newVerifyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "verify [entity...]",
		Short: "Check database tables against the declared entities",
		Long: `Check that the table of every entity, and the pivot table of every
belongs_to_many relation, has the declared columns. With no arguments
every declared entity is checked.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			names := args
			if len(names) == 0 {
				for _, e := range a.registry.Entities() {
					names = append(names, e.Name)
				}
			}
			inspector := driver.NewInspector(a.driver)
			results := make([]verifyResult, len(names))
			errs := make([]error, len(names))

			var eg errgroup.Group
			eg.SetLimit(runtime.GOMAXPROCS(0))
			for i, name := range names {
				eg.Go(func() error {
					repo, err := repository.New(a.registry, name, a.driver,
						repository.WithLogger(a.logger),
						repository.WithInspector(inspector),
					)
					if err != nil {
						return commandError("binding repository", err)
					}
					results[i] = verifyResult{Entity: name, Table: repo.Entity().Table}
					if err := repo.Verify(cmd.Context()); err != nil {
						results[i].Error = err.Error()
						errs[i] = err
					}
					return nil
				})
			}
			if err := eg.Wait(); err != nil {
				return err
			}
			if err := a.print(results); err != nil {
				return err
			}
			if err := errors.Join(errs...); err != nil {
				return commandError(fmt.Sprintf("verifying %d entities", len(names)), err)
			}
			return nil
		},
	}
}
