package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/syssam/magicbox/repository"
)

func newSaveCmd(a *app) *cobra.Command {
	var input string
	cmd := &cobra.Command{
		Use:   "save <entity>",
		Short: "Create or update records from JSON input",
		Long: `Create or update records from JSON input.

An object carrying the entity key updates that record, any other object
creates one. Relations in the input cascade. A list of objects that all
carry the key updates each of them; any other list creates them.`,
		Example: `  # Create a user with two posts
  magicbox save User --input '{"username":"rey","posts":[{"title":"Jakku"},{"title":"Takodana"}]}'

  # Update from stdin
  echo '{"id":1,"hands":1}' | magicbox save User --input -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd.InOrStdin(), input)
			if err != nil {
				return commandError("reading --input", err)
			}
			repo, err := a.repository(args[0])
			if err != nil {
				return err
			}
			return a.runSave(cmd, repo, data)
		},
	}
	cmd.Flags().StringVar(&input, "input", "", `JSON input, or "-" for stdin`)
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func readInput(stdin io.Reader, input string) ([]byte, error) {
	switch input {
	case "":
		return nil, errors.New("empty input")
	case "-":
		return io.ReadAll(stdin)
	}
	if len(input) > 1 && input[0] == '@' {
		return os.ReadFile(input[1:])
	}
	return []byte(input), nil
}

func (a *app) runSave(cmd *cobra.Command, repo *repository.Repository, data []byte) error {
	var input any
	if err := json.Unmarshal(data, &input); err != nil {
		return commandError("decoding input", err)
	}
	switch input.(type) {
	case map[string]any, []any:
	default:
		return commandError("decoding input", fmt.Errorf("expected an object or a list, got %T", input))
	}
	repo.SetInput(input)

	ctx := cmd.Context()
	if !repo.IsManyOperation() {
		rec, err := repo.Save(ctx, nil)
		if err != nil {
			return commandError("saving "+repo.Entity().Name, err)
		}
		return a.print(rec)
	}
	op := repo.CreateMany
	if keyed(input, repo.KeyName()) {
		op = repo.UpdateMany
	}
	records, err := op(ctx)
	if err != nil {
		return commandError("saving "+repo.Entity().Name, err)
	}
	return a.print(records)
}

// keyed reports whether every item of a list input carries key.
func keyed(input any, key string) bool {
	var items []any
	switch in := input.(type) {
	case []any:
		items = in
	case map[string]any:
		for _, v := range in {
			items = append(items, v)
		}
	}
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok || m[key] == nil {
			return false
		}
	}
	return len(items) > 0
}
