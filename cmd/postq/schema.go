package main

import (
	"github.com/spf13/cobra"

	"github.com/reoring/postq/posts"
)

func newSchemaCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:       "schema [post|draft|patch|list]",
		Short:     "Print the JSON Schema of a post shape",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: posts.SchemaNames,
		RunE: func(_ *cobra.Command, args []string) error {
			name := "post"
			if len(args) == 1 {
				name = args[0]
			}
			js, err := posts.NewSchemas(a.cfg.Client.StrictTitles).JSONSchema(name)
			if err != nil {
				return err
			}
			return printJSON(a.out, js)
		},
	}
}
