package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ekaya-inc/ekaya-trane/pkg/adapters/datasource"
)

func newDescribeCmd() *cobra.Command {
	var problemsPath string
	cmd := &cobra.Command{
		Use:   "describe",
		Short: "Print the natural-language description of each problem",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			problems, err := readProblemsFile(problemsPath)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, p := range problems {
				fmt.Fprintf(out, "%s\t%s\t%s\n", p.ID(), p.ProblemType(), p.Description())
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&problemsPath, "problems", "", "problems file written by generate")
	_ = cmd.MarkFlagRequired("problems")
	return cmd
}

func newSourcesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "List the frame sources compiled into this binary",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			for _, info := range datasource.RegisteredAdapters() {
				fmt.Fprintf(cmd.OutOrStdout(), "%-10s %s\n", info.Type, info.DisplayName)
			}
		},
	}
}
