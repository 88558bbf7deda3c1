// BabelRelay - channel-to-channel translation relay
// License: MIT
//
// Copyright (c) 2026 BabelRelay contributors

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tinyland-inc/babelrelay/cmd/babelrelay/internal"
	"github.com/tinyland-inc/babelrelay/cmd/babelrelay/internal/serve"
	"github.com/tinyland-inc/babelrelay/cmd/babelrelay/internal/version"
)

func NewBabelrelayCommand() *cobra.Command {
	short := fmt.Sprintf("%s babelrelay - translation relay v%s\n\n", internal.Logo, internal.GetVersion())

	cmd := &cobra.Command{
		Use:     "babelrelay",
		Short:   short,
		Example: "babelrelay serve",
	}

	cmd.AddCommand(
		serve.NewServeCommand(),
		version.NewVersionCommand(),
	)

	return cmd
}

func main() {
	cmd := NewBabelrelayCommand()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
