package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/trezcool/njia/core/catalog"
)

var readFileFunc = os.ReadFile // mockable

func (cli *commandLine) seedCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Import catalog items",
		Long:  "Import catalog items from a YAML file, or the bundled sample catalog when --file is not set. Existing items with the same IDs are replaced.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := cli.seedItems(file)
			if err != nil {
				return err
			}
			svcs, err := cli.services(cmd.Context())
			if err != nil {
				return err
			}
			n, err := svcs.Catalog.Import(cmd.Context(), items...)
			if err != nil {
				return err
			}
			fmt.Fprintf(cli.out, "%d catalog items imported\n", n)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML seed file")
	return cmd
}

func (cli *commandLine) seedItems(file string) ([]catalog.Item, error) {
	if file == "" {
		return catalog.DefaultSeed()
	}
	data, err := readFileFunc(file)
	if err != nil {
		return nil, errors.Wrap(err, "reading seed file")
	}
	return catalog.DecodeSeed(data)
}
