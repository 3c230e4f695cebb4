package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/trezcool/njia/apps/shared"
	"github.com/trezcool/njia/core"
	"github.com/trezcool/njia/core/quiz"
	emailsvc "github.com/trezcool/njia/services/email"
	"github.com/trezcool/njia/storage/database"
)

var (
	// mockable
	createDBFunc     = database.CreateIfNotExist
	openDBFunc       = database.Open
	runMigrationFunc = database.RunMigration
)

type commandLine struct {
	conf   *core.Config
	logger core.Logger
	out    io.Writer

	store core.DocumentStore
	svcs  *shared.Services
}

func newCommandLine(conf *core.Config, logger core.Logger, out io.Writer) *commandLine {
	return &commandLine{conf: conf, logger: logger, out: out}
}

func (cli *commandLine) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "admin",
		Short:         fmt.Sprintf("%s administration commands", cli.conf.AppName),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(cli.out)
	root.SetErr(cli.out)

	root.AddCommand(
		cli.migrateCmd(),
		cli.addUserCmd(),
		cli.tokenCmd(),
		cli.seedCmd(),
	)
	return root
}

// execute runs the command line args (without the program name).
// Errors are printed the way the API reports them.
func (cli *commandLine) execute(args ...string) error {
	root := cli.rootCmd()
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		fmt.Fprintf(cli.out, "error: %s\n", cli.formatError(err))
		return err
	}
	return nil
}

// services opens the configured store and builds the domain services on first use.
func (cli *commandLine) services(ctx context.Context) (*shared.Services, error) {
	if cli.svcs != nil {
		return cli.svcs, nil
	}
	store, err := shared.OpenStore(ctx, cli.conf)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s store", cli.conf.Database.Engine)
	}
	bank, err := quiz.DefaultBank()
	if err != nil {
		_ = store.Close()
		return nil, errors.Wrap(err, "loading quiz bank")
	}
	cli.store = store
	cli.svcs = shared.NewServices(store, bank, cli.conf, cli.logger, emailsvc.NewConsoleService(cli.conf, cli.logger))
	return cli.svcs, nil
}

func (cli *commandLine) close() {
	if cli.store == nil {
		return
	}
	if err := cli.store.Close(); err != nil {
		cli.logger.Error("closing store", err)
	}
	cli.store = nil
}

func (cli *commandLine) formatError(err error) string {
	switch cause := errors.Cause(err).(type) {
	case validator.ValidationErrors:
		msgs := make([]string, 0, len(cause))
		for _, vErr := range cause {
			msg := vErr.Error()
			if cli.svcs != nil {
				msg = vErr.Translate(cli.svcs.Translator)
			}
			msgs = append(msgs, vErr.Field()+": "+msg)
		}
		sort.Strings(msgs)
		return strings.Join(msgs, ", ")
	case *core.ValidationError:
		if len(cause.Fields) == 0 {
			return cause.Error()
		}
		msgs := make([]string, 0, len(cause.Fields))
		for _, fErr := range cause.Fields {
			msgs = append(msgs, fErr.Field+": "+fErr.Error)
		}
		return strings.Join(msgs, ", ")
	}
	return err.Error()
}

func (cli *commandLine) openDB() (*sql.DB, error) {
	if cli.conf.Database.Engine != shared.EnginePostgres {
		return nil, errors.Errorf("migrations only apply to the %s engine", shared.EnginePostgres)
	}
	if err := createDBFunc(cli.conf); err != nil {
		return nil, err
	}
	return openDBFunc(cli.conf)
}
