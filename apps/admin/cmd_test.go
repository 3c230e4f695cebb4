package main

import (
	"bytes"
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/dgrijalva/jwt-go"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/njia/apps/api/echo"
	"github.com/trezcool/njia/core"
	"github.com/trezcool/njia/core/catalog"
	"github.com/trezcool/njia/core/user"
	"github.com/trezcool/njia/tests"
)

func setup(t *testing.T) (*commandLine, *testutil.Env, *bytes.Buffer) {
	t.Helper()
	env := testutil.NewEnv(t)
	out := new(bytes.Buffer)
	cli := newCommandLine(env.Conf, env.Logger, out)
	cli.svcs = env.Services
	return cli, env, out
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErrStr string
	wantOut    string
}

func runCLITests(t *testing.T, cli *commandLine, out *bytes.Buffer, tests []cliTest) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out.Reset()
			err := cli.execute(tt.args...)
			if tt.wantErrStr != "" {
				require.Error(t, err)
				assert.Contains(t, out.String(), "error: "+tt.wantErrStr)
				return
			}
			require.NoError(t, err)
			if tt.wantOut != "" {
				assert.Contains(t, out.String(), tt.wantOut)
			}
		})
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli, env, out := setup(t)

	t.Run("not postgres", func(t *testing.T) {
		err := cli.execute("migrate", "up")
		assert.EqualError(t, err, "migrations only apply to the postgres engine")
	})

	conf := *env.Conf
	conf.Database.Engine = "postgres"
	cli.conf = &conf

	var ran []string
	origCreate, origOpen, origRun := createDBFunc, openDBFunc, runMigrationFunc
	createDBFunc = func(*core.Config) error { return nil }
	openDBFunc = func(*core.Config) (*sql.DB, error) { return sql.Open("postgres", "") }
	runMigrationFunc = func(_ *sql.DB, command string, args ...string) error {
		switch command {
		case "up", "down", "redo", "reset", "status", "version":
		case "up-to", "down-to":
			if len(args) == 0 {
				return errors.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
		default:
			return errors.Errorf("%q: no such command", command)
		}
		ran = append(ran, strings.TrimSpace(command+" "+strings.Join(args, " ")))
		return nil
	}
	defer func() { createDBFunc, openDBFunc, runMigrationFunc = origCreate, origOpen, origRun }()

	tests := []cliTest{
		{name: "no command", args: []string{"migrate"}, wantErrStr: "requires at least 1 arg(s), only received 0"},
		{name: "unknown command", args: []string{"migrate", "lol"}, wantErrStr: `"lol": no such command`},
		{name: "up-to: no version", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "status", args: []string{"migrate", "status"}},
	}
	runCLITests(t, cli, out, tests)
	assert.Equal(t, []string{"up", "up-to 2", "down-to 1", "status"}, ran)
}

func Test_commandLine_addUser(t *testing.T) {
	cli, env, out := setup(t)
	ctx := context.Background()
	testutil.CreateUser(t, env.UsrRepo, "Taken", "taken", "taken@example.com", []string{user.RoleStudent}, true)
	inactive := testutil.CreateUser(t, env.UsrRepo, "Sleepy", "sleepy", "sleepy@example.com", []string{user.RoleStudent}, false)

	tests := []cliTest{
		{name: "unknown flag", args: []string{"adduser", "--lol"}, wantErrStr: "unknown flag: --lol"},
		{name: "no identity", args: []string{"adduser", "--name", "Nobody"}, wantErrStr: "--username or --email is required"},
		{name: "no name", args: []string{"adduser", "--username", "jdoe", "--email", "jdoe@example.com"}, wantErrStr: "name: this field is required"},
		{name: "bad email", args: []string{"adduser", "--name", "J", "--email", "nope"}, wantErrStr: "email: "},
		{name: "email taken", args: []string{"adduser", "--name", "J", "--username", "jdoe", "--email", "taken@example.com"}, wantErrStr: "email: "},
		{
			name:    "create admin",
			args:    []string{"adduser", "--name", "Jane Doe", "--username", "JDoe", "--email", "jdoe@example.com", "--admin"},
			wantOut: "user jdoe created",
		},
		{name: "reactivate", args: []string{"adduser", "--email", "sleepy@example.com"}, wantOut: "user sleepy updated"},
	}
	runCLITests(t, cli, out, tests)

	usr, err := env.User.GetByUsernameOrEmail(ctx, "jdoe")
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", usr.Name)
	assert.Equal(t, []string{user.RoleAdminOwner}, usr.Roles)
	assert.True(t, usr.IsActive)

	usr, err = env.User.GetByID(ctx, inactive.ID)
	require.NoError(t, err)
	assert.True(t, usr.IsActive)
	assert.Equal(t, "Sleepy", usr.Name)
	assert.Equal(t, []string{user.RoleStudent}, usr.Roles)
}

func Test_commandLine_token(t *testing.T) {
	cli, env, out := setup(t)
	usr := testutil.CreateUser(t, env.UsrRepo, "Jane", "jane", "jane@example.com", []string{user.RoleStudent}, true)
	testutil.CreateUser(t, env.UsrRepo, "Gone", "gone", "gone@example.com", []string{user.RoleStudent}, false)

	runCLITests(t, cli, out, []cliTest{
		{name: "no username", args: []string{"token"}, wantErrStr: `required flag(s) "username" not set`},
		{name: "unknown user", args: []string{"token", "--username", "nope"}, wantErrStr: `finding "nope": `},
		{name: "inactive user", args: []string{"token", "--username", "gone"}, wantErrStr: `user "gone" is deactivated`},
	})

	out.Reset()
	require.NoError(t, cli.execute("token", "--username", "JANE@example.com"))
	claims := new(echoapi.Claims)
	_, err := jwt.ParseWithClaims(strings.TrimSpace(out.String()), claims, func(*jwt.Token) (interface{}, error) {
		return []byte(env.Conf.SecretKey), nil
	})
	require.NoError(t, err)
	assert.Equal(t, usr.ID, claims.Subject)
	assert.True(t, claims.IsStudent)
}

func Test_commandLine_seed(t *testing.T) {
	cli, env, out := setup(t)
	ctx := context.Background()

	origRead := readFileFunc
	defer func() { readFileFunc = origRead }()
	readFileFunc = func(name string) ([]byte, error) {
		switch name {
		case "careers.yaml":
			return []byte("careers:\n  - id: car-pilot\n    title: Pilot\n    stream: engineering\n"), nil
		case "bad.yaml":
			return []byte("planets:\n  - id: mars\n"), nil
		}
		return nil, errors.New("no such file")
	}

	runCLITests(t, cli, out, []cliTest{
		{name: "missing file", args: []string{"seed", "-f", "nope.yaml"}, wantErrStr: "reading seed file: no such file"},
		{name: "unknown collection", args: []string{"seed", "--file", "bad.yaml"}, wantErrStr: `seed: unknown collection "planets"`},
		{name: "bundled catalog", args: []string{"seed"}, wantOut: "catalog items imported"},
	})

	colleges, err := env.Catalog.All(ctx, catalog.KindCollege)
	require.NoError(t, err)
	assert.NotEmpty(t, colleges)

	out.Reset()
	require.NoError(t, cli.execute("seed", "-f", "careers.yaml"))
	assert.Equal(t, "1 catalog items imported\n", out.String())
	item, err := env.Catalog.Get(ctx, catalog.KindCareer, "car-pilot")
	require.NoError(t, err)
	assert.Equal(t, "Pilot", item.(*catalog.Career).Title)
}
