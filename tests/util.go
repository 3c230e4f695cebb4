package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/trezcool/njia/apps/shared"
	"github.com/trezcool/njia/core"
	"github.com/trezcool/njia/core/catalog"
	"github.com/trezcool/njia/core/quiz"
	"github.com/trezcool/njia/core/user"
	"github.com/trezcool/njia/services/email"
	"github.com/trezcool/njia/storage/docrepos"
	"github.com/trezcool/njia/storage/docstore"
)

// Env is a full set of services backed by an in-memory store.
type Env struct {
	Conf    *core.Config
	Store   *docstore.MemoryStore
	UsrRepo user.Repository
	Mail    *emailsvc.ServiceMock
	Logger  *Logger
	*shared.Services
}

func NewEnv(t *testing.T) *Env {
	t.Helper()
	bank, err := quiz.DefaultBank()
	require.NoError(t, err)

	conf := core.NewTestConfig()
	store := docstore.NewMemoryStore()
	logger := new(Logger)
	mail := emailsvc.NewServiceMock(conf, logger)
	core.ParseEmailTemplates(logger, true /* strict */)

	return &Env{
		Conf:     conf,
		Store:    store,
		UsrRepo:  docrepos.NewUserRepository(store),
		Mail:     mail,
		Logger:   logger,
		Services: shared.NewServices(store, bank, conf, logger, mail),
	}
}

// SeedCatalog imports the embedded sample catalog.
func (env *Env) SeedCatalog(t *testing.T) {
	t.Helper()
	items, err := catalog.DefaultSeed()
	require.NoError(t, err)
	_, err = env.Catalog.Import(context.Background(), items...)
	require.NoError(t, err)
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()
	tstamp := core.Now()
	if len(createdAt) > 0 {
		tstamp = core.NormalizeTime(createdAt[0])
	}
	usr := user.User{
		ID:        core.NewID(),
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

// Logger records the messages logged at error level and above.
type Logger struct {
	Errors []string
}

var _ core.Logger = (*Logger)(nil)

func (l *Logger) Debug(string, ...interface{}) {}
func (l *Logger) Info(string, ...interface{})  {}
func (l *Logger) Warn(string, ...interface{})  {}
func (l *Logger) Error(msg string, _ ...interface{}) {
	l.Errors = append(l.Errors, msg)
}
func (l *Logger) Fatal(msg string, _ ...interface{}) {
	l.Errors = append(l.Errors, msg)
}
