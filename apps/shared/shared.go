// Package shared wires the services the API and the admin CLI are built from.
package shared

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/njia/core"
	"github.com/trezcool/njia/core/application"
	"github.com/trezcool/njia/core/bookmark"
	"github.com/trezcool/njia/core/catalog"
	"github.com/trezcool/njia/core/progress"
	"github.com/trezcool/njia/core/quiz"
	"github.com/trezcool/njia/core/recommend"
	"github.com/trezcool/njia/core/timeline"
	"github.com/trezcool/njia/core/user"
	"github.com/trezcool/njia/storage/docrepos"
)

// Services holds every domain service, built on a single document store.
type Services struct {
	User        *user.Service
	Quiz        *quiz.Service
	Catalog     *catalog.Service
	Recommend   *recommend.Service
	Bookmark    *bookmark.Service
	Application *application.Service
	Timeline    *timeline.Service
	Progress    *progress.Service
	Reminder    *timeline.Reminder

	Validate   *validator.Validate
	Translator ut.Translator
}

// NewValidator returns a validator with the core and domain validations registered.
func NewValidator(bank *quiz.Bank) (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.RegisterValidators(validate, translator)
	catalog.RegisterValidators(validate, translator, bank.StreamKeys())
	application.RegisterValidators(validate, translator)
	return validate, translator
}

func NewServices(
	store core.DocumentStore,
	bank *quiz.Bank,
	conf *core.Config,
	logger core.Logger,
	mailSvc core.EmailService,
) *Services {
	validate, translator := NewValidator(bank)

	timelineRepo := docrepos.NewTimelineRepository(store)
	usrSvc := user.NewService(docrepos.NewUserRepository(store))
	quizSvc := quiz.NewService(bank, docrepos.NewQuizRepository(store), usrSvc, conf.Quiz)
	catSvc := catalog.NewService(docrepos.NewCatalogRepository(store), validate, conf.Catalog)
	bmSvc := bookmark.NewService(docrepos.NewBookmarkRepository(store), catSvc, validate)
	tlSvc := timeline.NewService(timelineRepo, validate)
	appSvc := application.NewService(
		docrepos.NewApplicationRepository(store), catSvc, tlSvc, usrSvc, mailSvc, validate, logger)

	return &Services{
		User:        usrSvc,
		Quiz:        quizSvc,
		Catalog:     catSvc,
		Recommend:   recommend.NewService(catSvc, conf.Recommend),
		Bookmark:    bmSvc,
		Application: appSvc,
		Timeline:    tlSvc,
		Progress:    progress.NewService(quizSvc, bmSvc, appSvc, tlSvc),
		Reminder:    timeline.NewReminder(timelineRepo, usrSvc, mailSvc, logger, conf.Reminder),
		Validate:    validate,
		Translator:  translator,
	}
}
