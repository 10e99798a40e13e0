package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/kbindza/kalenda/core"
	"github.com/kbindza/kalenda/core/attendance"
	"github.com/kbindza/kalenda/core/event"
	"github.com/kbindza/kalenda/core/subject"
	"github.com/kbindza/kalenda/core/suggestion"
	"github.com/kbindza/kalenda/core/user"
)

type Server struct {
	addr     string
	app      *echo.Echo
	errs     chan error
	shutdown chan os.Signal
}

func NewServer(
	conf *core.Config,
	logger core.Logger,
	validate *validator.Validate,
	translator ut.Translator,
	userSvc user.ServiceInterface,
	subjectSvc subject.ServiceInterface,
	attendanceSvc attendance.ServiceInterface,
	eventSvc event.ServiceInterface,
	suggestionSvc suggestion.ServiceInterface,
) *Server {
	initAuth(conf)

	s := &Server{
		addr:     conf.Server.Host,
		app:      echo.New(),
		errs:     make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, syscall.SIGINT, syscall.SIGTERM)

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !conf.TestMode {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(logger, s.SignalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", home)

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(appJWTConfig)
	optJWT := optionalJWT(jwt)

	registerAuthAPI(v1, jwt, userSvc, validate)
	registerSubjectAPI(v1, jwt, optJWT, subjectSvc, validate)
	registerAttendanceAPI(v1, jwt, attendanceSvc, validate)
	registerEventAPI(v1, jwt, optJWT, eventSvc, validate)
	registerSuggestionAPI(v1, jwt, suggestionSvc, validate)

	return s
}

// Start runs the listener, reporting a failed start on Errors.
func (s *Server) Start() {
	if err := s.app.Start(s.addr); err != nil && err != http.ErrServerClosed {
		s.errs <- err
	}
}

func (s *Server) Errors() <-chan error { return s.errs }

func (s *Server) ShutdownSignal() <-chan os.Signal { return s.shutdown }

// SignalShutdown requests a graceful shutdown, as if a SIGTERM was received.
func (s *Server) SignalShutdown() {
	s.shutdown <- syscall.SIGTERM
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to Kalenda API!")
}
