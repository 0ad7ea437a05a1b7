package api

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	sentrygin "github.com/getsentry/sentry-go/gin"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	studentapi "github.com/classdeskhq/classdesk/api/student"
	"github.com/classdeskhq/classdesk/appconfig"
	"github.com/classdeskhq/classdesk/healthz"
	"github.com/classdeskhq/classdesk/log"
)

type Api struct {
	StudentHandler studentapi.Handler
	JWTSecretKey   []byte
	SentryInit     bool

	logger *zap.Logger
}

// StartAPI configures the gin engine, registers the routes and serves until
// the process receives SIGINT or SIGTERM.
func (api *Api) StartAPI() {
	zaplogger := log.NewDefaultLogger()
	defer zaplogger.Sync()
	api.logger = zaplogger

	route := gin.New()
	route.Use(ginzap.RecoveryWithZap(zaplogger, false))
	if os.Getenv("GIN_MODE") == "debug" {
		route.Use(ginzap.Ginzap(zaplogger, time.RFC3339, true))
	}
	// https://pkg.go.dev/github.com/gin-gonic/gin#readme-don-t-trust-all-proxies
	route.SetTrustedProxies(nil)
	route.Use(CORSMiddleware())
	route.Use(RequestIDMiddleware())

	rg := route.Group("/api")
	if api.SentryInit {
		rg.Use(sentrygin.New(sentrygin.Options{
			Repanic: true,
		}))
	}
	api.buildRoutes(rg)

	port := appconfig.Get().ApiPort()
	if port == "" {
		port = "8009"
	}
	srv := &http.Server{Addr: ":" + port, Handler: route}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start HTTP server, err=%v", err)
		}
	}()
	log.Infof("HTTP server listening on :%v", port)

	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-sigCtx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warnf("HTTP server shutdown did not complete cleanly, err=%v", err)
	}
}

func (api *Api) buildRoutes(route *gin.RouterGroup) {
	route.GET("/healthz", healthz.LivenessHandler)

	route.POST("/classes/:classID/students",
		api.Authenticate,
		api.SupervisorOnly,
		api.StudentHandler.Create)
	route.GET("/classes/:classID/students",
		api.Authenticate,
		api.StudentHandler.List)
	route.DELETE("/classes/:classID/students/:userID",
		api.Authenticate,
		api.SupervisorOnly,
		api.StudentHandler.Delete)
	route.POST("/classes/:classID/students/:userID/password",
		api.Authenticate,
		api.SupervisorOnly,
		api.StudentHandler.ResetPassword)
}
