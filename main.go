package main

import (
	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"

	"github.com/classdeskhq/classdesk/api"
	studentapi "github.com/classdeskhq/classdesk/api/student"
	"github.com/classdeskhq/classdesk/appconfig"
	"github.com/classdeskhq/classdesk/idp"
	"github.com/classdeskhq/classdesk/log"
	"github.com/classdeskhq/classdesk/student"
)

func main() {
	_ = godotenv.Load()
	if err := appconfig.Load(); err != nil {
		log.Fatalf("failed loading configuration, err=%v", err)
	}
	conf := appconfig.Get()

	sentryInit := false
	if conf.IsSentryAvailable() {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:         conf.SentryDSN(),
			SampleRate:  1.0,
			Environment: "production",
		})
		if err != nil {
			log.Fatalf("failed initializing sentry, err=%v", err)
		}
		sentryInit = true
	}

	idpClient := idp.NewClient(idp.Config{
		ApiURL:       conf.IdpApiURL(),
		TokenURL:     conf.IdpTokenURL(),
		ClientID:     conf.IdpClientID(),
		ClientSecret: conf.IdpClientSecret(),
	})
	studentService := student.NewService(idpClient, conf.MaxStudentsPerClass())

	a := &api.Api{
		StudentHandler: studentapi.Handler{Service: studentService},
		JWTSecretKey:   conf.JWTSecretKey(),
		SentryInit:     sentryInit,
	}
	a.StartAPI()
}
