package appconfig

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
)

const defaultMaxStudentsPerClass = 8

type Config struct {
	apiPort             string
	idpAPIURL           string
	idpTokenURL         string
	idpClientID         string
	idpClientSecret     string
	jwtSecretKey        []byte
	sentryDSN           string
	maxStudentsPerClass int

	isLoaded bool
}

var runtimeConfig Config

// Load validates the environment configuration and sets the runtime config.
// It must be called once during startup, before Get.
func Load() error {
	idpAPIURL, err := loadRequiredURL("IDP_API_URL")
	if err != nil {
		return err
	}
	idpTokenURL, err := loadRequiredURL("IDP_TOKEN_URL")
	if err != nil {
		return err
	}
	clientID := os.Getenv("IDP_CLIENT_ID")
	if clientID == "" {
		return fmt.Errorf("IDP_CLIENT_ID env is required")
	}
	clientSecret := os.Getenv("IDP_CLIENT_SECRET")
	if clientSecret == "" {
		return fmt.Errorf("IDP_CLIENT_SECRET env is required")
	}
	jwtSecretKey := os.Getenv("JWT_SECRET_KEY")
	if jwtSecretKey == "" {
		return fmt.Errorf("JWT_SECRET_KEY env is required")
	}
	maxStudents, err := loadMaxStudentsPerClass()
	if err != nil {
		return err
	}
	apiPort := os.Getenv("PORT")
	if apiPort == "" {
		apiPort = "8009"
	}
	runtimeConfig = Config{
		apiPort:             apiPort,
		idpAPIURL:           idpAPIURL,
		idpTokenURL:         idpTokenURL,
		idpClientID:         clientID,
		idpClientSecret:     clientSecret,
		jwtSecretKey:        []byte(jwtSecretKey),
		sentryDSN:           os.Getenv("SENTRY_DSN"),
		maxStudentsPerClass: maxStudents,
		isLoaded:            true,
	}
	return nil
}

func Get() Config { return runtimeConfig }

func loadRequiredURL(envKey string) (string, error) {
	val := os.Getenv(envKey)
	if val == "" {
		return "", fmt.Errorf("%s env is required", envKey)
	}
	u, err := url.Parse(val)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("%s env is not a valid url", envKey)
	}
	return val, nil
}

func loadMaxStudentsPerClass() (int, error) {
	val := os.Getenv("MAX_STUDENTS_PER_CLASS")
	if val == "" {
		return defaultMaxStudentsPerClass, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("MAX_STUDENTS_PER_CLASS env must be a positive integer")
	}
	return n, nil
}

func (c Config) ApiPort() string          { return c.apiPort }
func (c Config) IdpApiURL() string        { return c.idpAPIURL }
func (c Config) IdpTokenURL() string      { return c.idpTokenURL }
func (c Config) IdpClientID() string      { return c.idpClientID }
func (c Config) IdpClientSecret() string  { return c.idpClientSecret }
func (c Config) JWTSecretKey() []byte     { return c.jwtSecretKey }
func (c Config) SentryDSN() string        { return c.sentryDSN }
func (c Config) MaxStudentsPerClass() int { return c.maxStudentsPerClass }
func (c Config) IsSentryAvailable() bool  { return c.sentryDSN != "" }
