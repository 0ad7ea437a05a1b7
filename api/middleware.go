package api

import (
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/classdeskhq/classdesk/log"
)

const (
	contextCallerKey = "caller-context"
	requestIDHeader  = "X-Request-Id"

	// GroupSupervisor grants account-mutating operations on any class the
	// caller manages.
	GroupSupervisor = "supervisor"
)

var errInvalidAuthHeader = errors.New("invalid authorization header")

// Caller is the verified identity produced by the authentication pipeline.
// Handlers downstream never see the raw token.
type Caller struct {
	Subject string
	Groups  []string
}

func (c Caller) IsSupervisor() bool { return slices.Contains(c.Groups, GroupSupervisor) }

// ContextCaller returns the verified caller set by Authenticate.
func ContextCaller(c *gin.Context) Caller {
	obj, ok := c.Get(contextCallerKey)
	if !ok {
		return Caller{}
	}
	caller, _ := obj.(Caller)
	return caller
}

// Authenticate validates the bearer token and attaches the verified caller
// to the request context.
func (api *Api) Authenticate(c *gin.Context) {
	caller, err := api.verifyAccessToken(c)
	if err != nil {
		log.Infof("failed authenticating, reason=%v", err)
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	c.Set(contextCallerKey, caller)
	c.Next()
}

// SupervisorOnly gates account-mutating routes on the supervisor group.
func (api *Api) SupervisorOnly(c *gin.Context) {
	if !ContextCaller(c).IsSupervisor() {
		c.AbortWithStatus(http.StatusForbidden)
		return
	}
	c.Next()
}

func (api *Api) verifyAccessToken(c *gin.Context) (Caller, error) {
	tokenHeader := c.GetHeader("authorization")
	tokenParts := strings.Split(tokenHeader, " ")
	if len(tokenParts) != 2 || tokenParts[0] != "Bearer" || tokenParts[1] == "" {
		return Caller{}, errInvalidAuthHeader
	}
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(tokenParts[1], claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return api.JWTSecretKey, nil
	})
	if err != nil {
		return Caller{}, err
	}
	subject, err := claims.GetSubject()
	if err != nil || subject == "" {
		return Caller{}, errors.New("token is missing the sub claim")
	}
	return Caller{Subject: subject, Groups: parseGroupsClaim(claims)}, nil
}

func parseGroupsClaim(claims jwt.MapClaims) []string {
	rawGroups, _ := claims["groups"].([]any)
	var groups []string
	for _, g := range rawGroups {
		if group, ok := g.(string); ok {
			groups = append(groups, group)
		}
	}
	return groups
}

// RequestIDMiddleware attaches a request id for log correlation, keeping
// the one sent by the caller when present.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Writer.Header().Set(requestIDHeader, requestID)
		c.Next()
	}
}

func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, accept, origin")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
