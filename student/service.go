package student

import (
	"context"
	"errors"

	"github.com/classdeskhq/classdesk/idp"
)

// Student is the API projection of a provider account. Password is only set
// on the response of a create or password-reset operation and is never
// retrievable afterwards.
type Student struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Password string `json:"password,omitempty"`
}

// Service orchestrates the student account lifecycle on top of the identity
// provider. It holds no per-account state; the provider is the source of
// truth and every operation is an independent request/response exchange.
type Service struct {
	IDP                 idp.Client
	MaxStudentsPerClass int
}

func NewService(client idp.Client, maxStudentsPerClass int) *Service {
	return &Service{IDP: client, MaxStudentsPerClass: maxStudentsPerClass}
}

// CreateStudent validates the requested username, enforces the class quota
// and provisions the account with a generated password.
func (s *Service) CreateStudent(ctx context.Context, classID, username string) (*Student, error) {
	if err := validateUsername(username); err != nil {
		return nil, err
	}
	if err := s.checkQuota(ctx, classID); err != nil {
		return nil, err
	}
	password := NewPassword()
	u, err := s.IDP.CreateUser(ctx, classID, username, password)
	if err != nil {
		if errors.Is(err, idp.ErrConflict) {
			return nil, duplicateErr(username)
		}
		return nil, providerErr(err)
	}
	return &Student{ID: u.ID, Username: u.Username, Password: password}, nil
}

// ListStudents returns the accounts of a class. Passwords are never included.
func (s *Service) ListStudents(ctx context.Context, classID string) ([]Student, error) {
	users, err := s.IDP.ListUsers(ctx, classID)
	if err != nil {
		return nil, providerErr(err)
	}
	students := make([]Student, 0, len(users))
	for _, u := range users {
		students = append(students, Student{ID: u.ID, Username: u.Username})
	}
	return students, nil
}

// DeleteStudent removes an account after confirming it belongs to the class.
func (s *Service) DeleteStudent(ctx context.Context, classID, userID string) error {
	if _, err := s.fetchOwned(ctx, classID, userID); err != nil {
		return err
	}
	if err := s.IDP.DeleteUser(ctx, userID); err != nil {
		if errors.Is(err, idp.ErrNotFound) {
			return ErrStudentNotFound
		}
		return providerErr(err)
	}
	return nil
}

// ResetPassword sets a freshly generated password on an owned account and
// returns it. The previous password stops working immediately.
func (s *Service) ResetPassword(ctx context.Context, classID, userID string) (*Student, error) {
	u, err := s.fetchOwned(ctx, classID, userID)
	if err != nil {
		return nil, err
	}
	password := NewPassword()
	if err := s.IDP.SetUserPassword(ctx, u.ID, password); err != nil {
		if errors.Is(err, idp.ErrNotFound) {
			return nil, ErrStudentNotFound
		}
		return nil, providerErr(err)
	}
	return &Student{ID: u.ID, Username: u.Username, Password: password}, nil
}

// checkQuota rejects creation once the class holds the maximum number of
// accounts. The count and the subsequent create are not atomic: two
// concurrent creates may both observe count below the ceiling and over-admit
// by one. That race is accepted, the provider is the authority and this
// layer holds no coordination point.
func (s *Service) checkQuota(ctx context.Context, classID string) error {
	count, err := s.IDP.CountUsers(ctx, classID)
	if err != nil {
		return providerErr(err)
	}
	if count >= s.MaxStudentsPerClass {
		return ErrQuotaExceeded
	}
	return nil
}

// fetchOwned resolves an account by id and confirms it belongs to classID.
// A mismatch is reported as not-found so the existence of accounts in other
// classes is never revealed.
func (s *Service) fetchOwned(ctx context.Context, classID, userID string) (*idp.User, error) {
	u, err := s.IDP.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, idp.ErrNotFound) {
			return nil, ErrStudentNotFound
		}
		return nil, providerErr(err)
	}
	if u.Tenant != classID {
		return nil, ErrStudentNotFound
	}
	return u, nil
}
