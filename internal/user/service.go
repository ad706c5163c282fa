package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrAccountDisabled    = errors.New("account is deactivated")
	ErrMissingField       = errors.New("required field missing")
)

// Service implements account management for all three actor roles.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// RegisterPatient creates a self-registered patient account.
func (s *Service) RegisterPatient(ctx context.Context, username, email, password, fullName string) (*PatientAccount, error) {
	username = strings.TrimSpace(username)
	if username == "" || email == "" || password == "" {
		return nil, ErrMissingField
	}

	u := User{Username: username, Email: email, Role: RolePatient}
	if err := u.SetPassword(password); err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	account, err := s.repo.CreatePatient(ctx, u, Patient{FullName: fullName})
	if err != nil {
		return nil, err
	}
	return account, nil
}

// CreateAdmin provisions an admin account. Admins carry no profile row, the
// user record is the whole account.
func (s *Service) CreateAdmin(ctx context.Context, u User) error {
	if u.Username == "" || u.Email == "" || u.PasswordHash == "" {
		return ErrMissingField
	}
	u.Role = RoleAdmin
	_, err := s.repo.CreateUser(ctx, u)
	return err
}

// Authenticate verifies credentials and returns the account, rejecting
// deactivated users.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*User, error) {
	u, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	if !u.CheckPassword(password) {
		return nil, ErrInvalidCredentials
	}
	if !u.IsActive {
		return nil, ErrAccountDisabled
	}
	return u, nil
}

// GetUser returns the account identity for a token subject.
func (s *Service) GetUser(ctx context.Context, id int64) (*User, error) {
	return s.repo.GetUserByID(ctx, id)
}

// CreateDoctor provisions a doctor account plus profile (admin operation).
func (s *Service) CreateDoctor(ctx context.Context, username, email, password string, profile Doctor) (*DoctorAccount, error) {
	username = strings.TrimSpace(username)
	if username == "" || email == "" || password == "" {
		return nil, ErrMissingField
	}

	u := User{Username: username, Email: email, Role: RoleDoctor}
	if err := u.SetPassword(password); err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return s.repo.CreateDoctor(ctx, u, profile)
}

// CreatePatient provisions a patient account plus profile (admin operation).
func (s *Service) CreatePatient(ctx context.Context, username, email, password string, profile Patient) (*PatientAccount, error) {
	username = strings.TrimSpace(username)
	if username == "" || email == "" || password == "" {
		return nil, ErrMissingField
	}

	u := User{Username: username, Email: email, Role: RolePatient}
	if err := u.SetPassword(password); err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return s.repo.CreatePatient(ctx, u, profile)
}

func (s *Service) GetDoctor(ctx context.Context, id int64) (*DoctorAccount, error) {
	return s.repo.GetDoctorByID(ctx, id)
}

func (s *Service) ListDoctors(ctx context.Context, onlyActive bool) ([]DoctorAccount, error) {
	return s.repo.ListDoctors(ctx, onlyActive)
}

// UpdateDoctor updates the profile and, when active is non-nil, flips the
// account flag.
func (s *Service) UpdateDoctor(ctx context.Context, profile Doctor, active *bool) (*DoctorAccount, error) {
	if err := s.repo.UpdateDoctor(ctx, profile); err != nil {
		return nil, err
	}
	if active != nil {
		if err := s.repo.SetUserActive(ctx, profile.ID, *active); err != nil {
			return nil, err
		}
	}
	return s.repo.GetDoctorByID(ctx, profile.ID)
}

func (s *Service) GetPatient(ctx context.Context, id int64) (*PatientAccount, error) {
	return s.repo.GetPatientByID(ctx, id)
}

func (s *Service) ListPatients(ctx context.Context, onlyActive bool) ([]PatientAccount, error) {
	return s.repo.ListPatients(ctx, onlyActive)
}

func (s *Service) UpdatePatient(ctx context.Context, profile Patient, active *bool) (*PatientAccount, error) {
	if err := s.repo.UpdatePatient(ctx, profile); err != nil {
		return nil, err
	}
	if active != nil {
		if err := s.repo.SetUserActive(ctx, profile.ID, *active); err != nil {
			return nil, err
		}
	}
	return s.repo.GetPatientByID(ctx, profile.ID)
}

// Deactivate soft-disables an account. Clinical history stays intact; the
// doctor simply stops being bookable.
func (s *Service) Deactivate(ctx context.Context, id int64) error {
	return s.repo.SetUserActive(ctx, id, false)
}

// HardDelete permanently removes an account and cascades away its
// appointments and treatments. Separate from Deactivate on purpose: callers
// must name the destructive operation explicitly.
func (s *Service) HardDelete(ctx context.Context, id int64) error {
	return s.repo.HardDeleteUser(ctx, id)
}

func (s *Service) CountByRole(ctx context.Context) (RoleCounts, error) {
	return s.repo.CountByRole(ctx)
}
