package user

import (
	"context"
	"errors"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrDoctorNotFound  = errors.New("doctor not found")
	ErrPatientNotFound = errors.New("patient not found")
	ErrUsernameTaken   = errors.New("username already taken")
)

// Repository contains all DB interactions needed by the account service.
type Repository interface {
	CreateUser(ctx context.Context, u User) (int64, error)
	GetUserByID(ctx context.Context, id int64) (*User, error)
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	SetUserActive(ctx context.Context, id int64, active bool) error
	HardDeleteUser(ctx context.Context, id int64) error

	// Doctor accounts (user row + profile row in one transaction)
	CreateDoctor(ctx context.Context, u User, d Doctor) (*DoctorAccount, error)
	GetDoctorByID(ctx context.Context, id int64) (*DoctorAccount, error)
	ListDoctors(ctx context.Context, onlyActive bool) ([]DoctorAccount, error)
	UpdateDoctor(ctx context.Context, d Doctor) error

	// Patient accounts
	CreatePatient(ctx context.Context, u User, p Patient) (*PatientAccount, error)
	GetPatientByID(ctx context.Context, id int64) (*PatientAccount, error)
	ListPatients(ctx context.Context, onlyActive bool) ([]PatientAccount, error)
	UpdatePatient(ctx context.Context, p Patient) error

	// Admin stats
	CountByRole(ctx context.Context) (RoleCounts, error)
}
