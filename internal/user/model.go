package user

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleDoctor  Role = "doctor"
	RolePatient Role = "patient"
)

// Valid reports whether r is one of the known actor roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleDoctor, RolePatient:
		return true
	}
	return false
}

type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	Role         Role
	IsActive     bool
	CreatedAt    time.Time
}

// SetPassword hashes a plaintext password onto the user.
func (u *User) SetPassword(password string) error {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hashed)
	return nil
}

// CheckPassword reports whether password matches the stored hash.
func (u *User) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// Doctor is the profile side of a doctor account; it shares its id with the
// underlying user row.
type Doctor struct {
	ID              int64
	FullName        string
	Specialization  string
	ExperienceYears int
	About           string
}

// Patient is the profile side of a patient account.
type Patient struct {
	ID         int64
	FullName   string
	Gender     string
	DOB        string
	Address    string
	Phone      string
	HeightCM   *float64
	WeightKG   *float64
	BloodGroup string
}

// DoctorAccount joins a doctor profile with the account fields admin views
// and booking checks need.
type DoctorAccount struct {
	Doctor
	Username string
	Email    string
	IsActive bool
}

// PatientAccount joins a patient profile with its account fields.
type PatientAccount struct {
	Patient
	Username string
	Email    string
	IsActive bool
}

// RoleCounts holds the admin-stats aggregate.
type RoleCounts struct {
	Doctors  int64
	Patients int64
}
