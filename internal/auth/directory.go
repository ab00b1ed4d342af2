package auth

import (
	"errors"

	"patient-management/internal/domain/entity"

	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("invalid username or password")

type credential struct {
	user         entity.User
	passwordHash []byte
}

// Directory is the fixed in-memory credential table used by login.
type Directory struct {
	credentials map[string]credential
}

// Account seeds a Directory entry.
type Account struct {
	User     entity.User
	Password string
}

// DefaultAccounts are the demo accounts, one per role.
var DefaultAccounts = []Account{
	{
		User:     entity.User{ID: 1, Username: "admin", Email: "admin@hospital.com", Role: entity.RoleAdmin, FullName: "Admin User"},
		Password: "admin123",
	},
	{
		User:     entity.User{ID: 2, Username: "doctor", Email: "doctor@hospital.com", Role: entity.RoleDoctor, FullName: "Dr. John Smith"},
		Password: "doctor123",
	},
	{
		User:     entity.User{ID: 3, Username: "nurse", Email: "nurse@hospital.com", Role: entity.RoleNurse, FullName: "Nurse Mary Johnson"},
		Password: "nurse123",
	},
}

// NewDirectory hashes the account passwords with bcrypt and indexes them by username.
func NewDirectory(accounts []Account) (*Directory, error) {
	d := &Directory{credentials: make(map[string]credential, len(accounts))}
	for _, account := range accounts {
		hash, err := bcrypt.GenerateFromPassword([]byte(account.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		d.credentials[account.User.Username] = credential{user: account.User, passwordHash: hash}
	}
	return d, nil
}

// NewDefaultDirectory builds the directory of DefaultAccounts.
func NewDefaultDirectory() (*Directory, error) {
	return NewDirectory(DefaultAccounts)
}

// Authenticate returns a copy of the matching user or ErrInvalidCredentials.
func (d *Directory) Authenticate(username, password string) (*entity.User, error) {
	cred, ok := d.credentials[username]
	if !ok {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(cred.passwordHash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	user := cred.user
	return &user, nil
}

// Lookup returns the user registered under username.
func (d *Directory) Lookup(username string) (*entity.User, bool) {
	cred, ok := d.credentials[username]
	if !ok {
		return nil, false
	}
	user := cred.user
	return &user, true
}
