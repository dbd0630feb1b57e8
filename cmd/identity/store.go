package identity

import (
	"context"
	"time"
)

// User is TechHeal's canonical principal, including the health profile the
// mobile client edits.
type User struct {
	ID           string
	Username     string
	UsernameNorm string
	Email        string
	EmailNorm    string
	PasswordHash string

	Age              *int
	WeightKg         *int
	HeightCm         *int
	Goal             *string
	Diet             *string
	ActivityLevel    *string
	HealthConditions *string
	ProfilePicture   *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ProfilePatch is a partial profile update: nil fields are left untouched.
type ProfilePatch struct {
	Age              *int
	WeightKg         *int
	HeightCm         *int
	Goal             *string
	Diet             *string
	ActivityLevel    *string
	HealthConditions *string
	ProfilePicture   *string
}

// CreateUserInput describes a registration request. Username, Email, and
// Password are required; the profile is optional at sign-up.
type CreateUserInput struct {
	Username string
	Email    string
	Password string
	Profile  ProfilePatch
	Now      time.Time
}

// Store is the identity persistence boundary.
type Store interface {
	CreateUser(ctx context.Context, in CreateUserInput) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	GetUserByID(ctx context.Context, id string) (User, error)
	UpdateProfile(ctx context.Context, userID string, patch ProfilePatch, now time.Time) (User, error)
}
