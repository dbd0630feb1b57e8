package authapi

import "techheal/cmd/identity"

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`

	Age              *int    `json:"age,omitempty"`
	WeightKg         *int    `json:"weight,omitempty"`
	HeightCm         *int    `json:"height,omitempty"`
	Goal             *string `json:"goal,omitempty"`
	Diet             *string `json:"diet,omitempty"`
	ActivityLevel    *string `json:"activity_level,omitempty"`
	HealthConditions *string `json:"health_conditions,omitempty"`
}

// loginRequest follows the password-grant shape: username carries the email.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type updateProfileRequest struct {
	Age              *int    `json:"age,omitempty"`
	WeightKg         *int    `json:"weight,omitempty"`
	HeightCm         *int    `json:"height,omitempty"`
	Goal             *string `json:"goal,omitempty"`
	Diet             *string `json:"diet,omitempty"`
	ActivityLevel    *string `json:"activity_level,omitempty"`
	HealthConditions *string `json:"health_conditions,omitempty"`
}

// tokenResponse carries the issued credential plus a profile echo so the
// client can decide whether onboarding is still needed without a second call.
// Unset profile fields serialize as null.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`

	Age              *int    `json:"age"`
	WeightKg         *int    `json:"weight"`
	HeightCm         *int    `json:"height"`
	Goal             *string `json:"goal"`
	Diet             *string `json:"diet"`
	ActivityLevel    *string `json:"activity_level"`
	HealthConditions *string `json:"health_conditions"`
}

func toTokenResponse(access string, u identity.User) tokenResponse {
	return tokenResponse{
		AccessToken:      access,
		TokenType:        "bearer",
		Age:              u.Age,
		WeightKg:         u.WeightKg,
		HeightCm:         u.HeightCm,
		Goal:             u.Goal,
		Diet:             u.Diet,
		ActivityLevel:    u.ActivityLevel,
		HealthConditions: u.HealthConditions,
	}
}

type userResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`

	Age              *int    `json:"age,omitempty"`
	WeightKg         *int    `json:"weight,omitempty"`
	HeightCm         *int    `json:"height,omitempty"`
	Goal             *string `json:"goal,omitempty"`
	Diet             *string `json:"diet,omitempty"`
	ActivityLevel    *string `json:"activity_level,omitempty"`
	HealthConditions *string `json:"health_conditions,omitempty"`
	ProfilePicture   *string `json:"profile_picture,omitempty"`
}

type uploadPictureResponse struct {
	ProfilePicture string `json:"profile_picture"`
}

func toUserResponse(u identity.User) userResponse {
	return userResponse{
		ID:               u.ID,
		Username:         u.Username,
		Email:            u.Email,
		Age:              u.Age,
		WeightKg:         u.WeightKg,
		HeightCm:         u.HeightCm,
		Goal:             u.Goal,
		Diet:             u.Diet,
		ActivityLevel:    u.ActivityLevel,
		HealthConditions: u.HealthConditions,
		ProfilePicture:   u.ProfilePicture,
	}
}
