// Package activity records workouts and meal analyses and derives stats
// from them.
package activity

import (
	"context"
	"encoding/json"
	"time"
)

// Activity is one tracked workout entry.
type Activity struct {
	ID              string          `json:"id"`
	UserID          string          `json:"user_id"`
	ActivityType    string          `json:"activity_type"`
	DurationMinutes int             `json:"duration_minutes"`
	Intensity       *string         `json:"intensity,omitempty"`
	Notes           *string         `json:"notes,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// MealAnalysis is one stored nutritional breakdown.
type MealAnalysis struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	MealName  string          `json:"meal_name,omitempty"`
	Analysis  json.RawMessage `json:"analysis"`
	ImageURL  *string         `json:"image_uri,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// CreateActivityInput carries a new workout entry.
type CreateActivityInput struct {
	UserID          string
	ActivityType    string
	DurationMinutes int
	Intensity       *string
	Notes           *string
	Now             time.Time
}

// CreateMealAnalysisInput carries a new meal analysis record.
type CreateMealAnalysisInput struct {
	UserID   string
	MealName string
	Analysis json.RawMessage
	ImageURL *string
	Now      time.Time
}

// Store is the persistence surface the handlers depend on.
type Store interface {
	CreateActivity(ctx context.Context, in CreateActivityInput) (Activity, error)
	RecentActivities(ctx context.Context, userID string, limit int) ([]Activity, error)
	ActivitiesSince(ctx context.Context, userID string, since time.Time) ([]Activity, error)
	CreateMealAnalysis(ctx context.Context, in CreateMealAnalysisInput) (MealAnalysis, error)
	RecentMealAnalyses(ctx context.Context, userID string, limit int) ([]MealAnalysis, error)
}
