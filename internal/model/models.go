package model

import "time"

// Website is a hosted static site served under a subdomain.
type Website struct {
	ID        int64  `json:"id"`
	Subdomain string `json:"subdomain"`
	CreatedAt string `json:"created_at"`
}

// Redirect is a short link served at the platform domain.
type Redirect struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	TargetURL string `json:"target_url"`
	CreatedAt string `json:"created_at"`
}

// GitHubMapping points a subdomain at a GitHub Pages repository.
type GitHubMapping struct {
	ID             int64  `json:"id"`
	Subdomain      string `json:"subdomain"`
	GitHubUsername string `json:"github_username"`
	RepositoryName string `json:"repository_name"`
	CreatedAt      string `json:"created_at"`
}

// ResourceCounts reports the per-kind totals and the shared ceiling.
type ResourceCounts struct {
	Websites       int `json:"websites"`
	Redirects      int `json:"redirects"`
	GitHubMappings int `json:"github_mappings"`
	MaxAllowed     int `json:"max_allowed"`
}

// UserSummary identifies the account that owns the snapshot.
type UserSummary struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Snapshot is the aggregate dashboard payload. It is always fetched whole.
type Snapshot struct {
	User           *UserSummary    `json:"user,omitempty"`
	ResourceCounts ResourceCounts  `json:"resource_counts"`
	Websites       []Website       `json:"websites"`
	Redirects      []Redirect      `json:"redirects"`
	GitHubMappings []GitHubMapping `json:"github_mappings"`
}

// RedirectInput is the request payload for creating or updating a redirect.
type RedirectInput struct {
	Name      string `json:"name"`
	TargetURL string `json:"target_url"`
}

// GitHubMappingInput is the request payload for creating or updating a GitHub mapping.
type GitHubMappingInput struct {
	Subdomain      string `json:"subdomain"`
	GitHubUsername string `json:"github_username"`
	RepositoryName string `json:"repository_name"`
}

// SignupInput is the registration payload.
type SignupInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SessionValue stores one persistent key/value pair for a browser session.
type SessionValue struct {
	SessionID string    `gorm:"primaryKey;size:36"`
	Name      string    `gorm:"primaryKey;size:64"`
	Value     string    `gorm:"not null;type:text"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime;index"`
}
