package domain

import "time"

// SyncKind identifies a best-effort propagation to an external collaborator.
type SyncKind string

const (
	SyncCreateIdentity SyncKind = "identity.create"
	SyncUpdateIdentity SyncKind = "identity.update"
	SyncDeleteIdentity SyncKind = "identity.delete"
	SyncCreateProfile  SyncKind = "profile.create"
)

// Target returns the collaborator the kind is delivered to.
func (k SyncKind) Target() string {
	switch k {
	case SyncCreateProfile:
		return "profile"
	default:
		return "identity"
	}
}

// SyncJob carries everything a collaborator call needs. Password is only set
// for SyncCreateIdentity and is never persisted or logged.
type SyncJob struct {
	Kind          SyncKind
	Login         string
	PreviousLogin string
	Password      string
	Role          Role
	FirstName     string
	LastName      string
	EnqueuedAt    time.Time
}

// ShardKey is the login that picks the worker for j. A rename is keyed by
// the previous login so it stays behind earlier jobs for that login.
func (j SyncJob) ShardKey() string {
	if j.PreviousLogin != "" {
		return j.PreviousLogin
	}
	return j.Login
}

// SyncFailure is the secret-free record of a job that could not be delivered.
type SyncFailure struct {
	Kind     SyncKind  `json:"kind"`
	Target   string    `json:"target"`
	Login    string    `json:"login"`
	Previous string    `json:"previous_login,omitempty"`
	Error    string    `json:"error"`
	FailedAt time.Time `json:"failed_at"`
}

// Failure builds the persisted record for j.
func (j SyncJob) Failure(err error, at time.Time) SyncFailure {
	return SyncFailure{
		Kind:     j.Kind,
		Target:   j.Kind.Target(),
		Login:    j.Login,
		Previous: j.PreviousLogin,
		Error:    err.Error(),
		FailedAt: at.UTC(),
	}
}
