// package models defines the data model for the target catalog and account administration
package models

import (
	"fmt"
	"time"
)

// Domain tables filtered by user_id during cascading deletion.
const (
	TableTargets  = "targets"
	TableAdmins   = "admins"
	TableProfiles = "profiles"
)

// DomainTables lists the user-owned tables in the order cascading deletion visits them.
var DomainTables = []string{TableTargets, TableAdmins, TableProfiles}

// TargetRecord links an uploaded reference image, its compiled descriptor and the video it triggers.
//
// Records are written once after both artifacts exist and are never updated.
type TargetRecord struct {
	ID            string    `json:"id"`
	Sequence      int       `json:"-"`
	UserID        string    `json:"user_id,omitempty"`
	ImageURL      string    `json:"imageUrl"`
	VideoURL      string    `json:"videoUrl"`
	DescriptorURL string    `json:"mindUrl"`
	CreatedAt     time.Time `json:"created_at"`
}

// Validate checks that every artifact reference is present.
func (t *TargetRecord) Validate() error {
	switch {
	case t.ImageURL == "":
		return fmt.Errorf("image url is required")
	case t.VideoURL == "":
		return fmt.Errorf("video url is required")
	case t.DescriptorURL == "":
		return fmt.Errorf("descriptor url is required")
	}
	return nil
}

// AdminEntry marks an identity as privileged.
type AdminEntry struct {
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// ProfileRecord is user-owned domain data.
type ProfileRecord struct {
	UserID      string    `json:"user_id"`
	DisplayName string    `json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Account is a login identity held by the local backend.
type Account struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Identity is the authenticated caller of a request.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
}
