package contacts

import (
	"context"
	"fmt"

	"github.com/posdenous/naviya-launcher-sub002/internal/models"
	"github.com/posdenous/naviya-launcher-sub002/internal/repository"
)

// Directory is the read side of the contact list. It has no dependencies on the
// rule engine so escalation can use it.
type Directory struct {
	repo repository.ContactsRepo
}

func NewDirectory(repo repository.ContactsRepo) *Directory {
	return &Directory{repo: repo}
}

// EmergencyContacts lists userID's current emergency contacts.
func (d *Directory) EmergencyContacts(ctx context.Context, userID string) ([]*models.ProtectedContact, error) {
	list, err := d.repo.ListContacts(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list contacts: %w", err)
	}
	out := make([]*models.ProtectedContact, 0, len(list))
	for _, c := range list {
		if c.IsEmergencyContact {
			out = append(out, c)
		}
	}
	return out, nil
}
