package auth

import (
	"net/http"

	"github.com/spec-kit/pharmacy-helpdesk/internal/domain"
	apperrors "github.com/spec-kit/pharmacy-helpdesk/pkg/util/errorutil"
)

// Policy grants an operation to holders of any listed role, or to the
// resource owner when Owner is set.
type Policy struct {
	Name  string
	Roles []domain.Role
	Owner bool
}

var (
	PolicyCreateTicket = Policy{Name: "create_ticket", Roles: []domain.Role{domain.RoleCustomer}}
	PolicyUpdateStatus = Policy{Name: "update_ticket_status", Roles: []domain.Role{domain.RolePharmacist}}
	PolicyListAll      = Policy{Name: "list_all_tickets", Roles: []domain.Role{domain.RolePharmacist}}
	PolicyViewTicket   = Policy{Name: "view_ticket", Roles: []domain.Role{domain.RolePharmacist}, Owner: true}
	PolicyAddNote      = Policy{Name: "add_note", Owner: true}
)

// Allows evaluates the policy. ownerID is the owning user of the resource,
// or nil when the operation has no target resource.
func (p Policy) Allows(user *domain.User, ownerID *int64) bool {
	if user == nil || user.Deleted {
		return false
	}
	if user.HasAnyRole(p.Roles...) {
		return true
	}
	return p.Owner && ownerID != nil && *ownerID == user.ID
}

// AllowsTicket evaluates the policy against a ticket's owner.
func (p Policy) AllowsTicket(user *domain.User, ticket *domain.Ticket) bool {
	if ticket == nil {
		return p.Allows(user, nil)
	}
	return p.Allows(user, &ticket.UserID)
}

// Denied is the authorization failure reported when the policy rejects a caller.
func (p Policy) Denied() error {
	return apperrors.NewDomainError(apperrors.CodeForbidden, "not permitted to "+p.Name, http.StatusForbidden, map[string]any{"policy": p.Name})
}
