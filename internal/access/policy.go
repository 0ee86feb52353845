// Package access holds the pure permission predicates gating every ticket,
// comment and vote operation. Nothing here touches storage; callers hand in
// fully loaded domain values and get a yes/no back.
package access

import "github.com/SpectrexWizard/Q-Reserve/internal/domain"

// AgentVisibility selects which tickets agents may view.
type AgentVisibility string

const (
	// AgentVisibilityAssigned lets agents view only tickets they created or
	// are assigned to.
	AgentVisibilityAssigned AgentVisibility = "assigned"
	// AgentVisibilityAll lets agents view every ticket.
	AgentVisibilityAll AgentVisibility = "all"
)

// ParseAgentVisibility validates a raw visibility value.
func ParseAgentVisibility(raw string) (AgentVisibility, bool) {
	switch AgentVisibility(raw) {
	case AgentVisibilityAssigned, AgentVisibilityAll:
		return AgentVisibility(raw), true
	}
	return "", false
}

// Policy evaluates permissions. The zero value uses the assigned-or-created
// agent visibility rule.
type Policy struct {
	agentVisibility AgentVisibility
}

// NewPolicy builds a Policy with the given agent visibility rule.
func NewPolicy(visibility AgentVisibility) *Policy {
	if visibility == "" {
		visibility = AgentVisibilityAssigned
	}
	return &Policy{agentVisibility: visibility}
}

// AgentVisibility returns the configured visibility rule.
func (p *Policy) AgentVisibility() AgentVisibility {
	if p.agentVisibility == "" {
		return AgentVisibilityAssigned
	}
	return p.agentVisibility
}

// CanViewTicket reports whether user may see ticket. Admins see everything,
// creators always see their own tickets, agents see per the visibility rule.
func (p *Policy) CanViewTicket(user *domain.User, ticket *domain.Ticket) bool {
	if user == nil || ticket == nil {
		return false
	}
	if ticket.CreatorID == user.ID {
		return true
	}
	switch user.Role {
	case domain.RoleAdmin:
		return true
	case domain.RoleAgent:
		if p.AgentVisibility() == AgentVisibilityAll {
			return true
		}
		return ticket.IsAssignedTo(user.ID)
	default:
		return false
	}
}

// CanModifyTicket reports whether user may change status, priority or
// assignment. Staff may modify any ticket, including ones outside their
// view scope.
func (p *Policy) CanModifyTicket(user *domain.User, ticket *domain.Ticket) bool {
	if user == nil || ticket == nil {
		return false
	}
	return user.Role.IsStaff()
}

// CanEditTicketFields reports whether user may rewrite subject/description.
// Stricter than CanModifyTicket: end users may touch only their own ticket
// and only while it is still open.
func (p *Policy) CanEditTicketFields(user *domain.User, ticket *domain.Ticket) bool {
	if user == nil || ticket == nil {
		return false
	}
	if user.Role.IsStaff() {
		return true
	}
	return ticket.CreatorID == user.ID && ticket.Status == domain.TicketStatusOpen
}

// CanViewComment reports whether user may see comment. Internal comments are
// staff-only regardless of the user's relationship to the ticket; everything
// else follows ticket visibility.
func (p *Policy) CanViewComment(user *domain.User, ticket *domain.Ticket, comment *domain.Comment) bool {
	if user == nil || comment == nil {
		return false
	}
	if comment.IsInternal && !user.Role.IsStaff() {
		return false
	}
	return p.CanViewTicket(user, ticket)
}

// CanEditComment reports whether user may edit or delete comment: the author
// or an admin.
func (p *Policy) CanEditComment(user *domain.User, comment *domain.Comment) bool {
	if user == nil || comment == nil {
		return false
	}
	return comment.AuthorID == user.ID || user.Role == domain.RoleAdmin
}

// CanViewAuditLog reports whether user may read a ticket's audit trail.
func (p *Policy) CanViewAuditLog(user *domain.User) bool {
	return user != nil && user.Role == domain.RoleAdmin
}
