// Package policy decides whether a caller may perform an operation on an
// account or order. Every function here is pure: it looks only at the
// caller's role and id and at the owner of the target.
//
// Rules, first match wins:
//  1. no caller: deny with errs.ErrAuthenticationRequired (public targets excepted)
//  2. staff caller: allow
//  3. staff-only action: deny with errs.ErrForbidden
//  4. order target: allow only the owning customer
//  5. account target: allow only the account itself
//
// Listing has no single target and is narrowed instead of denied, see ListScope.
package policy

import (
	"fmt"

	"github.com/kendall-kelly/service-crm-api/errs"
	"github.com/kendall-kelly/service-crm-api/models"
)

// Action is the kind of operation being requested
type Action string

const (
	ActionRead   Action = "read"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionList   Action = "list"
	// ActionManage covers staff-only operations: staff field updates,
	// create on behalf, the account directory.
	ActionManage Action = "manage"
)

// Kind is the kind of resource being targeted
type Kind string

const (
	KindOrder   Kind = "order"
	KindAccount Kind = "account"
	// KindPublic marks registration and the subscription confirmation page.
	KindPublic Kind = "public"
)

// Subject is the caller as seen by the policy
type Subject struct {
	ID   uint
	Role models.Role
}

// SubjectOf converts an account into a Subject; nil means unauthenticated
func SubjectOf(account *models.Account) *Subject {
	if account == nil {
		return nil
	}
	return &Subject{ID: account.ID, Role: account.Role}
}

// IsStaff reports whether the subject has the staff role
func (s *Subject) IsStaff() bool {
	return s != nil && s.Role == models.RoleStaff
}

// Target identifies the resource of an operation by kind and owner
type Target struct {
	Kind    Kind
	OwnerID uint // customer of an order, or the account id itself
}

// OrderTarget targets an order owned by customerID
func OrderTarget(customerID uint) Target {
	return Target{Kind: KindOrder, OwnerID: customerID}
}

// AccountTarget targets the account with the given id (or its contact)
func AccountTarget(accountID uint) Target {
	return Target{Kind: KindAccount, OwnerID: accountID}
}

// PublicTarget targets an operation open to everyone
func PublicTarget() Target {
	return Target{Kind: KindPublic}
}

// Decision is the outcome of Authorize
type Decision struct {
	Allowed bool
	Reason  error // nil when Allowed
}

// Err returns nil when allowed, otherwise the deny reason
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return d.Reason
}

func allow() Decision {
	return Decision{Allowed: true}
}

func deny(reason error) Decision {
	return Decision{Reason: reason}
}

// Authorize evaluates the access rules for one operation on one target
func Authorize(caller *Subject, action Action, target Target) Decision {
	if target.Kind == KindPublic {
		return allow()
	}
	if caller == nil {
		return deny(errs.ErrAuthenticationRequired)
	}
	// Role supersedes ownership.
	if caller.IsStaff() {
		return allow()
	}
	if action == ActionManage || (action == ActionDelete && target.Kind == KindOrder) {
		return deny(errs.Forbidden(fmt.Sprintf("%s %s requires staff", action, target.Kind)))
	}

	switch target.Kind {
	case KindOrder:
		if target.OwnerID == caller.ID {
			return allow()
		}
		return deny(errs.Forbidden("order belongs to another customer"))
	case KindAccount:
		if target.OwnerID == caller.ID {
			return allow()
		}
		return deny(errs.Forbidden("account belongs to someone else"))
	}
	return deny(errs.Forbidden(fmt.Sprintf("unknown resource kind %q", target.Kind)))
}

// Scope narrows a listing
type Scope struct {
	All     bool // no owner filter
	OwnerID uint // when !All, only resources owned by this account
}

// ListScope computes the result set a caller may see when listing.
// A nil named means "my listing": staff see everything, customers only
// their own records. A non-nil named account is checked first, exactly as a
// read of that account would be.
func ListScope(caller *Subject, named *uint) (Scope, error) {
	if caller == nil {
		return Scope{}, errs.ErrAuthenticationRequired
	}
	if named != nil {
		if err := Authorize(caller, ActionRead, AccountTarget(*named)).Err(); err != nil {
			return Scope{}, err
		}
		return Scope{OwnerID: *named}, nil
	}
	if caller.IsStaff() {
		return Scope{All: true}, nil
	}
	return Scope{OwnerID: caller.ID}, nil
}
