package payroll

import "fmt"

// AccessControl holds the role checks evaluated before any mutating or
// self-service operation.
type AccessControl struct {
	owner Address
}

// NewAccessControl fixes the owner. The owner is never reassigned.
func NewAccessControl(owner Address) AccessControl {
	return AccessControl{owner: NewAddress(string(owner))}
}

// Owner returns the privileged identity.
func (a AccessControl) Owner() Address { return a.owner }

// OwnerOnly fails unless caller is the owner.
func (a AccessControl) OwnerOnly(caller Address) error {
	if caller.IsZero() || NewAddress(string(caller)) != a.owner {
		return fmt.Errorf("%w: %q is not the owner", ErrUnauthorized, caller)
	}
	return nil
}

// EmployeeOnly fails unless caller is on the roster.
func (a AccessControl) EmployeeOnly(caller Address, r *Registry) error {
	if caller.IsZero() || !r.Exists(caller) {
		return fmt.Errorf("%w: %q is not an employee", ErrUnauthorized, caller)
	}
	return nil
}
