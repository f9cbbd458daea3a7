// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package custody

import (
	"fmt"
	"strings"
)

// Role is the organizational role of an actor. Authorization is
// decided by role alone.
type Role string

const (
	RolePolice      Role = "police"
	RoleForensicLab Role = "forensic_lab"
	RoleProsecutor  Role = "prosecutor"
	RoleJudge       Role = "judge"
)

// Roles lists every known role in a stable order.
var Roles = []Role{RolePolice, RoleForensicLab, RoleProsecutor, RoleJudge}

// ParseRole converts a wire string to a Role, rejecting unknown values.
func ParseRole(s string) (Role, error) {
	role := Role(s)
	if !role.Valid() {
		return "", fmt.Errorf("unknown role %q (want one of %s)", s, roleList())
	}
	return role, nil
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RolePolice, RoleForensicLab, RoleProsecutor, RoleJudge:
		return true
	}
	return false
}

// CanUpload reports whether actors in this role may register new
// evidence.
func (r Role) CanUpload() bool {
	return r == RolePolice || r == RoleForensicLab
}

func (r Role) String() string { return string(r) }

func roleList() string {
	names := make([]string, len(Roles))
	for i, role := range Roles {
		names[i] = string(role)
	}
	return strings.Join(names, ", ")
}

// Actor is the authenticated caller of an operation. The service
// derives it from a verified token; the engine treats it as opaque
// apart from Role and Name.
type Actor struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
	Name string `json:"name"`
}

// Validate rejects actors with an unknown role or an empty name.
func (a Actor) Validate() error {
	if !a.Role.Valid() {
		return fmt.Errorf("actor role %q is not a known role", a.Role)
	}
	if strings.TrimSpace(a.Name) == "" {
		return fmt.Errorf("actor name is empty")
	}
	return nil
}

// Custodian returns the role/name pair of the actor.
func (a Actor) Custodian() Custodian {
	return Custodian{Role: a.Role, Name: a.Name}
}

func (a Actor) String() string {
	return fmt.Sprintf("%s (%s)", a.Name, a.Role)
}

// Custodian identifies who currently holds an evidence item.
type Custodian struct {
	Role Role   `json:"role"`
	Name string `json:"name"`
}

func (c Custodian) String() string {
	return fmt.Sprintf("%s (%s)", c.Name, c.Role)
}
