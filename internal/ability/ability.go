// Package ability maps a user's permission set onto coarse action/subject
// rules used to gate routes.
package ability

import "github.com/randevuhub/randevu-backend/internal/dto"

type Action string

const (
	Manage Action = "manage"
	Create Action = "create"
	Read   Action = "read"
	Update Action = "update"
	Delete Action = "delete"
)

type Subject string

const (
	SubjectUser       Subject = "User"
	SubjectRole       Subject = "Role"
	SubjectPermission Subject = "Permission"
)

type rule struct {
	action  Action
	subject Subject
}

// Ability is an immutable rule set built from a live permission snapshot.
type Ability struct {
	rules map[rule]struct{}
}

func (a Ability) allow(action Action, subject Subject) Ability {
	a.rules[rule{action, subject}] = struct{}{}
	return a
}

// ForUser translates the user's permissions into rules.
func ForUser(user *dto.AuthenticatedUser) Ability {
	a := Ability{rules: make(map[rule]struct{})}
	if user == nil {
		return a
	}

	for _, permission := range user.Permissions {
		switch permission {
		case "USER_CREATE":
			a = a.allow(Create, SubjectUser)
		case "USER_READ":
			a = a.allow(Read, SubjectUser)
		case "USER_UPDATE":
			a = a.allow(Update, SubjectUser)
		case "USER_DELETE":
			a = a.allow(Delete, SubjectUser)
		case "ROLE_MANAGE":
			a = a.allow(Manage, SubjectRole)
		case "PERMISSION_MANAGE":
			a = a.allow(Manage, SubjectPermission)
		}
	}
	return a
}

// Can reports whether the ability grants the action on the subject. Manage
// on a subject implies every action on it.
func (a Ability) Can(action Action, subject Subject) bool {
	if _, ok := a.rules[rule{action, subject}]; ok {
		return true
	}
	_, ok := a.rules[rule{Manage, subject}]
	return ok
}
