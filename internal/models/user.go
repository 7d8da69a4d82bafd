package models

// UserRole enumerates the supported roles.
type UserRole string

const (
	RoleStudent    UserRole = "student"
	RoleParent     UserRole = "parent"
	RoleTeacher    UserRole = "teacher"
	RoleDirector   UserRole = "director"
	RoleSuperAdmin UserRole = "superadmin"
)

// IsStaff reports whether the role belongs to school personnel.
func (r UserRole) IsStaff() bool {
	return r == RoleTeacher || r == RoleDirector || r == RoleSuperAdmin
}

// IsManagement reports whether the role sees every record of the school.
func (r UserRole) IsManagement() bool {
	return r == RoleDirector || r == RoleSuperAdmin
}

// User is a role-tagged identity. Role specific fields are empty for other roles:
// ClassID/ParentID for students, ChildrenIDs for parents, ClassIDs and Subjects
// for teachers.
type User struct {
	ID          string   `json:"id" firestore:"-"`
	Name        string   `json:"name" firestore:"name"`
	Email       string   `json:"email" firestore:"email"`
	Role        UserRole `json:"role" firestore:"role"`
	ClassID     string   `json:"classId,omitempty" firestore:"classId,omitempty"`
	ParentID    string   `json:"parentId,omitempty" firestore:"parentId,omitempty"`
	ChildrenIDs []string `json:"childrenIds,omitempty" firestore:"childrenIds,omitempty"`
	ClassIDs    []string `json:"classIds,omitempty" firestore:"classIds,omitempty"`
	Subjects    []string `json:"subjects,omitempty" firestore:"subjects,omitempty"`
}

func (u User) RecordID() string { return u.ID }
func (u *User) SetID(id string) { u.ID = id }

// Session is the authenticated caller.
type Session struct {
	UserID      string   `json:"userId"`
	Name        string   `json:"name"`
	Email       string   `json:"email"`
	Role        UserRole `json:"role"`
	ClassID     string   `json:"classId,omitempty"`
	ClassIDs    []string `json:"classIds,omitempty"`
	ChildrenIDs []string `json:"childrenIds,omitempty"`
}
