package service

import "github.com/noah-isme/sma-bulletin-core/internal/models"

// maxInValues is the document store's limit on "in" query values.
const maxInValues = 30

var staffRoles = []string{string(models.RoleTeacher), string(models.RoleDirector), string(models.RoleSuperAdmin)}

// ScopeForRole returns the subscriptions of a session. Several filters on one
// collection are unioned; a collection without filter is not subscribed.
// Grades and comments are limited to relevantPeriodIDs. Periods are not
// listed: they are always subscribed whole.
func ScopeForRole(session models.Session, relevantPeriodIDs []string) []models.QueryFilter {
	uid := session.UserID
	filters := []models.QueryFilter{
		models.Where(models.CollectionClasses),
		models.Where(models.CollectionCourses),
		models.Where(models.CollectionGradeCategories),
		models.Where(models.CollectionMessages, models.Eq("receiverId", uid)),
		models.Where(models.CollectionMessages, models.Eq("senderId", uid)),
	}

	switch session.Role {
	case models.RoleStudent:
		filters = append(filters,
			models.Where(models.CollectionUsers, models.Eq("classId", session.ClassID)),
			models.Where(models.CollectionUsers, models.In("role", staffRoles)),
			models.Where(models.CollectionAttendance, models.Eq("studentId", uid)),
			models.Where(models.CollectionHomeworks, models.Eq("classId", session.ClassID)),
			models.Where(models.CollectionEvents, models.Eq("classId", session.ClassID)),
		)
		filters = append(filters, periodScoped(models.CollectionGrades, relevantPeriodIDs, models.Eq("studentId", uid))...)
		filters = append(filters, periodScoped(models.CollectionComments, relevantPeriodIDs, models.Eq("studentId", uid))...)

	case models.RoleParent:
		filters = append(filters,
			models.Where(models.CollectionUsers, models.Eq("parentId", uid)),
			models.Where(models.CollectionUsers, models.In("role", staffRoles)),
		)
		for _, child := range session.ChildrenIDs {
			filters = append(filters, models.Where(models.CollectionAttendance, models.Eq("studentId", child)))
			filters = append(filters, periodScoped(models.CollectionGrades, relevantPeriodIDs, models.Eq("studentId", child))...)
			filters = append(filters, periodScoped(models.CollectionComments, relevantPeriodIDs, models.Eq("studentId", child))...)
		}
		// ClassIDs of a parent session name the children's classes.
		for _, chunk := range chunk(session.ClassIDs, maxInValues) {
			filters = append(filters,
				models.Where(models.CollectionHomeworks, models.In("classId", chunk)),
				models.Where(models.CollectionEvents, models.In("classId", chunk)),
			)
		}

	case models.RoleTeacher:
		for _, c := range chunk(session.ClassIDs, maxInValues) {
			filters = append(filters, models.Where(models.CollectionUsers, models.In("classId", c)))
		}
		filters = append(filters,
			models.Where(models.CollectionUsers, models.Eq("role", string(models.RoleParent))),
			models.Where(models.CollectionUsers, models.In("role", staffRoles)),
			models.Where(models.CollectionAttendance),
			models.Where(models.CollectionHomeworks),
			models.Where(models.CollectionEvents),
		)
		filters = append(filters, periodScoped(models.CollectionGrades, relevantPeriodIDs)...)
		filters = append(filters, periodScoped(models.CollectionComments, relevantPeriodIDs, models.Eq("teacherId", uid))...)

	case models.RoleDirector, models.RoleSuperAdmin:
		filters = append(filters,
			models.Where(models.CollectionUsers),
			models.Where(models.CollectionAttendance),
			models.Where(models.CollectionHomeworks),
			models.Where(models.CollectionEvents),
		)
		filters = append(filters, periodScoped(models.CollectionGrades, relevantPeriodIDs)...)
		filters = append(filters, periodScoped(models.CollectionComments, relevantPeriodIDs)...)
	}
	return filters
}

// periodScoped restricts a collection to the given periods, one filter per
// chunk of ids. No ids means no filter.
func periodScoped(collection string, periodIDs []string, base ...models.Condition) []models.QueryFilter {
	out := make([]models.QueryFilter, 0)
	for _, c := range chunk(periodIDs, maxInValues) {
		conds := append(append([]models.Condition{}, base...), models.In("periodId", c))
		out = append(out, models.Where(collection, conds...))
	}
	return out
}

func chunk(values []string, size int) [][]string {
	var out [][]string
	for len(values) > 0 {
		n := size
		if len(values) < n {
			n = len(values)
		}
		out = append(out, values[:n])
		values = values[n:]
	}
	return out
}

func filtersByCollection(filters []models.QueryFilter) map[string][]models.QueryFilter {
	out := make(map[string][]models.QueryFilter)
	for _, f := range filters {
		out[f.Collection] = append(out[f.Collection], f)
	}
	return out
}
