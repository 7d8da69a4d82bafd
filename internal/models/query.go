package models

// Collection names in the document store.
const (
	CollectionUsers           = "users"
	CollectionClasses         = "classes"
	CollectionCourses         = "courses"
	CollectionPeriods         = "academicPeriods"
	CollectionGradeCategories = "gradeCategories"
	CollectionGrades          = "grades"
	CollectionAttendance      = "attendance"
	CollectionHomeworks       = "homeworks"
	CollectionComments        = "teacherComments"
	CollectionMessages        = "messages"
	CollectionEvents          = "events"
)

// Query operators understood by every record source.
const (
	OpEqual         = "=="
	OpIn            = "in"
	OpArrayContains = "array-contains"
)

// Condition is a single field predicate.
type Condition struct {
	Field string      `json:"field"`
	Op    string      `json:"op"`
	Value interface{} `json:"value"`
}

// QueryFilter selects records of one collection. Conditions are ANDed; an
// empty list selects the whole collection.
type QueryFilter struct {
	Collection string      `json:"collection"`
	Conditions []Condition `json:"conditions,omitempty"`
}

// Where builds a filter with the given conditions.
func Where(collection string, conditions ...Condition) QueryFilter {
	return QueryFilter{Collection: collection, Conditions: conditions}
}

// Eq is a shorthand for an equality condition.
func Eq(field string, value interface{}) Condition {
	return Condition{Field: field, Op: OpEqual, Value: value}
}

// In is a shorthand for a membership condition.
func In(field string, values []string) Condition {
	return Condition{Field: field, Op: OpIn, Value: values}
}

// Contains is a shorthand for an array-contains condition.
func Contains(field string, value string) Condition {
	return Condition{Field: field, Op: OpArrayContains, Value: value}
}
