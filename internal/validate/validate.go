package validate

import "fmt"

// Field limits — single source of truth for backend validation and the
// /api/limits endpoint consumed by the frontend.
const (
	MinPasswordLength          = 6
	MaxPasswordLength          = 72 // bcrypt input limit
	MaxEmailLength             = 254
	MaxCourseTitleLength       = 500
	MaxCourseDescriptionLength = 5000
	MaxNameLength              = 100
)

func checkLen(value string, max int, field string) string {
	if len(value) > max {
		return fmt.Sprintf("%s must be %d characters or fewer", field, max)
	}
	return ""
}

func Email(s string) string             { return checkLen(s, MaxEmailLength, "email") }
func CourseTitle(s string) string       { return checkLen(s, MaxCourseTitleLength, "title") }
func CourseDescription(s string) string { return checkLen(s, MaxCourseDescriptionLength, "description") }
func Name(s string) string              { return checkLen(s, MaxNameLength, "name") }

// Password validates length bounds before any external call is made.
func Password(s string) string {
	if len(s) < MinPasswordLength {
		return fmt.Sprintf("password must be at least %d characters", MinPasswordLength)
	}
	if len(s) > MaxPasswordLength {
		return fmt.Sprintf("password must be at most %d characters", MaxPasswordLength)
	}
	return ""
}

// FieldLimits returns a map of field names to max lengths for the /api/limits endpoint.
func FieldLimits() map[string]int {
	return map[string]int{
		"email":             MaxEmailLength,
		"password":          MaxPasswordLength,
		"courseTitle":       MaxCourseTitleLength,
		"courseDescription": MaxCourseDescriptionLength,
		"name":              MaxNameLength,
	}
}
