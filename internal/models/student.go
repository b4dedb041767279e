package models

// Student represents a learner together with the courses they attend.
type Student struct {
	ID      int64    `db:"id" json:"id"`
	Name    string   `db:"name" json:"name"`
	Courses []Course `db:"-" json:"courses"`
}

// Course represents a course a student can be enrolled to.
type Course struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// IsNew reports whether the course has not been persisted yet.
func (c Course) IsNew() bool {
	return c.ID == 0
}

// StudentSummary identifies a student inside a projection.
type StudentSummary struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// StudentCourseNames is the read-only projection produced by the aggregated
// listing: one row per student with the joined names of its courses.
type StudentCourseNames struct {
	Student     StudentSummary `json:"student"`
	CourseNames string         `json:"course_names"`
}

// CourseNamesDelimiter separates course names in the aggregated projection.
const CourseNamesDelimiter = ", "
