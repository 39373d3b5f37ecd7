package model

// Role enumerates the identity roles carried in JWT claims.
type Role string

const (
	RoleStudent  Role = "student"
	RoleTeacher  Role = "teacher"
	RoleExaminer Role = "examiner"
	RoleProctor  Role = "proctor"
)

// User is an account consumed read-only for identity and notification
// lookups. Registration and login live in an external service.
type User struct {
	Email        string `json:"email"`
	Name         string `json:"name"`
	Role         Role   `json:"role"`
	StudentID    string `json:"student_id,omitempty"`
	PasswordHash string `json:"-"`
}

// CanEvaluate reports whether the role may grade subjective answers and
// inspect submissions.
func (r Role) CanEvaluate() bool {
	return r == RoleTeacher || r == RoleExaminer
}
