package domain

import "time"

// Partition separates attempts taken outside any class from class-scoped ones.
type Partition string

const (
	PartitionGeneral Partition = "general"
	PartitionClass   Partition = "class"
)

// Collection is the remote collection that stores the partition.
func (p Partition) Collection() string {
	if p == PartitionClass {
		return "classScores"
	}
	return "quizScores"
}

// CacheKey is the local-store key holding the last successful fetch of the partition.
func (p Partition) CacheKey() string {
	if p == PartitionClass {
		return "classScores"
	}
	return "generalScores"
}

// ParsePartition accepts "class" or "general" (and the empty string as general).
func ParsePartition(raw string) (Partition, bool) {
	switch raw {
	case "", string(PartitionGeneral):
		return PartitionGeneral, true
	case string(PartitionClass):
		return PartitionClass, true
	}
	return "", false
}

// QuizScore is one user's stored attempt for a quiz. Synced is only meaningful
// in the offline buffer.
type QuizScore struct {
	ID              string    `json:"id"`
	MaterialName    string    `json:"materialName"`
	QuizName        string    `json:"quizName"`
	Score           float64   `json:"score"`
	UserID          string    `json:"userId"`
	UserName        string    `json:"userName"`
	UserEmail       string    `json:"userEmail"`
	UserInstitution string    `json:"userInstitution"`
	ClassID         string    `json:"classId,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
	Synced          bool      `json:"synced"`
}

// Key returns the composite identity of the attempt.
func (s QuizScore) Key() ScoreKey {
	return ScoreKey{UserID: s.UserID, QuizName: s.QuizName, ClassID: s.ClassID}
}

// ScoreSubmission is a completed quiz attempt as reported by a client.
type ScoreSubmission struct {
	MaterialName    string  `json:"materialName" validate:"required"`
	QuizName        string  `json:"quizName" validate:"required"`
	Score           float64 `json:"score" validate:"gte=0,lte=100"`
	UserID          string  `json:"userId" validate:"required"`
	UserName        string  `json:"userName"`
	UserEmail       string  `json:"userEmail" validate:"omitempty,email"`
	UserInstitution string  `json:"userInstitution"`
	ClassID         string  `json:"classId,omitempty"`
}

// Record turns the submission into a stored attempt written at ts.
func (s ScoreSubmission) Record(ts time.Time) QuizScore {
	rec := QuizScore{
		MaterialName:    s.MaterialName,
		QuizName:        s.QuizName,
		Score:           s.Score,
		UserID:          s.UserID,
		UserName:        s.UserName,
		UserEmail:       s.UserEmail,
		UserInstitution: s.UserInstitution,
		ClassID:         s.ClassID,
		Timestamp:       ts,
	}
	rec.ID = rec.Key().DocumentID()
	return rec
}

// Submission is the inverse of Record, used when replaying buffered attempts.
func (s QuizScore) Submission() ScoreSubmission {
	return ScoreSubmission{
		MaterialName:    s.MaterialName,
		QuizName:        s.QuizName,
		Score:           s.Score,
		UserID:          s.UserID,
		UserName:        s.UserName,
		UserEmail:       s.UserEmail,
		UserInstitution: s.UserInstitution,
		ClassID:         s.ClassID,
	}
}

// ScoreQuery filters a fetch. Empty fields do not filter.
type ScoreQuery struct {
	Partition    Partition
	UserID       string
	MaterialName string
	QuizName     string
	ClassID      string
}

// Matches reports whether the attempt passes every set filter.
func (q ScoreQuery) Matches(s QuizScore) bool {
	if q.UserID != "" && s.UserID != q.UserID {
		return false
	}
	if q.MaterialName != "" && s.MaterialName != q.MaterialName {
		return false
	}
	if q.QuizName != "" && s.QuizName != q.QuizName {
		return false
	}
	if q.ClassID != "" && s.ClassID != q.ClassID {
		return false
	}
	return true
}

// LeaderboardEntry is a per-user aggregate. Score is the arithmetic mean of
// the folded attempts; Timestamp is the latest contributing attempt.
type LeaderboardEntry struct {
	UserID          string    `json:"userId"`
	UserName        string    `json:"userName"`
	UserEmail       string    `json:"userEmail"`
	UserInstitution string    `json:"userInstitution"`
	QuizCount       int       `json:"quizCount"`
	TotalScore      float64   `json:"totalScore"`
	Score           float64   `json:"score"`
	Timestamp       time.Time `json:"timestamp"`
}

// Role is the account type of a user.
type Role string

const (
	RoleStudent    Role = "student"
	RoleInstructor Role = "dosen"
	RoleAdmin      Role = "admin"
)

// User is a profile stored in the users collection.
type User struct {
	ID          string `json:"id" validate:"required"`
	Name        string `json:"name"`
	Email       string `json:"email" validate:"omitempty,email"`
	Institution string `json:"institution"`
	Role        Role   `json:"role" validate:"oneof=student dosen admin"`
}

func (u User) IsStudent() bool    { return u.Role == RoleStudent }
func (u User) IsInstructor() bool { return u.Role == RoleInstructor }

// Class groups students under an instructor. StudentsData is resolved on demand.
type Class struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Material     string    `json:"material"`
	MaterialID   string    `json:"materialId"`
	TeacherID    string    `json:"teacherId"`
	TeacherName  string    `json:"teacherName"`
	ClassCode    string    `json:"classCode"`
	CreatedAt    time.Time `json:"createdAt"`
	Students     []string  `json:"students"`
	StudentsData []User    `json:"studentsData,omitempty"`
}

// HasStudent reports whether userID is on the roster.
func (c Class) HasStudent(userID string) bool {
	for _, id := range c.Students {
		if id == userID {
			return true
		}
	}
	return false
}

// NewClass is the instructor input for creating a class.
type NewClass struct {
	Name        string `json:"name" validate:"required"`
	Material    string `json:"material" validate:"required"`
	MaterialID  string `json:"materialId"`
	TeacherID   string `json:"teacherId" validate:"required"`
	TeacherName string `json:"teacherName"`
	ClassCode   string `json:"classCode" validate:"omitempty,alphanum,min=4,max=16"`
}

// ChatMessage is a message posted to a class channel.
type ChatMessage struct {
	ID        string    `json:"id"`
	ClassID   string    `json:"classId"`
	UserID    string    `json:"userId"`
	UserName  string    `json:"userName"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
	ReadBy    []string  `json:"readBy"`
}

// ReadByUser reports whether userID has read the message.
func (m ChatMessage) ReadByUser(userID string) bool {
	for _, id := range m.ReadBy {
		if id == userID {
			return true
		}
	}
	return false
}

// NewMessage is a chat message as submitted by a class member.
type NewMessage struct {
	ClassID  string `json:"classId" validate:"required"`
	UserID   string `json:"userId" validate:"required"`
	UserName string `json:"userName"`
	Text     string `json:"text"`
}
