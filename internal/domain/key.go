package domain

import "strings"

// ScoreKey identifies at most one stored attempt per partition.
type ScoreKey struct {
	UserID   string
	QuizName string
	ClassID  string
}

// Partition is class when the key carries a class id.
func (k ScoreKey) Partition() Partition {
	if k.ClassID == "" {
		return PartitionGeneral
	}
	return PartitionClass
}

// DocumentID renders {userId}_{quizName}_{classId|general}. Components are
// escaped so that a delimiter inside a name cannot produce a colliding id.
func (k ScoreKey) DocumentID() string {
	class := "general"
	if k.ClassID != "" {
		class = escapeKeyPart(k.ClassID)
	}
	return escapeKeyPart(k.UserID) + "_" + escapeKeyPart(k.QuizName) + "_" + class
}

var keyEscaper = strings.NewReplacer("%", "%25", "_", "%5F", "/", "%2F")

func escapeKeyPart(s string) string {
	return keyEscaper.Replace(s)
}
