// internal/domain/models/rubricitem.go
package models

// RubricItem is one scored criterion of a group's rubric.
// MaxPoints is the ceiling for any score awarded against it and is >= 1.
type RubricItem struct {
	ID          int64  `json:"id"`
	GroupID     int64  `json:"groupId"`
	Title       string `json:"title"`
	Description string `json:"description"`
	MaxPoints   int    `json:"maxPoints"`
}
