// internal/domain/models/group.go
package models

// Group represents a class roster with its own rubric.
//
// NOTE:
//   - MemberIDs and RubricItemIDs mirror the group_id foreign keys on
//     Member and RubricItem. The member and rubric tables are the source of
//     truth; the store rebuilds these lists on every mutation and nothing
//     outside the store should edit them.
//   - MemberIDs is an unordered set; roster order comes from ListNumber.
type Group struct {
	ID            int64   `json:"id"`
	Name          string  `json:"name"`
	MemberIDs     []int64 `json:"memberIds"`
	RubricItemIDs []int64 `json:"rubricItemIds"`
}

// HasMember reports whether id is in the group's member list.
func (g Group) HasMember(id int64) bool {
	for _, mid := range g.MemberIDs {
		if mid == id {
			return true
		}
	}
	return false
}

// Clone returns a copy that shares no slices with g.
func (g Group) Clone() Group {
	c := g
	c.MemberIDs = append([]int64(nil), g.MemberIDs...)
	c.RubricItemIDs = append([]int64(nil), g.RubricItemIDs...)
	return c
}
