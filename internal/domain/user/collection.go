package user

// Collection is the ordered set of users persisted as one unit.
type Collection []User

// NextID returns max(existing ids) + 1, or 1 when no record has a usable id.
func (c Collection) NextID() int64 {
	var maxID int64
	for _, u := range c {
		if u.HasID() && u.ID > maxID {
			maxID = u.ID
		}
	}
	return maxID + 1
}

// IndexOf returns the position of the user with the given id, or -1.
func (c Collection) IndexOf(id int64) int {
	for i, u := range c {
		if u.HasID() && u.ID == id {
			return i
		}
	}
	return -1
}

// Remove returns the collection without the element at index i.
func (c Collection) Remove(i int) Collection {
	return append(c[:i:i], c[i+1:]...)
}

// Clone returns a deep copy of the collection. A nil collection clones to an
// empty, non-nil one.
func (c Collection) Clone() Collection {
	out := make(Collection, len(c))
	for i, u := range c {
		out[i] = u.Clone()
	}
	return out
}
