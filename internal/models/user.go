package models

// User is a location member an instance can be assigned to.
type User struct {
	ID    FlexString `json:"id"`
	Name  string     `json:"name"`
	Email string     `json:"email"`
	Phone string     `json:"phone,omitempty"`
}

// UserList is the envelope returned by get-users.
type UserList struct {
	Data      []User `json:"data"`
	Instances int    `json:"instancias"`
}

// FindUser returns the user with the given id.
func FindUser(users []User, id string) (User, bool) {
	for _, u := range users {
		if string(u.ID) == id {
			return u, true
		}
	}
	return User{}, false
}
