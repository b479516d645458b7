package model

type User struct {
	Base
	FirstName string  `db:"first_name" json:"firstName"`
	LastName  string  `db:"last_name" json:"lastName"`
	Email     string  `db:"email" json:"email"`
	PhoneNo   string  `db:"phone_no" json:"phoneNo"`
	Sponsor   *string `db:"sponsor" json:"sponsor,omitempty"`
}

func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

type UserRequest struct {
	FirstName string  `json:"firstName" validate:"required,max=100"`
	LastName  string  `json:"lastName" validate:"required,max=100"`
	Email     string  `json:"email" validate:"required,max=254"`
	PhoneNo   string  `json:"phoneNo" validate:"required,max=32"`
	Sponsor   *string `json:"sponsor,omitempty" validate:"omitempty,max=200"`
}
