package domain

import "time"

// DefaultPetImage is stored when a pet is saved without an image URL.
const DefaultPetImage = "https://bytegrad.com/course-assets/react-nextjs/pet-placeholder.png"

// Pet is a pet currently checked in at the daycare. It is owned by exactly one User.
type Pet struct {
	ID        string
	Name      string
	OwnerName string
	ImageURL  string
	Age       int
	Notes     string
	OwnerID   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PetInput carries the user-editable fields of a Pet.
type PetInput struct {
	Name      string `json:"name" form:"name"`
	OwnerName string `json:"ownerName" form:"ownerName"`
	ImageURL  string `json:"imageUrl" form:"imageUrl"`
	Age       int    `json:"age" form:"age"`
	Notes     string `json:"notes" form:"notes"`
}

// Apply copies the input fields onto p, leaving identity and ownership untouched.
func (in PetInput) Apply(p *Pet) {
	p.Name = in.Name
	p.OwnerName = in.OwnerName
	p.ImageURL = in.ImageURL
	p.Age = in.Age
	p.Notes = in.Notes
}
