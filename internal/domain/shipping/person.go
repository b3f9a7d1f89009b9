package shipping

// Person is the principal investigator or contact owning a proposal
type Person struct {
	ID         uint32
	GivenName  *string
	FamilyName *string
	Title      *string
}

// DisplayName composes a printable name. A title is only shown alongside a
// family name, or on its own as "<title> Unknown".
func (p *Person) DisplayName() string {
	switch {
	case p.GivenName == nil && p.FamilyName == nil && p.Title == nil:
		return "Unknown"
	case p.GivenName == nil && p.FamilyName == nil:
		return *p.Title + " Unknown"
	case p.GivenName == nil && p.Title == nil:
		return *p.FamilyName
	case p.GivenName == nil:
		return *p.Title + " " + *p.FamilyName
	case p.FamilyName == nil:
		return *p.GivenName
	case p.Title == nil:
		return *p.GivenName + " " + *p.FamilyName
	default:
		return *p.Title + " " + *p.GivenName + " " + *p.FamilyName
	}
}
