package user

// Contact is the minimal identity needed to address a notification.
type Contact struct {
	ID    string
	Email string
	Name  string
}

// FirstName returns the first word of the name, or a greeting fallback.
func (c Contact) FirstName() string {
	for i, r := range c.Name {
		if r == ' ' {
			return c.Name[:i]
		}
	}
	if c.Name == "" {
		return "there"
	}
	return c.Name
}
