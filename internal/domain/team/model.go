package team

// Team is a club as reported by a source adapter.
type Team struct {
	ID        int64
	Name      string
	ShortName string
}

// Key returns the canonical team key used to bucket same-team candidates.
func (t Team) Key() string {
	return Normalize(t.Name)
}
