package ports

// NotesRenderer converts raw speaker notes into safe HTML
type NotesRenderer interface {
	Render(notes string) string
}
