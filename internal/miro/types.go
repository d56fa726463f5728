// ABOUTME: Miro REST API v2 request and response shapes
// ABOUTME: Only the fields the tools read or send are modeled

package miro

// Board is a Miro board as returned by the boards endpoints.
type Board struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	ViewLink    string `json:"viewLink,omitempty"`
}

// Item is any board item (sticky note, frame, text, shape, ...).
type Item struct {
	ID       string    `json:"id"`
	Type     string    `json:"type"`
	Data     ItemData  `json:"data"`
	Position *Position `json:"position,omitempty"`
}

// ItemData carries the human-readable payload of an item.
type ItemData struct {
	Content string `json:"content,omitempty"`
	Title   string `json:"title,omitempty"`
}

// Position is a board coordinate.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Geometry is an item size.
type Geometry struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// StickyNote describes a sticky note to create.
type StickyNote struct {
	Content string
	X, Y    float64
	Color   string
}

// Frame describes a frame to create.
type Frame struct {
	Title         string
	X, Y          float64
	Width, Height float64
}

// Text describes a text item to create.
type Text struct {
	Content string
	X, Y    float64
}

type createBoardRequest struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Policy      boardPolicy `json:"policy"`
}

type boardPolicy struct {
	PermissionsPolicy permissionsPolicy `json:"permissionsPolicy"`
}

type permissionsPolicy struct {
	CollaborationToolsStartAccess string `json:"collaborationToolsStartAccess"`
	CopyAccess                    string `json:"copyAccess"`
	SharingAccess                 string `json:"sharingAccess"`
}

type stickyNoteRequest struct {
	Data     stickyNoteData `json:"data"`
	Style    stickyStyle    `json:"style"`
	Position Position       `json:"position"`
}

type stickyNoteData struct {
	Content string `json:"content,omitempty"`
	Shape   string `json:"shape"`
}

type stickyStyle struct {
	FillColor string `json:"fillColor"`
}

type frameRequest struct {
	Data     frameData `json:"data"`
	Position Position  `json:"position"`
	Geometry Geometry  `json:"geometry"`
}

type frameData struct {
	Title  string `json:"title,omitempty"`
	Format string `json:"format"`
}

type textRequest struct {
	Data     textData `json:"data"`
	Position Position `json:"position"`
}

type textData struct {
	Content string `json:"content,omitempty"`
}

type boardList struct {
	Data []Board `json:"data"`
}

type itemList struct {
	Data []Item `json:"data"`
}
