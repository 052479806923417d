package model

// Item is an entry of an ItemsList. Names are unique among the active
// (not deleted) items of one list.
type Item struct {
	ID          string   `json:"_id"`
	Name        string   `json:"name"`
	ItemsList   string   `json:"itemsList"`
	WhoAdded    string   `json:"whoAdded"`
	TimeAdded   int64    `json:"timeAdded"`
	WhoRemoved  string   `json:"whoRemoved,omitempty"`
	TimeRemoved int64    `json:"timeRemoved,omitempty"`
	Deleted     bool     `json:"deleted"`
	Notified    []string `json:"notified"`
}
