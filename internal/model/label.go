package model

import "time"

// Label is the shape shared by categories and tags.
type Label struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Color     *string   `json:"color"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type (
	Category = Label
	Tag      = Label
)

type LabelRequest struct {
	Name  string  `json:"name"`
	Color *string `json:"color,omitempty"`
}
