package models

import "time"

type Post struct {
	ID          int       `json:"id"`
	OwnerID     int       `json:"owner_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Address     string    `json:"address"`
	Price       float64   `json:"price"`
	CreatedAt   time.Time `json:"created_at"`
}

type CreatePostRequest struct {
	Title       string  `json:"title" validate:"required,max=200"`
	Description string  `json:"description" validate:"max=5000"`
	Address     string  `json:"address" validate:"required,max=300"`
	Price       float64 `json:"price" validate:"gte=0"`
}
