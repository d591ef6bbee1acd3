package entity

import "github.com/google/uuid"

type Character struct {
	Id         uuid.UUID
	Key        string
	Name       string
	AvatarURL  string
	BasePrompt string
	StyleTags  []string
	IsActive   bool
}
