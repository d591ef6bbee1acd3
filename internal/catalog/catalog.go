// Package catalog loads the seed data (characters and notification types) from a YAML file.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"companion-be/internal/entity"
	"companion-be/internal/model"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
	"gorm.io/datatypes"
)

type Character struct {
	Key        string   `yaml:"key"`
	Name       string   `yaml:"name"`
	AvatarURL  string   `yaml:"avatar_url"`
	BasePrompt string   `yaml:"base_prompt"`
	StyleTags  []string `yaml:"style_tags"`
	Active     *bool    `yaml:"active"`
}

type NotificationType struct {
	Code        string   `yaml:"code"`
	DisplayName string   `yaml:"display_name"`
	Template    string   `yaml:"template"`
	TargetType  string   `yaml:"target_type"`
	Priority    string   `yaml:"priority"`
	Channels    []string `yaml:"channels"`
	Active      *bool    `yaml:"active"`
}

type Catalog struct {
	Characters        []Character        `yaml:"characters"`
	NotificationTypes []NotificationType `yaml:"notification_types"`
}

var targetTypes = map[string]bool{"SELF": true, "ADMIN": true, "BROADCAST": true}

func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalog) validate() error {
	keys := make(map[string]bool, len(c.Characters))
	for i, ch := range c.Characters {
		if strings.TrimSpace(ch.Key) == "" || strings.TrimSpace(ch.Name) == "" || strings.TrimSpace(ch.BasePrompt) == "" {
			return fmt.Errorf("character #%d: key, name and base_prompt are required", i)
		}
		if keys[ch.Key] {
			return fmt.Errorf("character %q: duplicate key", ch.Key)
		}
		keys[ch.Key] = true
	}

	codes := make(map[string]bool, len(c.NotificationTypes))
	for i, nt := range c.NotificationTypes {
		if nt.Code == "" || nt.Template == "" {
			return fmt.Errorf("notification type #%d: code and template are required", i)
		}
		if codes[nt.Code] {
			return fmt.Errorf("notification type %q: duplicate code", nt.Code)
		}
		codes[nt.Code] = true
		if !targetTypes[nt.TargetType] {
			return fmt.Errorf("notification type %q: target_type must be SELF, ADMIN or BROADCAST", nt.Code)
		}
	}
	return nil
}

// Entities assigns fresh ids; callers that upsert by key keep the stored id instead.
func (c *Catalog) Entities() []*entity.Character {
	out := make([]*entity.Character, 0, len(c.Characters))
	for _, ch := range c.Characters {
		out = append(out, &entity.Character{
			Id:         uuid.New(),
			Key:        ch.Key,
			Name:       ch.Name,
			AvatarURL:  ch.AvatarURL,
			BasePrompt: strings.TrimSpace(ch.BasePrompt),
			StyleTags:  ch.StyleTags,
			IsActive:   active(ch.Active),
		})
	}
	return out
}

func (c *Catalog) NotificationModels() []model.NotificationType {
	out := make([]model.NotificationType, 0, len(c.NotificationTypes))
	for _, nt := range c.NotificationTypes {
		channels := nt.Channels
		if len(channels) == 0 {
			channels = []string{"web"}
		}
		raw, _ := json.Marshal(channels)

		priority := nt.Priority
		if priority == "" {
			priority = "MEDIUM"
		}
		displayName := nt.DisplayName
		if displayName == "" {
			displayName = nt.Code
		}

		out = append(out, model.NotificationType{
			Code:        nt.Code,
			DisplayName: displayName,
			Template:    nt.Template,
			TargetType:  nt.TargetType,
			Priority:    priority,
			Channels:    datatypes.JSON(raw),
			IsActive:    active(nt.Active),
		})
	}
	return out
}

func active(flag *bool) bool {
	return flag == nil || *flag
}
