package models

import (
	"time"
)

type Team struct {
	ID      uint   `json:"id" gorm:"primaryKey"`
	MatchID uint   `json:"match_id" gorm:"not null;uniqueIndex:idx_match_join_code,priority:1"`
	Name    string `json:"name" gorm:"not null"`

	// JoinCode is a 6-character uppercase alphanumeric code, unique
	// within its match.
	JoinCode string `json:"join_code" gorm:"not null;uniqueIndex:idx_match_join_code,priority:2"`

	CaptainID *uint `json:"captain_id"`
	Score     int   `json:"score" gorm:"not null;default:0"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Members []TeamMember `json:"members,omitempty" gorm:"foreignKey:TeamID"`
}

type TeamMember struct {
	ID     uint   `json:"id" gorm:"primaryKey"`
	TeamID uint   `json:"team_id" gorm:"not null;index"`
	Name   string `json:"name" gorm:"not null"`

	JoinedAt  time.Time `json:"joined_at"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
