package model

import (
	"fmt"
	"strings"

	"guild-registration-bot/internal/domain"
)

type Mode string

const (
	ModeAutomatic Mode = "Automatic"
	ModeManual    Mode = "Manual"
)

// ParseMode accepts the persisted mode value case-insensitively.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "automatic":
		return ModeAutomatic, nil
	case "manual":
		return ModeManual, nil
	}
	return "", fmt.Errorf("%w: unknown registration mode %q", domain.ErrInvalidArgument, s)
}

// RegistrationConfig is the per-guild registration record. A question's
// display number is its 1-based position in Questions; removing an entry
// renumbers everything after it.
type RegistrationConfig struct {
	RegistrationChannelID string
	ManagementChannelID   string
	Mode                  Mode
	ManagerRoleIDs        []string
	Questions             []Question
}

func NewRegistrationConfig(regChannelID, mgmtChannelID string, mode Mode) (*RegistrationConfig, error) {
	if regChannelID == "" || mgmtChannelID == "" {
		return nil, fmt.Errorf("%w: registration and management channels are required", domain.ErrInvalidArgument)
	}
	if mode != ModeAutomatic && mode != ModeManual {
		return nil, fmt.Errorf("%w: mode must be Automatic or Manual", domain.ErrInvalidArgument)
	}
	return &RegistrationConfig{
		RegistrationChannelID: regChannelID,
		ManagementChannelID:   mgmtChannelID,
		Mode:                  mode,
	}, nil
}

func (c *RegistrationConfig) AddQuestion(q Question) {
	c.Questions = append(c.Questions, q)
}

// RemoveQuestion removes the question with 1-based display number n.
// Later questions shift down, which renumbers them on the next encode.
func (c *RegistrationConfig) RemoveQuestion(n int) error {
	if n < 1 || n > len(c.Questions) {
		return fmt.Errorf("%w: question number %d out of range (have %d)", domain.ErrInvalidArgument, n, len(c.Questions))
	}
	c.Questions = append(c.Questions[:n-1], c.Questions[n:]...)
	return nil
}

// AddManagerRole appends the role if not already listed. Manager roles are a
// display-only list; they do not gate any command.
func (c *RegistrationConfig) AddManagerRole(roleID string) bool {
	for _, id := range c.ManagerRoleIDs {
		if id == roleID {
			return false
		}
	}
	c.ManagerRoleIDs = append(c.ManagerRoleIDs, roleID)
	return true
}

func (c *RegistrationConfig) RemoveManagerRole(roleID string) bool {
	for i, id := range c.ManagerRoleIDs {
		if id == roleID {
			c.ManagerRoleIDs = append(c.ManagerRoleIDs[:i], c.ManagerRoleIDs[i+1:]...)
			return true
		}
	}
	return false
}

// Snapshot returns a deep copy handed to a starting session, so config
// writes mid-session never touch an in-flight questionnaire.
func (c *RegistrationConfig) Snapshot() *RegistrationConfig {
	cp := *c
	cp.ManagerRoleIDs = append([]string(nil), c.ManagerRoleIDs...)
	cp.Questions = make([]Question, len(c.Questions))
	for i, q := range c.Questions {
		cp.Questions[i] = q
		cp.Questions[i].Options = append([]Option(nil), q.Options...)
	}
	return &cp
}
