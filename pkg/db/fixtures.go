package db

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Fixtures is the reference data an in-memory database is seeded with.
// The engine never writes these records; in production they come from the
// activity catalog and the guardian directory.
type Fixtures struct {
	Users []struct {
		ID             string `yaml:"id"`
		OrganizationID string `yaml:"organizationID"`
		DisplayName    string `yaml:"displayName"`
		Email          string `yaml:"email"`
	} `yaml:"users"`
	Activities []struct {
		ID             string `yaml:"id"`
		OrganizationID string `yaml:"organizationID"`
		Name           string `yaml:"name"`
		StartsAt       string `yaml:"startsAt"`
		Active         *bool  `yaml:"active,omitempty"`
	} `yaml:"activities"`
	Participants []struct {
		ID             string   `yaml:"id"`
		OrganizationID string   `yaml:"organizationID"`
		FirstName      string   `yaml:"firstName"`
		LastName       string   `yaml:"lastName"`
		Guardians      []string `yaml:"guardians,omitempty"`
	} `yaml:"participants"`
}

// ReadFixtures parses a fixtures YAML file
func ReadFixtures(path string) (*Fixtures, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixtures file: %w", err)
	}

	var fx Fixtures
	if err := yaml.Unmarshal(data, &fx); err != nil {
		return nil, fmt.Errorf("failed to parse fixtures file: %w", err)
	}
	return &fx, nil
}

// LoadFixtures reads a fixtures YAML file into a new MemoryDB
func LoadFixtures(path string) (*MemoryDB, error) {
	fx, err := ReadFixtures(path)
	if err != nil {
		return nil, err
	}
	return fx.Seed(NewMemoryDB())
}

// ReferenceData is the parsed form of Fixtures
type ReferenceData struct {
	Users        []User
	Activities   []Activity
	Participants []Participant
	Guardians    []GuardianLink
}

// Reference converts the fixtures into records
func (fx *Fixtures) Reference() (*ReferenceData, error) {
	ref := &ReferenceData{}
	for _, u := range fx.Users {
		ref.Users = append(ref.Users, User{ID: u.ID, OrganizationID: u.OrganizationID, DisplayName: u.DisplayName, Email: u.Email})
	}

	for _, a := range fx.Activities {
		startsAt, err := parseFixtureTime(a.StartsAt)
		if err != nil {
			return nil, fmt.Errorf("activity %s: %w", a.ID, err)
		}
		active := true
		if a.Active != nil {
			active = *a.Active
		}
		ref.Activities = append(ref.Activities, Activity{ID: a.ID, OrganizationID: a.OrganizationID, Name: a.Name, StartsAt: startsAt, Active: active})
	}

	for _, p := range fx.Participants {
		ref.Participants = append(ref.Participants, Participant{ID: p.ID, OrganizationID: p.OrganizationID, FirstName: p.FirstName, LastName: p.LastName})
		for _, gid := range p.Guardians {
			ref.Guardians = append(ref.Guardians, GuardianLink{GuardianID: gid, ParticipantID: p.ID})
		}
	}
	return ref, nil
}

// Seed loads the fixtures into m
func (fx *Fixtures) Seed(m *MemoryDB) (*MemoryDB, error) {
	ref, err := fx.Reference()
	if err != nil {
		return nil, err
	}
	for _, u := range ref.Users {
		m.AddUser(u)
	}
	for _, a := range ref.Activities {
		m.AddActivity(a)
	}
	for _, p := range ref.Participants {
		m.AddParticipant(p)
	}
	for _, g := range ref.Guardians {
		m.LinkGuardian(g.GuardianID, g.ParticipantID)
	}
	return m, nil
}

func parseFixtureTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid startsAt %q (expected RFC3339 or YYYY-MM-DD)", value)
	}
	return t, nil
}
