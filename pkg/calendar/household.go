package calendar

import (
	"errors"
	"fmt"
	"strings"
)

var ErrNoMembers = errors.New("household has no members")

type Member struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// Household is the fixed set of family members allowed to author events.
type Household struct {
	members       []Member
	byName        map[string]Member
	defaultMember string
}

// NewHousehold builds the member set. An empty defaultMember selects the first member.
func NewHousehold(members []Member, defaultMember string) (*Household, error) {
	if len(members) == 0 {
		return nil, ErrNoMembers
	}
	byName := make(map[string]Member, len(members))
	for _, m := range members {
		name := strings.TrimSpace(m.Name)
		if name == "" {
			return nil, errors.New("member name is empty")
		}
		if _, exists := byName[name]; exists {
			return nil, fmt.Errorf("duplicate member %q", name)
		}
		byName[name] = Member{Name: name, Color: m.Color}
	}
	if defaultMember == "" {
		defaultMember = strings.TrimSpace(members[0].Name)
	}
	if _, ok := byName[defaultMember]; !ok {
		return nil, fmt.Errorf("default member %q is not a household member", defaultMember)
	}
	ordered := make([]Member, 0, len(members))
	for _, m := range members {
		ordered = append(ordered, byName[strings.TrimSpace(m.Name)])
	}
	return &Household{members: ordered, byName: byName, defaultMember: defaultMember}, nil
}

func DefaultMembers() []Member {
	return []Member{
		{Name: "아빠", Color: "#BBDEFB"},
		{Name: "엄마", Color: "#F8BBD0"},
		{Name: "수현", Color: "#FFE0B2"},
		{Name: "태현", Color: "#C8E6C9"},
	}
}

func DefaultHousehold() *Household {
	h, _ := NewHousehold(DefaultMembers(), "아빠")
	return h
}

// Resolve returns the named member. Unknown names fall back to the default member.
func (h *Household) Resolve(name string) Member {
	if m, ok := h.byName[strings.TrimSpace(name)]; ok {
		return m
	}
	return h.byName[h.defaultMember]
}

func (h *Household) Has(name string) bool {
	_, ok := h.byName[name]
	return ok
}

func (h *Household) Default() Member {
	return h.byName[h.defaultMember]
}

func (h *Household) Members() []Member {
	return append([]Member(nil), h.members...)
}
