package battlelog

import (
	"encoding/json"
	"fmt"
)

// DefaultSideID is assumed when a request does not say which side we are.
const DefaultSideID = "p2"

// Request is the normalised form of the host's request JSON. The host has
// shipped several shapes over time; rawRequest lists every accepted field.
type Request struct {
	RequestType string
	Wait        bool
	SideID      string
	SideName    string
	Team        []Pokemon
	Active      []ActiveSlot
}

// Pokemon is one team member as seen from our side.
type Pokemon struct {
	Ident     string
	Details   string
	Condition string
	Active    bool
}

// ActiveSlot lists the moves available to one active position.
type ActiveSlot struct {
	Moves []string
}

// Accepted shapes:
//
//	side.pokemon | side.team
//	pokemon.details | pokemon.species | pokemon.name
//	pokemon.ident, falling back to the details chain
//	active[].moves[].move | active[].moves[].id
type rawRequest struct {
	RequestType string `json:"requestType"`
	Wait        bool   `json:"wait"`
	Side        *struct {
		ID      string       `json:"id"`
		Name    string       `json:"name"`
		Pokemon []rawPokemon `json:"pokemon"`
		Team    []rawPokemon `json:"team"`
	} `json:"side"`
	Active []struct {
		Moves []struct {
			Move string `json:"move"`
			ID   string `json:"id"`
		} `json:"moves"`
	} `json:"active"`
}

type rawPokemon struct {
	Ident     string `json:"ident"`
	Details   string `json:"details"`
	Species   string `json:"species"`
	Name      string `json:"name"`
	Condition string `json:"condition"`
	Active    bool   `json:"active"`
}

func (p rawPokemon) normalize() Pokemon {
	details := firstNonEmpty(p.Details, p.Species, p.Name)
	return Pokemon{
		Ident:     firstNonEmpty(p.Ident, details),
		Details:   details,
		Condition: p.Condition,
		Active:    p.Active,
	}
}

// DecodeRequest parses a request payload.
func DecodeRequest(payload string) (*Request, error) {
	var raw rawRequest
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return nil, fmt.Errorf("failed to decode request: %w", err)
	}

	req := &Request{
		RequestType: raw.RequestType,
		Wait:        raw.Wait,
	}

	if raw.Side != nil {
		req.SideID = raw.Side.ID
		req.SideName = raw.Side.Name
		members := raw.Side.Pokemon
		if members == nil {
			members = raw.Side.Team
		}
		for _, p := range members {
			req.Team = append(req.Team, p.normalize())
		}
	}

	for _, a := range raw.Active {
		var slot ActiveSlot
		for _, m := range a.Moves {
			if name := firstNonEmpty(m.Move, m.ID); name != "" {
				slot.Moves = append(slot.Moves, name)
			}
		}
		req.Active = append(req.Active, slot)
	}

	return req, nil
}

// SideIDOf returns the side id of a payload, tolerating undecodable input.
func SideIDOf(payload string) string {
	req, err := DecodeRequest(payload)
	if err != nil || req.SideID == "" {
		return DefaultSideID
	}
	return req.SideID
}

// IsWait reports whether the request only tells us to wait for the opponent.
func (r *Request) IsWait() bool {
	return r.Wait || r.RequestType == "wait"
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
