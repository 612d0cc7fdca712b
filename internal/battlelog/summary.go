package battlelog

// BattleSummary is what the overlay shows about the current turn.
type BattleSummary struct {
	OurActive      *PokemonView  `json:"ourActive"`
	OurTeam        []PokemonView `json:"ourTeam"`
	OurMoves       []string      `json:"ourMoves"`
	OpponentActive *OpponentView `json:"opponentActive"`
	OpponentMoves  []string      `json:"opponentMoves"`
}

// PokemonView is one of our Pokémon as displayed.
type PokemonView struct {
	Ident     string `json:"ident"`
	Details   string `json:"details"`
	SpeciesID string `json:"speciesId"`
	Condition string `json:"condition"`
	Active    bool   `json:"active,omitempty"`
}

// OpponentView is the opponent's active Pokémon as displayed.
type OpponentView struct {
	Details   string `json:"details"`
	SpeciesID string `json:"speciesId"`
}

// Summarize builds a BattleSummary from a request payload. It returns nil
// when the payload cannot be decoded or carries no team.
func Summarize(payload string) *BattleSummary {
	req, err := DecodeRequest(payload)
	if err != nil || len(req.Team) == 0 {
		return nil
	}

	var active *Pokemon
	for i := range req.Team {
		if req.Team[i].Active {
			active = &req.Team[i]
			break
		}
	}
	if active == nil && len(req.Active) > 0 {
		active = &req.Team[0]
	}

	summary := &BattleSummary{
		OurTeam:       make([]PokemonView, 0, len(req.Team)),
		OurMoves:      []string{},
		OpponentMoves: []string{},
	}
	if active != nil {
		v := view(*active)
		v.Active = false
		summary.OurActive = &v
	}
	for _, p := range req.Team {
		summary.OurTeam = append(summary.OurTeam, view(p))
	}
	if len(req.Active) > 0 && req.Active[0].Moves != nil {
		summary.OurMoves = req.Active[0].Moves
	}

	return summary
}

// WithOpponent returns a copy of s carrying the opponent's state; a nil
// opponent clears it.
func (s *BattleSummary) WithOpponent(op *OpponentSummary) *BattleSummary {
	if s == nil {
		return nil
	}
	out := *s
	out.OpponentActive = nil
	out.OpponentMoves = []string{}
	if op != nil {
		out.OpponentActive = &OpponentView{Details: op.Details, SpeciesID: op.SpeciesID}
		if op.Moves != nil {
			out.OpponentMoves = op.Moves
		}
	}
	return &out
}

func view(p Pokemon) PokemonView {
	return PokemonView{
		Ident:     p.Ident,
		Details:   p.Details,
		SpeciesID: SpeciesID(p.Details),
		Condition: p.Condition,
		Active:    p.Active,
	}
}
