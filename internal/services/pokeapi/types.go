// Package pokeapi provides a PokeAPI client for Showdex.
package pokeapi

// Species is the cosmetic data the overlay shows for a Pokémon.
type Species struct {
	ID     string   `json:"id"`
	Sprite string   `json:"sprite,omitempty"`
	Types  []string `json:"types"`
}

// pokemonResponse is the subset of /pokemon/{id} we read.
type pokemonResponse struct {
	Sprites struct {
		FrontDefault string `json:"front_default"`
		Other        struct {
			OfficialArtwork struct {
				FrontDefault string `json:"front_default"`
			} `json:"official-artwork"`
		} `json:"other"`
	} `json:"sprites"`
	Types []struct {
		Slot int `json:"slot"`
		Type struct {
			Name string `json:"name"`
		} `json:"type"`
	} `json:"types"`
}

func (r *pokemonResponse) species(id string) *Species {
	sprite := r.Sprites.Other.OfficialArtwork.FrontDefault
	if sprite == "" {
		sprite = r.Sprites.FrontDefault
	}

	types := make([]string, 0, len(r.Types))
	for _, t := range r.Types {
		if t.Type.Name != "" {
			types = append(types, t.Type.Name)
		}
	}
	return &Species{ID: id, Sprite: sprite, Types: types}
}
