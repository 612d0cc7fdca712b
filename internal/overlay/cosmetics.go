package overlay

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/showdex/internal/battlelog"
	"github.com/showdex/internal/data"
	"github.com/showdex/internal/services/pokeapi"
)

// SpeciesLookup fetches sprite and types for a species id.
type SpeciesLookup interface {
	GetSpecies(ctx context.Context, id string) (*pokeapi.Species, error)
}

// Cosmetics is the decorative data shown next to each active Pokémon.
// A nil side means no data.
type Cosmetics struct {
	Ours       *pokeapi.Species
	Opponent   *pokeapi.Species
	Weaknesses []string
}

// Decorate fetches both active Pokémon concurrently. Lookup failures leave
// that side empty and are never returned.
func Decorate(ctx context.Context, lookup SpeciesLookup, summary *battlelog.BattleSummary, logger *zap.Logger) Cosmetics {
	var c Cosmetics
	if summary == nil || lookup == nil {
		return c
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	fetch := func(ctx context.Context, id string) *pokeapi.Species {
		if id == "" {
			return nil
		}
		s, err := lookup.GetSpecies(ctx, id)
		if err != nil {
			logger.Debug("Species lookup failed", zap.String("id", id), zap.Error(err))
			return nil
		}
		return s
	}

	g, gctx := errgroup.WithContext(ctx)
	if summary.OurActive != nil {
		id := summary.OurActive.SpeciesID
		g.Go(func() error {
			c.Ours = fetch(gctx, id)
			return nil
		})
	}
	if summary.OpponentActive != nil {
		id := summary.OpponentActive.SpeciesID
		g.Go(func() error {
			c.Opponent = fetch(gctx, id)
			return nil
		})
	}
	_ = g.Wait()

	if c.Opponent != nil {
		c.Weaknesses = data.Weaknesses(c.Opponent.Types)
	}
	return c
}
