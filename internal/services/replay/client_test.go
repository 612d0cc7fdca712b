package replay

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const page = `<!DOCTYPE html>
<html><head><title>[Gen 9] OU replay: Ash vs. Gary - Showdown!</title></head>
<body>
<div class="wrapper replay-wrapper">
<script type="text/plain" class="battle-log-data">|j|☆Ash
|player|p1|Ash|1
|player|p2|Gary|2
|start
|switch|p1a: Ferrothorn|Ferrothorn, M|100/100
|switch|p2a: Noivern|Noivern, M|100/100
|turn|1
|move|p2a: Noivern|Hurricane|p1a: Ferrothorn
|move|p1a: Ferrothorn|Spikes|p2a: Noivern
|turn|2
|drag|p2a: Toxapex|Toxapex, F|100/100
|move|p2a: Toxapex|Scald|p1a: Ferrothorn
|turn|3
</script>
</div>
</body></html>`

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, string) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(nil, zap.NewNop()).WithHTTPClient(server.Client()), server.URL
}

func TestFetch(t *testing.T) {
	c, url := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, page)
	})

	r, err := c.Fetch(context.Background(), url+"/gen9ou-123")
	require.NoError(t, err)
	assert.Equal(t, "[Gen 9] OU replay: Ash vs. Gary - Showdown!", r.Title)
	assert.Equal(t, "|j|☆Ash", r.Lines[0])
	assert.Equal(t, "|turn|3", r.Lines[len(r.Lines)-1])
}

func TestFetch_NoLog(t *testing.T) {
	c, url := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html><body>nothing here</body></html>")
	})

	_, err := c.Fetch(context.Background(), url)
	assert.ErrorIs(t, err, ErrNoLog)
}

func TestFetch_NotFound(t *testing.T) {
	c, url := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	_, err := c.Fetch(context.Background(), url)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestTurns(t *testing.T) {
	c, url := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, page)
	})
	r, err := c.Fetch(context.Background(), url)
	require.NoError(t, err)

	turns := Turns(r.Lines, "p1")
	require.Len(t, turns, 3)

	assert.Equal(t, 1, turns[0].Turn)
	assert.Equal(t, "Noivern, M", turns[0].Opponent.Details)
	assert.Empty(t, turns[0].Opponent.Moves)

	assert.Equal(t, []string{"Hurricane"}, turns[1].Opponent.Moves)

	assert.Equal(t, "Toxapex, F", turns[2].Opponent.Details)
	assert.Equal(t, "toxapex", turns[2].Opponent.SpeciesID)
	assert.Equal(t, []string{"Hurricane", "Scald"}, turns[2].Opponent.Moves)

	fromOtherSide := Turns(r.Lines, "p2")
	require.Len(t, fromOtherSide, 3)
	assert.Equal(t, []string{"Spikes"}, fromOtherSide[2].Opponent.Moves)
}
