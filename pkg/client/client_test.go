package client_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/fsmconv"
	httpadapter "github.com/aretw0/fsmconv/pkg/adapters/http"
	"github.com/aretw0/fsmconv/pkg/client"
	"github.com/aretw0/fsmconv/pkg/convert"
	"github.com/aretw0/fsmconv/pkg/domain"
)

func newServer(t *testing.T) *client.Client {
	t.Helper()
	srv := httptest.NewServer(httpadapter.NewHandler(fsmconv.New()))
	t.Cleanup(srv.Close)
	return client.New(srv.URL+"/", client.WithHTTPClient(srv.Client()))
}

func TestClient_MealyToMoore(t *testing.T) {
	c := newServer(t)

	res, err := c.MealyToMoore(context.Background(), "1 1 0 0\n0 0 1 1")
	require.NoError(t, err)

	assert.Equal(t, []string{"q0", "q1"}, res.Original.States)
	assert.Equal(t, []string{"q0", "q1", "q2"}, res.Converted.Names())

	ok, counter, err := convert.Equivalent(res.Original, res.Converted)
	require.NoError(t, err)
	assert.True(t, ok, "counterexample %v", counter)
}

func TestClient_MooreToMealy(t *testing.T) {
	c := newServer(t)

	res, err := c.MooreToMealy(context.Background(), "0 1\n1 0\n0 1")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Converted.Inputs)

	ok, _, err := convert.Equivalent(res.Converted, res.Original)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestClient_Simulate(t *testing.T) {
	c := newServer(t)

	sim, err := c.Simulate(context.Background(), domain.MachineMoore, "5 7\n1 0", []int{0, 0})
	require.NoError(t, err)
	assert.Equal(t, []int{7, 5}, sim.Outputs)
	require.NoError(t, c.Health(context.Background()))
}

func TestClient_APIError(t *testing.T) {
	c := newServer(t)

	_, err := c.MealyToMoore(context.Background(), "   ")
	require.Error(t, err)

	var apiErr *client.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "empty_input", apiErr.Kind)
	assert.Equal(t, "parse", apiErr.Stage)
	assert.ErrorIs(t, err, domain.ErrEmptyInput)
	assert.NotErrorIs(t, err, domain.ErrRowWidth)
}

func TestClient_LegacyMooreShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"original": {"states": ["q0"], "transitions": [{"from": "q0", "to": "q0", "input": "0", "output": "1"}]},
			"converted": {
				"moore_states": [{"name": "q0", "output": 0}, {"name": "q1", "output": 1}],
				"transitions": {"q0": ["q1"], "q1": ["q1"]},
				"inputs_per_state": 1
			}
		}`))
	}))
	defer srv.Close()

	res, err := client.New(srv.URL).MealyToMoore(context.Background(), "0 1")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"q0": 0, "q1": 1}, res.Converted.Outputs())
}

func TestClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	err := client.New(url).Health(context.Background())
	assert.Error(t, err)
}
