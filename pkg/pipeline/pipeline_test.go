package pipeline_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/fsmconv/pkg/codec"
	"github.com/aretw0/fsmconv/pkg/convert"
	"github.com/aretw0/fsmconv/pkg/domain"
	"github.com/aretw0/fsmconv/pkg/parser"
	"github.com/aretw0/fsmconv/pkg/pipeline"
)

type recorder struct {
	mu       sync.Mutex
	stages   []domain.Stage
	complete []*domain.RunEvent
	failures []*domain.RunEvent
}

func (r *recorder) hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStage: func(_ context.Context, e *domain.StageEvent) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.stages = append(r.stages, e.Stage)
		},
		OnComplete: func(_ context.Context, e *domain.RunEvent) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.complete = append(r.complete, e)
		},
		OnFailure: func(_ context.Context, e *domain.RunEvent) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.failures = append(r.failures, e)
		},
	}
}

func TestRun_MealyToMoore(t *testing.T) {
	rec := &recorder{}
	p := pipeline.New(pipeline.WithLifecycleHooks(rec.hooks()), pipeline.WithSelfCheck(true))

	res, err := p.Run(context.Background(), domain.MealyToMoore, "1 1 0 0\n0 0 1 1")
	require.NoError(t, err)

	assert.NotEmpty(t, res.ID)
	assert.Equal(t, domain.MealyToMoore, res.Direction)
	require.IsType(t, codec.MealyJSON{}, res.Original)
	require.IsType(t, codec.MooreJSON{}, res.Converted)
	assert.Len(t, res.Converted.(codec.MooreJSON).States, 3)

	assert.Equal(t, []domain.Stage{domain.StageReceived, domain.StageParse, domain.StageConvert, domain.StageSerialize}, rec.stages)
	require.Len(t, rec.complete, 1)
	assert.Equal(t, 3, rec.complete[0].States)
	assert.Equal(t, res.ID, rec.complete[0].RunID)
	assert.Empty(t, rec.failures)

	data, err := json.Marshal(res)
	require.NoError(t, err)
	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &body))
	assert.Len(t, body, 2)
	assert.Contains(t, body, "original")
	assert.Contains(t, body, "converted")
}

func TestRun_MooreToMealy(t *testing.T) {
	p := pipeline.New(pipeline.WithSelfCheck(true))

	res, err := p.Run(context.Background(), domain.MooreToMealy, "0 1\n1 0\n0 1")
	require.NoError(t, err)

	mealy := res.Target.(*domain.Mealy)
	assert.Equal(t, [][]domain.MealyEdge{
		{{To: "q1", Output: 1}, {To: "q0", Output: 0}},
		{{To: "q0", Output: 0}, {To: "q1", Output: 1}},
	}, mealy.Transitions)
}

func TestRun_CompositeNaming(t *testing.T) {
	p := pipeline.New(pipeline.WithNaming(convert.NamingComposite))

	res, err := p.Run(context.Background(), domain.MealyToMoore, "1 1 0 0\n0 0 1 1")
	require.NoError(t, err)
	assert.Equal(t, []string{"q0/-", "q0/0", "q1/1"}, res.Target.(*domain.Moore).Names())
}

func TestRun_Failures(t *testing.T) {
	tests := []struct {
		name     string
		dir      domain.Direction
		text     string
		sentinel error
		stage    domain.Stage
	}{
		{"unsupported direction", "nfa-to-dfa", "0 0", domain.ErrUnsupportedDirection, domain.StageReceived},
		{"empty input", domain.MealyToMoore, "   ", domain.ErrEmptyInput, domain.StageParse},
		{"ragged rows", domain.MealyToMoore, "1 0 1\n0 1 1 0", domain.ErrRowWidth, domain.StageParse},
		{"dangling reference", domain.MooreToMealy, "0 1\n1 2", domain.ErrInvalidModel, domain.StageParse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{}
			p := pipeline.New(pipeline.WithLifecycleHooks(rec.hooks()))

			res, err := p.Run(context.Background(), tt.dir, tt.text)
			assert.Nil(t, res)
			require.ErrorIs(t, err, tt.sentinel)

			e, ok := domain.AsError(err)
			require.True(t, ok)
			assert.Equal(t, tt.stage, e.Stage)

			require.Len(t, rec.failures, 1)
			assert.Equal(t, err, rec.failures[0].Err)
			assert.Empty(t, rec.complete)
		})
	}
}

func TestRun_TooLarge(t *testing.T) {
	p := pipeline.New(pipeline.WithLimits(parser.Limits{MaxStates: 1}))

	_, err := p.Run(context.Background(), domain.MealyToMoore, "0 0\n0 0")
	assert.ErrorIs(t, err, domain.ErrTooLarge)
	assert.Equal(t, 1, p.Limits().MaxStates)
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := pipeline.New().Run(ctx, domain.MealyToMoore, "0 0")
	assert.True(t, errors.Is(err, context.Canceled))
	assert.False(t, domain.IsClientError(err))
}

func TestRun_Concurrent(t *testing.T) {
	p := pipeline.New(pipeline.WithSelfCheck(true))

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := p.Run(context.Background(), domain.MealyToMoore, "1 1 0 0\n0 0 1 1")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
}

func TestSimulate(t *testing.T) {
	p := pipeline.New()

	sim, err := p.Simulate(context.Background(), domain.MachineMealy, "1 1 0 0\n0 0 1 1", []int{0, 1, 0})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 1, 0}, sim.Outputs)
	assert.Equal(t, []string{"q0", "q1", "q1", "q0"}, sim.Trace)

	_, err = p.Simulate(context.Background(), domain.MachineMealy, "0 0", []int{3})
	assert.ErrorIs(t, err, domain.ErrInvalidModel)

	_, err = p.Simulate(context.Background(), "dfa", "0 0", nil)
	assert.ErrorIs(t, err, domain.ErrUnsupportedDirection)
}

func TestValidate(t *testing.T) {
	p := pipeline.New()

	m, err := p.Validate(context.Background(), domain.MachineMoore, "1 0\n1 0")
	require.NoError(t, err)
	assert.Equal(t, domain.MachineMoore, m.Kind())

	_, err = p.Validate(context.Background(), domain.MachineMealy, "0")
	assert.ErrorIs(t, err, domain.ErrRowWidth)
}
